package scenario

import (
	"context"
)

type RepositoryStub struct {
	state   State
	stored  bool
	saves   int
	saveErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (s *RepositoryStub) LoadState(ctx context.Context) (State, bool, error) {
	return s.state, s.stored, nil
}

func (s *RepositoryStub) SaveState(ctx context.Context, state State) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	s.stored = true
	s.saves++
	return nil
}

// FailSaves makes every following SaveState return err, nil restores normal behaviour.
func (s *RepositoryStub) FailSaves(err error) {
	s.saveErr = err
}

func (s *RepositoryStub) Saves() int {
	return s.saves
}
