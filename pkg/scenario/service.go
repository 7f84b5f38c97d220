package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kawazanyo/kawazanyo/internal/event_bus"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	log "github.com/sirupsen/logrus"
)

var ErrScenarioNotFound = errors.New("scenario not found")
var ErrStateNotLoaded = errors.New("scenario state not loaded")

type Settings struct {
	ComparisonSpan int
	IsPro          bool
}

type Service interface {
	State(ctx context.Context) State
	Version() int64
	Snapshot(ctx context.Context) (State, int64)
	ListScenarios(ctx context.Context) []Scenario
	GetScenario(ctx context.Context, id string) (Scenario, error)
	EffectiveItems(ctx context.Context, scenarioId string) ([]budget.BudgetItem, error)
	AnnotatedItems(ctx context.Context, scenarioId string) ([]AnnotatedItem, error)
	AddItem(ctx context.Context, scenarioId string, draft budget.BudgetItem) (budget.BudgetItem, error)
	UpdateItem(ctx context.Context, scenarioId, itemId string, patch budget.ItemPatch) error
	RemoveItem(ctx context.Context, scenarioId, itemId string) error
	RestoreItem(ctx context.Context, scenarioId, itemId string) error
	ReorderItems(ctx context.Context, scenarioId string, ids []string) error
	Actuals(ctx context.Context, scenarioId string) ([]MonthlyActual, error)
	SetMonthlyActual(ctx context.Context, actual MonthlyActual) error
	ClearMonthlyActual(ctx context.Context, scenarioId, itemId, month string) error
	AddScenario(ctx context.Context, name string) (SimScenario, error)
	RemoveScenario(ctx context.Context, id string) error
	RenameScenario(ctx context.Context, id, name string) error
	Settings(ctx context.Context) Settings
	UpdateSettings(ctx context.Context, settings Settings) (Settings, error)
	ReplaceState(ctx context.Context, state State) error
}

// Defaults describe the state created when the repository holds none yet.
type Defaults struct {
	BaseName       string
	ComparisonSpan int
	Seed           bool
}

// ServiceImpl owns the current State. Writers are serialised; every mutation computes the
// next state with a reducer, stores it and only then swaps it in, so readers always see a
// complete snapshot.
type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	newId    func() string

	mu      sync.RWMutex
	state   State
	version int64
	loaded  bool
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus, newId: uuid.NewString}
}

// Load reads the stored state, or creates and stores a fresh one from defaults.
func (s *ServiceImpl) Load(ctx context.Context, defaults Defaults) error {
	state, found, err := s.repo.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scenario state: %w", err)
	}
	if !found {
		var items []budget.BudgetItem
		if defaults.Seed {
			items = budget.Seed(s.newId)
		}
		state = NewState(defaults.BaseName, items, defaults.ComparisonSpan)
		if err := s.repo.SaveState(ctx, state); err != nil {
			return fmt.Errorf("failed to store initial scenario state: %w", err)
		}
		log.Infof("Created base scenario with %d items", len(items))
	}

	s.mu.Lock()
	s.state = state
	s.loaded = true
	s.mu.Unlock()
	log.Infof("Loaded scenario state: %d base items, %d scenarios", len(state.Base.Items), len(state.Scenarios))
	return nil
}

func (s *ServiceImpl) State(ctx context.Context) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *ServiceImpl) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current state together with the version it has.
func (s *ServiceImpl) Snapshot(ctx context.Context) (State, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.version
}

func (s *ServiceImpl) ListScenarios(ctx context.Context) []Scenario {
	return s.State(ctx).List()
}

func (s *ServiceImpl) GetScenario(ctx context.Context, id string) (Scenario, error) {
	scenario, ok := s.State(ctx).Scenario(id)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	return scenario, nil
}

func (s *ServiceImpl) EffectiveItems(ctx context.Context, scenarioId string) ([]budget.BudgetItem, error) {
	state := s.State(ctx)
	scenario, ok := state.Scenario(scenarioId)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	return ResolveEffectiveItems(state.Base, scenario), nil
}

func (s *ServiceImpl) AnnotatedItems(ctx context.Context, scenarioId string) ([]AnnotatedItem, error) {
	state := s.State(ctx)
	scenario, ok := state.Scenario(scenarioId)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	return ResolveAnnotatedItems(state.Base, scenario), nil
}

// AddItem returns the stored item with its new id. When the scenario does not exist nothing
// is stored and the returned item has no id.
func (s *ServiceImpl) AddItem(ctx context.Context, scenarioId string, draft budget.BudgetItem) (budget.BudgetItem, error) {
	id := s.newId()
	changed, err := s.mutate(ctx, "add_item", scenarioId, func(state State) (State, bool) {
		return AddItem(state, scenarioId, draft, id)
	})
	if err != nil || !changed {
		return budget.BudgetItem{}, err
	}
	item := draft.Clone()
	item.Id = id
	return item, nil
}

func (s *ServiceImpl) UpdateItem(ctx context.Context, scenarioId, itemId string, patch budget.ItemPatch) error {
	_, err := s.mutate(ctx, "update_item", scenarioId, func(state State) (State, bool) {
		return UpdateItem(state, scenarioId, itemId, patch)
	})
	return err
}

func (s *ServiceImpl) RemoveItem(ctx context.Context, scenarioId, itemId string) error {
	_, err := s.mutate(ctx, "remove_item", scenarioId, func(state State) (State, bool) {
		return RemoveItem(state, scenarioId, itemId)
	})
	return err
}

func (s *ServiceImpl) RestoreItem(ctx context.Context, scenarioId, itemId string) error {
	_, err := s.mutate(ctx, "restore_item", scenarioId, func(state State) (State, bool) {
		return RestoreItem(state, scenarioId, itemId)
	})
	return err
}

func (s *ServiceImpl) ReorderItems(ctx context.Context, scenarioId string, ids []string) error {
	_, err := s.mutate(ctx, "reorder_items", scenarioId, func(state State) (State, bool) {
		return ReorderItems(state, scenarioId, ids)
	})
	return err
}

// Actuals returns the recorded actuals of a scenario.
func (s *ServiceImpl) Actuals(ctx context.Context, scenarioId string) ([]MonthlyActual, error) {
	state := s.State(ctx)
	if _, ok := state.Scenario(scenarioId); !ok {
		return nil, ErrScenarioNotFound
	}
	actuals := make([]MonthlyActual, 0)
	for _, actual := range state.Actuals {
		if actual.ScenarioId == scenarioId {
			actuals = append(actuals, actual)
		}
	}
	return actuals, nil
}

func (s *ServiceImpl) SetMonthlyActual(ctx context.Context, actual MonthlyActual) error {
	_, err := s.mutate(ctx, "set_monthly_actual", actual.ScenarioId, func(state State) (State, bool) {
		return SetMonthlyActual(state, actual)
	})
	return err
}

func (s *ServiceImpl) ClearMonthlyActual(ctx context.Context, scenarioId, itemId, month string) error {
	_, err := s.mutate(ctx, "clear_monthly_actual", scenarioId, func(state State) (State, bool) {
		return ClearMonthlyActual(state, scenarioId, itemId, month)
	})
	return err
}

func (s *ServiceImpl) AddScenario(ctx context.Context, name string) (SimScenario, error) {
	id := s.newId()
	changed, err := s.mutate(ctx, "add_scenario", id, func(state State) (State, bool) {
		return AddScenario(state, name, id)
	})
	if err != nil || !changed {
		return SimScenario{}, err
	}
	return SimScenario{Id: id, Name: name}, nil
}

func (s *ServiceImpl) RemoveScenario(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, "remove_scenario", id, func(state State) (State, bool) {
		return RemoveScenario(state, id)
	})
	return err
}

func (s *ServiceImpl) RenameScenario(ctx context.Context, id, name string) error {
	_, err := s.mutate(ctx, "rename_scenario", id, func(state State) (State, bool) {
		return RenameScenario(state, id, name)
	})
	return err
}

func (s *ServiceImpl) Settings(ctx context.Context) Settings {
	state := s.State(ctx)
	return Settings{ComparisonSpan: state.ComparisonSpan, IsPro: state.IsPro}
}

func (s *ServiceImpl) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	_, err := s.mutate(ctx, "update_settings", "", func(state State) (State, bool) {
		next, spanChanged := SetComparisonSpan(state, settings.ComparisonSpan)
		next, proChanged := SetPro(next, settings.IsPro)
		return next, spanChanged || proChanged
	})
	if err != nil {
		return Settings{}, err
	}
	return s.Settings(ctx), nil
}

// ReplaceState swaps in a whole new state, as done when a backup is imported.
func (s *ServiceImpl) ReplaceState(ctx context.Context, state State) error {
	_, err := s.mutate(ctx, "replace_state", "", func(State) (State, bool) {
		return state, true
	})
	return err
}

func (s *ServiceImpl) mutate(ctx context.Context, operation, scenarioId string, reducer func(State) (State, bool)) (bool, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false, ErrStateNotLoaded
	}
	next, changed := reducer(s.state)
	if !changed {
		s.mu.Unlock()
		log.Warnf("%s on scenario %q changed nothing, probably a stale reference", operation, scenarioId)
		return false, nil
	}
	if err := s.repo.SaveState(ctx, next); err != nil {
		s.mu.Unlock()
		log.Errorf("failed to store scenario state after %s: %v", operation, err)
		return false, fmt.Errorf("failed to store scenario state: %w", err)
	}
	s.state = next
	s.version++
	version := s.version
	s.mu.Unlock()

	if s.eventBus == nil {
		return true, nil
	}
	// The state is already stored, a failing subscriber must not undo the mutation.
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ScenarioStateChangedType, event_bus.ScenarioStateChanged{
		Version:    version,
		Operation:  operation,
		ScenarioId: scenarioId,
	}))
	if err != nil {
		log.Errorf("failed to publish scenario state change: %v", err)
	}
	return true, nil
}
