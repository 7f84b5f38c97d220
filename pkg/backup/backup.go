package backup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidBackup = errors.New("invalid backup")

// Document is the whole state as a flat JSON document. The first scenario is the base and
// carries items, the following ones carry their change-set.
type Document struct {
	Scenarios      []ScenarioDocument `json:"scenarios"`
	Actuals        []ActualDocument   `json:"actuals,omitempty"`
	ComparisonSpan int                `json:"comparisonSpan"`
	IsPro          bool               `json:"isPro"`
}

type ScenarioDocument struct {
	Id             string           `json:"id"`
	Name           string           `json:"name"`
	Items          []budget.ItemDTO `json:"items,omitempty"`
	Overrides      []budget.ItemDTO `json:"overrides,omitempty"`
	DeletedItemIds []string         `json:"deletedItemIds,omitempty"`
	ItemOrder      []string         `json:"itemOrder,omitempty"`
}

// ActualDocument is the amount really booked for an item in a month, signed.
type ActualDocument struct {
	ScenarioId string `json:"scenarioId"`
	ItemId     string `json:"itemId"`
	Month      string `json:"month"`
	Amount     int64  `json:"amount"`
}

// StateStore is the part of the scenario service a backup needs.
type StateStore interface {
	State(ctx context.Context) scenario.State
	ReplaceState(ctx context.Context, state scenario.State) error
}

type Service interface {
	Export(ctx context.Context) Document
	Import(ctx context.Context, doc Document) error
	FileName() string
}

type ServiceImpl struct {
	store StateStore
	clock utils.Clock
}

func NewService(store StateStore, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{store: store, clock: clock}
}

func (s *ServiceImpl) Export(ctx context.Context) Document {
	return FromState(s.store.State(ctx))
}

// Import replaces the whole state with doc after checking it.
func (s *ServiceImpl) Import(ctx context.Context, doc Document) error {
	state, err := ToState(doc)
	if err != nil {
		log.Warnf("Rejected backup: %v", err)
		return err
	}
	if err := s.store.ReplaceState(ctx, state); err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}
	log.Infof("Imported backup with %d base items and %d scenarios", len(state.Base.Items), len(state.Scenarios))
	return nil
}

func (s *ServiceImpl) FileName() string {
	return fmt.Sprintf("kawazanyo_backup_%s.json", s.clock.Now().Format("2006-01-02"))
}

func FromState(state scenario.State) Document {
	doc := Document{
		Scenarios:      make([]ScenarioDocument, 0, len(state.Scenarios)+1),
		ComparisonSpan: state.ComparisonSpan,
		IsPro:          state.IsPro,
	}
	doc.Scenarios = append(doc.Scenarios, ScenarioDocument{
		Id:    state.Base.Id,
		Name:  state.Base.Name,
		Items: budget.ItemsToDTO(state.Base.Items),
	})
	for _, sim := range state.Scenarios {
		doc.Scenarios = append(doc.Scenarios, ScenarioDocument{
			Id:             sim.Id,
			Name:           sim.Name,
			Overrides:      budget.ItemsToDTO(sim.Overrides),
			DeletedItemIds: sim.DeletedItemIds,
			ItemOrder:      sim.ItemOrder,
		})
	}
	for _, actual := range state.Actuals {
		doc.Actuals = append(doc.Actuals, ActualDocument{
			ScenarioId: actual.ScenarioId,
			ItemId:     actual.ItemId,
			Month:      actual.Month,
			Amount:     actual.Amount,
		})
	}
	return doc
}

// ToState checks doc and converts it. Every problem is reported as ErrInvalidBackup.
func ToState(doc Document) (scenario.State, error) {
	if len(doc.Scenarios) == 0 {
		return scenario.State{}, fmt.Errorf("%w: no scenarios", ErrInvalidBackup)
	}
	baseDoc := doc.Scenarios[0]
	if baseDoc.Id != scenario.BaseId {
		return scenario.State{}, fmt.Errorf("%w: first scenario must be %q, got %q", ErrInvalidBackup, scenario.BaseId, baseDoc.Id)
	}
	if len(baseDoc.Overrides) > 0 || len(baseDoc.DeletedItemIds) > 0 {
		return scenario.State{}, fmt.Errorf("%w: base scenario cannot have overrides or deletions", ErrInvalidBackup)
	}
	baseItems, err := toItems(baseDoc.Id, baseDoc.Items)
	if err != nil {
		return scenario.State{}, err
	}

	state := scenario.NewState(baseDoc.Name, baseItems, doc.ComparisonSpan)
	state.IsPro = doc.IsPro
	seen := map[string]struct{}{scenario.BaseId: {}}
	for _, simDoc := range doc.Scenarios[1:] {
		if simDoc.Id == "" {
			return scenario.State{}, fmt.Errorf("%w: scenario without id", ErrInvalidBackup)
		}
		if _, dup := seen[simDoc.Id]; dup {
			return scenario.State{}, fmt.Errorf("%w: scenario %q appears twice", ErrInvalidBackup, simDoc.Id)
		}
		seen[simDoc.Id] = struct{}{}
		if len(simDoc.Items) > 0 {
			return scenario.State{}, fmt.Errorf("%w: scenario %q has items, only the base can", ErrInvalidBackup, simDoc.Id)
		}
		overrides, err := toItems(simDoc.Id, simDoc.Overrides)
		if err != nil {
			return scenario.State{}, err
		}
		if err := checkDeletedIds(simDoc, baseItems); err != nil {
			return scenario.State{}, err
		}
		state.Scenarios = append(state.Scenarios, scenario.SimScenario{
			Id:             simDoc.Id,
			Name:           simDoc.Name,
			Overrides:      overrides,
			DeletedItemIds: simDoc.DeletedItemIds,
			ItemOrder:      simDoc.ItemOrder,
		})
	}
	actuals, err := toActuals(doc.Actuals, seen)
	if err != nil {
		return scenario.State{}, err
	}
	state.Actuals = actuals
	return state, nil
}

// checkDeletedIds only lets a scenario hide base items, each one once.
func checkDeletedIds(simDoc ScenarioDocument, baseItems []budget.BudgetItem) error {
	deleted := make(map[string]struct{}, len(simDoc.DeletedItemIds))
	for _, id := range simDoc.DeletedItemIds {
		if _, dup := deleted[id]; dup {
			return fmt.Errorf("%w: item %q is deleted twice in scenario %q", ErrInvalidBackup, id, simDoc.Id)
		}
		deleted[id] = struct{}{}
		if !slices.ContainsFunc(baseItems, func(item budget.BudgetItem) bool { return item.Id == id }) {
			return fmt.Errorf("%w: scenario %q deletes %q which is no base item", ErrInvalidBackup, simDoc.Id, id)
		}
	}
	return nil
}

func toActuals(docs []ActualDocument, scenarioIds map[string]struct{}) ([]scenario.MonthlyActual, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	actuals := make([]scenario.MonthlyActual, 0, len(docs))
	for _, doc := range docs {
		if _, ok := scenarioIds[doc.ScenarioId]; !ok {
			return nil, fmt.Errorf("%w: actual of unknown scenario %q", ErrInvalidBackup, doc.ScenarioId)
		}
		if doc.ItemId == "" {
			return nil, fmt.Errorf("%w: actual without item id in scenario %q", ErrInvalidBackup, doc.ScenarioId)
		}
		if !scenario.ValidMonth(doc.Month) {
			return nil, fmt.Errorf("%w: actual month %q is not YYYY-MM", ErrInvalidBackup, doc.Month)
		}
		actual := scenario.MonthlyActual{ScenarioId: doc.ScenarioId, ItemId: doc.ItemId, Month: doc.Month, Amount: doc.Amount}
		for _, other := range actuals {
			if other.ScenarioId == actual.ScenarioId && other.ItemId == actual.ItemId && other.Month == actual.Month {
				return nil, fmt.Errorf("%w: item %q of scenario %q has two actuals in %s", ErrInvalidBackup, doc.ItemId, doc.ScenarioId, doc.Month)
			}
		}
		actuals = append(actuals, actual)
	}
	return actuals, nil
}

func toItems(scenarioId string, dtos []budget.ItemDTO) ([]budget.BudgetItem, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	items := make([]budget.BudgetItem, 0, len(dtos))
	seen := make(map[string]struct{}, len(dtos))
	for _, dto := range dtos {
		if dto.Id == "" {
			return nil, fmt.Errorf("%w: item without id in scenario %q", ErrInvalidBackup, scenarioId)
		}
		if _, dup := seen[dto.Id]; dup {
			return nil, fmt.Errorf("%w: item %q appears twice in scenario %q", ErrInvalidBackup, dto.Id, scenarioId)
		}
		seen[dto.Id] = struct{}{}
		item := budget.DTOToItem(dto)
		if err := budget.Validate(item); err != nil {
			return nil, fmt.Errorf("%w: item %q in scenario %q: %v", ErrInvalidBackup, dto.Id, scenarioId, err)
		}
		items = append(items, item)
	}
	return items, nil
}
