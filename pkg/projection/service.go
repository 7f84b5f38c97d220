package projection

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kawazanyo/kawazanyo/internal/event_bus"
	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	log "github.com/sirupsen/logrus"
)

// ScenarioReader is the part of the scenario service a projection needs.
type ScenarioReader interface {
	// Snapshot returns the current state and its version in one read.
	Snapshot(ctx context.Context) (scenario.State, int64)
}

type Service interface {
	// Project computes the monthly projection of the base followed by scenarioIds.
	Project(ctx context.Context, scenarioIds []string) (Projection, error)
	// AnnualComparison computes annual balances of the base followed by scenarioIds.
	AnnualComparison(ctx context.Context, scenarioIds []string) ([]AnnualBalance, error)
}

type ServiceImpl struct {
	scenarios ScenarioReader
	clock     utils.Clock

	mu    sync.Mutex
	cache map[string]Projection
	// latest is the highest state version announced on the event bus.
	latest int64
}

func NewService(scenarios ScenarioReader, clock utils.Clock, eventBus *event_bus.EventBus) *ServiceImpl {
	s := &ServiceImpl{
		scenarios: scenarios,
		clock:     clock,
		cache:     make(map[string]Projection),
	}
	if eventBus != nil {
		event_bus.SubscribeTyped(eventBus, event_bus.ScenarioStateChangedType, s.onStateChanged)
	}
	return s
}

func (s *ServiceImpl) onStateChanged(e event_bus.EventT[event_bus.ScenarioStateChanged]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) > 0 {
		log.Debugf("Dropping %d cached projections after %s (version %d)", len(s.cache), e.Data.Operation, e.Data.Version)
	}
	clear(s.cache)
	s.latest = max(s.latest, e.Data.Version)
	return nil
}

func (s *ServiceImpl) Project(ctx context.Context, scenarioIds []string) (Projection, error) {
	state, version := s.scenarios.Snapshot(ctx)
	refs, scenarios, err := resolveRefs(state, scenarioIds)
	if err != nil {
		return Projection{}, err
	}
	start := utils.MonthStart(s.clock.Now())
	span := state.ComparisonSpan
	key := cacheKey(refs, start.Format("2006-01"), span, version)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	items := make([][]budget.BudgetItem, 0, len(scenarios))
	for _, sc := range scenarios {
		items = append(items, scenario.ResolveEffectiveItems(state.Base, sc))
	}
	actuals := actualsByMonth(state.Actuals)

	result := Projection{Span: span, Scenarios: refs, Months: make([]Month, 0, span)}
	assets := make([]int64, len(refs))
	for m := 1; m <= span; m++ {
		label := start.AddDate(0, m-1, 0).Format("2006-01")
		month := Month{
			Index:   m,
			Label:   label,
			Results: make([]ScenarioMonth, 0, len(refs)),
		}
		for i, ref := range refs {
			balance := MonthlyBalance(items[i], m, actuals[ref.Id][label])
			assets[i] += balance
			month.Results = append(month.Results, ScenarioMonth{ScenarioId: ref.Id, Balance: balance, Asset: assets[i]})
		}
		result.Months = append(result.Months, month)
	}

	s.mu.Lock()
	// A newer state was announced while computing, this result is outdated already.
	if version >= s.latest {
		s.cache[key] = result
	}
	s.mu.Unlock()
	return result, nil
}

func (s *ServiceImpl) AnnualComparison(ctx context.Context, scenarioIds []string) ([]AnnualBalance, error) {
	state, _ := s.scenarios.Snapshot(ctx)
	refs, scenarios, err := resolveRefs(state, scenarioIds)
	if err != nil {
		return nil, err
	}
	result := make([]AnnualBalance, 0, len(refs))
	for i, ref := range refs {
		result = append(result, Annual(ref, scenario.ResolveEffectiveItems(state.Base, scenarios[i])))
	}
	for i := range result {
		result[i].DifferenceToBase = result[i].Balance - result[0].Balance
	}
	return result, nil
}

// resolveRefs puts the base first and drops repeated ids.
func resolveRefs(state scenario.State, scenarioIds []string) ([]ScenarioRef, []scenario.Scenario, error) {
	ids := append([]string{scenario.BaseId}, scenarioIds...)
	refs := make([]ScenarioRef, 0, len(ids))
	scenarios := make([]scenario.Scenario, 0, len(ids))
	for _, id := range ids {
		if slices.ContainsFunc(refs, func(ref ScenarioRef) bool { return ref.Id == id }) {
			continue
		}
		sc, ok := state.Scenario(id)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", scenario.ErrScenarioNotFound, id)
		}
		refs = append(refs, ScenarioRef{Id: sc.ScenarioId(), Name: sc.ScenarioName()})
		scenarios = append(scenarios, sc)
	}
	return refs, scenarios, nil
}

// actualsByMonth indexes actuals by scenario id, month and item id.
func actualsByMonth(actuals []scenario.MonthlyActual) map[string]map[string]map[string]int64 {
	result := make(map[string]map[string]map[string]int64)
	for _, actual := range actuals {
		months, ok := result[actual.ScenarioId]
		if !ok {
			months = make(map[string]map[string]int64)
			result[actual.ScenarioId] = months
		}
		items, ok := months[actual.Month]
		if !ok {
			items = make(map[string]int64)
			months[actual.Month] = items
		}
		items[actual.ItemId] = actual.Amount
	}
	return result
}

func cacheKey(refs []ScenarioRef, startMonth string, span int, version int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d/%s/%d", version, startMonth, span)
	for _, ref := range refs {
		b.WriteString("/")
		b.WriteString(ref.Id)
	}
	return b.String()
}
