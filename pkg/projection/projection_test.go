package projection

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kawazanyo/kawazanyo/internal/event_bus"
	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthly(name string, amount int64, kind budget.Kind) budget.BudgetItem {
	return budget.BudgetItem{
		Name:          name,
		Amount:        amount,
		Kind:          kind,
		FrequencyKind: budget.Monthly,
		Interval:      1,
		StartMonth:    1,
	}
}

func TestOccurs(t *testing.T) {
	end := 7
	quarterly := budget.BudgetItem{FrequencyKind: budget.Custom, Interval: 3, StartMonth: 2, EndMonth: &end}
	yearly := budget.BudgetItem{FrequencyKind: budget.Yearly, Interval: 12, StartMonth: 4}

	tests := []struct {
		name  string
		item  budget.BudgetItem
		month int
		want  bool
	}{
		{"before start", quarterly, 1, false},
		{"on start", quarterly, 2, true},
		{"between occurrences", quarterly, 3, false},
		{"next occurrence", quarterly, 5, true},
		{"after end", quarterly, 8, false},
		{"occurrence past end", quarterly, 11, false},
		{"yearly first", yearly, 4, true},
		{"yearly next", yearly, 16, true},
		{"yearly in between", yearly, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Occurs(tt.item, tt.month))
		})
	}
}

func TestAnnualAmount(t *testing.T) {
	assert.Equal(t, int64(1200), AnnualAmount(budget.BudgetItem{Amount: 100, FrequencyKind: budget.Monthly, Interval: 1}))
	assert.Equal(t, int64(100), AnnualAmount(budget.BudgetItem{Amount: 100, FrequencyKind: budget.Yearly, Interval: 12}))
	assert.Equal(t, int64(400), AnnualAmount(budget.BudgetItem{Amount: 100, FrequencyKind: budget.Custom, Interval: 3}))
	assert.Equal(t, int64(171), AnnualAmount(budget.BudgetItem{Amount: 100, FrequencyKind: budget.Custom, Interval: 7}))
}

func TestMonthlyBalance(t *testing.T) {
	salary := monthly("Salary", 1000, budget.Income)
	salary.Id = "s"
	bonus := budget.BudgetItem{Id: "b", Amount: 500, Kind: budget.Income, FrequencyKind: budget.Yearly, Interval: 12, StartMonth: 4}
	items := []budget.BudgetItem{salary, bonus}

	t.Run("should sum the planned amounts", func(t *testing.T) {
		assert.Equal(t, int64(1000), MonthlyBalance(items, 1, nil))
		assert.Equal(t, int64(1500), MonthlyBalance(items, 4, nil))
	})

	t.Run("should prefer what was really booked", func(t *testing.T) {
		assert.Equal(t, int64(950), MonthlyBalance(items, 1, map[string]int64{"s": 950}))
		assert.Equal(t, int64(1200), MonthlyBalance(items, 1, map[string]int64{"b": 200}))
		assert.Equal(t, int64(1000), MonthlyBalance(items, 1, map[string]int64{"gone": 200}))
	})
}

type fixture struct {
	ctx       context.Context
	scenarios *scenario.ServiceImpl
	service   *ServiceImpl
	simId     string
	rentId    string
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	bus := event_bus.NewEventBus()
	scenarios := scenario.NewService(scenario.NewRepositoryStub(), bus)
	require.NoError(t, scenarios.Load(ctx, scenario.Defaults{BaseName: "Current", ComparisonSpan: 3}))
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2026, 11, 15, 10, 0, 0, 0, time.UTC))

	_, err := scenarios.AddItem(ctx, scenario.BaseId, monthly("Salary", 1000, budget.Income))
	require.NoError(t, err)
	rent, err := scenarios.AddItem(ctx, scenario.BaseId, monthly("Rent", 400, budget.Expense))
	require.NoError(t, err)
	sim, err := scenarios.AddScenario(ctx, "Move")
	require.NoError(t, err)
	cheaper := int64(300)
	require.NoError(t, scenarios.UpdateItem(ctx, sim.Id, rent.Id, budget.ItemPatch{Amount: &cheaper}))

	return fixture{
		ctx:       ctx,
		scenarios: scenarios,
		service:   NewService(scenarios, clock, bus),
		simId:     sim.Id,
		rentId:    rent.Id,
	}
}

func TestServiceImpl_Project(t *testing.T) {
	t.Run("should project the base and the scenario month by month", func(t *testing.T) {
		// given
		f := setupFixture(t)

		// when
		projection, err := f.service.Project(f.ctx, []string{f.simId})

		// then
		require.NoError(t, err)
		assert.Equal(t, 3, projection.Span)
		assert.Equal(t, []ScenarioRef{{Id: scenario.BaseId, Name: "Current"}, {Id: f.simId, Name: "Move"}}, projection.Scenarios)
		require.Len(t, projection.Months, 3)
		assert.Equal(t, "2026-11", projection.Months[0].Label)
		assert.Equal(t, "2027-01", projection.Months[2].Label)
		assert.Equal(t, ScenarioMonth{ScenarioId: scenario.BaseId, Balance: 600, Asset: 1800}, projection.Months[2].Results[0])
		assert.Equal(t, ScenarioMonth{ScenarioId: f.simId, Balance: 700, Asset: 2100}, projection.Months[2].Results[1])
	})

	t.Run("should include the base once", func(t *testing.T) {
		f := setupFixture(t)

		projection, err := f.service.Project(f.ctx, []string{scenario.BaseId, f.simId, f.simId})

		require.NoError(t, err)
		assert.Len(t, projection.Scenarios, 2)
	})

	t.Run("should fail for an unknown scenario", func(t *testing.T) {
		f := setupFixture(t)

		_, err := f.service.Project(f.ctx, []string{"unknown"})

		assert.ErrorIs(t, err, scenario.ErrScenarioNotFound)
	})

	t.Run("should recompute after the scenarios changed", func(t *testing.T) {
		// given
		f := setupFixture(t)
		before, err := f.service.Project(f.ctx, nil)
		require.NoError(t, err)

		// when
		_, err = f.scenarios.AddItem(f.ctx, scenario.BaseId, monthly("Gym", 100, budget.Expense))
		require.NoError(t, err)
		after, err := f.service.Project(f.ctx, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(600), before.Months[0].Results[0].Balance)
		assert.Equal(t, int64(500), after.Months[0].Results[0].Balance)
	})
}

func TestServiceImpl_ProjectActuals(t *testing.T) {
	t.Run("should use recorded actuals of the projected scenario and month", func(t *testing.T) {
		// given
		f := setupFixture(t)
		require.NoError(t, f.scenarios.SetMonthlyActual(f.ctx, scenario.MonthlyActual{
			ScenarioId: scenario.BaseId, ItemId: f.rentId, Month: "2026-12", Amount: -450,
		}))

		// when
		projection, err := f.service.Project(f.ctx, []string{f.simId})

		// then
		require.NoError(t, err)
		assert.Equal(t, ScenarioMonth{ScenarioId: scenario.BaseId, Balance: 600, Asset: 600}, projection.Months[0].Results[0])
		assert.Equal(t, ScenarioMonth{ScenarioId: scenario.BaseId, Balance: 550, Asset: 1150}, projection.Months[1].Results[0])
		assert.Equal(t, ScenarioMonth{ScenarioId: f.simId, Balance: 700, Asset: 1400}, projection.Months[1].Results[1])
	})
}

// changingReader hands out its state once and then switches to next, announcing the change
// on the bus before the caller is done with the first state.
type changingReader struct {
	bus     *event_bus.EventBus
	state   scenario.State
	version int64
	next    *scenario.State
}

func (r *changingReader) Snapshot(ctx context.Context) (scenario.State, int64) {
	state, version := r.state, r.version
	if r.next != nil {
		r.state, r.version, r.next = *r.next, r.version+1, nil
		_ = r.bus.Publish(event_bus.NewEvent(ctx, event_bus.ScenarioStateChangedType, event_bus.ScenarioStateChanged{
			Version:   r.version,
			Operation: "update_item",
		}))
	}
	return state, version
}

func TestServiceImpl_ProjectDuringChange(t *testing.T) {
	t.Run("should not serve a projection of a state that changed while computing it", func(t *testing.T) {
		// given
		income := func(amount int64) scenario.State {
			salary := monthly("Salary", amount, budget.Income)
			salary.Id = "s"
			return scenario.NewState("Current", []budget.BudgetItem{salary}, 1)
		}
		bus := event_bus.NewEventBus()
		changed := income(999)
		reader := &changingReader{bus: bus, state: income(100), version: 1, next: &changed}
		clock := &utils.MockClock{}
		clock.SetNow(time.Date(2026, 11, 15, 10, 0, 0, 0, time.UTC))
		service := NewService(reader, clock, bus)

		// when
		during, err := service.Project(context.Background(), nil)
		require.NoError(t, err)
		after, err := service.Project(context.Background(), nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(100), during.Months[0].Results[0].Balance)
		assert.Equal(t, int64(999), after.Months[0].Results[0].Balance)
	})
}

func TestServiceImpl_AnnualComparison(t *testing.T) {
	t.Run("should compare the scenario with the base", func(t *testing.T) {
		f := setupFixture(t)

		balances, err := f.service.AnnualComparison(f.ctx, []string{f.simId})

		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.Equal(t, int64(12000), balances[0].Income)
		assert.Equal(t, int64(4800), balances[0].Expense)
		assert.Equal(t, int64(7200), balances[0].Balance)
		assert.Equal(t, int64(0), balances[0].DifferenceToBase)
		assert.Equal(t, int64(8400), balances[1].Balance)
		assert.Equal(t, int64(1200), balances[1].DifferenceToBase)
	})
}

func TestCsvRendererImpl(t *testing.T) {
	t.Run("should render one row per month", func(t *testing.T) {
		projection := Projection{
			Span:      2,
			Scenarios: []ScenarioRef{{Id: "base", Name: "Current"}, {Id: "s", Name: "Move, cheaper"}},
			Months: []Month{
				{Index: 1, Label: "2026-11", Results: []ScenarioMonth{{"base", 600, 600}, {"s", 700, 700}}},
				{Index: 2, Label: "2026-12", Results: []ScenarioMonth{{"base", -100, 500}, {"s", 0, 700}}},
			},
		}

		csv, err := NewCsvRenderer().RenderProjection(projection)

		require.NoError(t, err)
		assert.Equal(t, strings.Join([]string{
			`Month,Index,Current balance,Current asset,"Move, cheaper balance","Move, cheaper asset"`,
			"2026-11,1,600,600,700,700",
			"2026-12,2,-100,500,0,700",
			"",
		}, "\n"), csv)
	})

	t.Run("should render annual balances", func(t *testing.T) {
		csv, err := NewCsvRenderer().RenderAnnual([]AnnualBalance{
			{Scenario: ScenarioRef{Id: "base", Name: "Current"}, Income: 12000, Expense: 4800, Balance: 7200},
		})

		require.NoError(t, err)
		assert.Equal(t, "Scenario,Income,Expense,Balance,Difference\nCurrent,12000,4800,7200,0\n", csv)
	})
}
