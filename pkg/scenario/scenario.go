package scenario

import (
	"time"

	"github.com/kawazanyo/kawazanyo/pkg/budget"
)

// BaseId is the fixed id of the base scenario.
const BaseId = "base"

const DefaultComparisonSpan = 24

// Scenario is either a BaseScenario or a SimScenario.
type Scenario interface {
	ScenarioId() string
	ScenarioName() string
	isScenario()
}

// BaseScenario owns the authoritative item list. It is the only scenario whose items are
// stored directly.
type BaseScenario struct {
	Id    string
	Name  string
	Items []budget.BudgetItem
}

// SimScenario is a what-if plan stored as a change-set against the base.
type SimScenario struct {
	Id   string
	Name string
	// Overrides replace base items with the same id, overrides with a novel id are additions.
	Overrides []budget.BudgetItem
	// DeletedItemIds hides base items in this scenario.
	DeletedItemIds []string
	// ItemOrder is an optional, possibly partial, display order. Ids that no longer resolve
	// to an item are ignored.
	ItemOrder []string
}

// MonthlyActual is the amount really booked for an item of a scenario in one calendar
// month. It replaces the planned amount of that item in that month.
type MonthlyActual struct {
	ScenarioId string
	ItemId     string
	// Month is the calendar month as YYYY-MM.
	Month string
	// Amount is signed, income positive and expenses negative.
	Amount int64
}

func (a MonthlyActual) sameSlot(other MonthlyActual) bool {
	return a.ScenarioId == other.ScenarioId && a.ItemId == other.ItemId && a.Month == other.Month
}

const monthLayout = "2006-01"

// ValidMonth reports whether month is a calendar month written as YYYY-MM.
func ValidMonth(month string) bool {
	_, err := time.Parse(monthLayout, month)
	return err == nil
}

func (b BaseScenario) ScenarioId() string   { return b.Id }
func (b BaseScenario) ScenarioName() string { return b.Name }
func (BaseScenario) isScenario()            {}

func (s SimScenario) ScenarioId() string   { return s.Id }
func (s SimScenario) ScenarioName() string { return s.Name }
func (SimScenario) isScenario()            {}

// State is one immutable snapshot of everything the user edits. Reducers in store.go never
// modify a State, they return a new one.
type State struct {
	Base      BaseScenario
	Scenarios []SimScenario
	// Actuals are kept in the order they were first recorded.
	Actuals        []MonthlyActual
	ComparisonSpan int
	IsPro          bool
}

// NewState creates the initial state with a base scenario holding items.
func NewState(baseName string, items []budget.BudgetItem, comparisonSpan int) State {
	if comparisonSpan < 1 {
		comparisonSpan = DefaultComparisonSpan
	}
	return State{
		Base:           BaseScenario{Id: BaseId, Name: baseName, Items: items},
		ComparisonSpan: comparisonSpan,
	}
}

// Scenario returns the scenario with the given id.
func (s State) Scenario(id string) (Scenario, bool) {
	if id == BaseId {
		return s.Base, true
	}
	idx := s.simIndex(id)
	if idx == -1 {
		return nil, false
	}
	return s.Scenarios[idx], true
}

// List returns all scenarios, base first.
func (s State) List() []Scenario {
	list := make([]Scenario, 0, len(s.Scenarios)+1)
	list = append(list, s.Base)
	for _, sim := range s.Scenarios {
		list = append(list, sim)
	}
	return list
}

func (s State) simIndex(id string) int {
	for idx, sim := range s.Scenarios {
		if sim.Id == id {
			return idx
		}
	}
	return -1
}
