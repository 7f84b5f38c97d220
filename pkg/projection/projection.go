package projection

import (
	"github.com/kawazanyo/kawazanyo/pkg/budget"
)

// ScenarioRef names one column group of a projection.
type ScenarioRef struct {
	Id   string
	Name string
}

// ScenarioMonth is the result of one scenario in one month.
type ScenarioMonth struct {
	ScenarioId string
	// Balance is income minus expenses of the month.
	Balance int64
	// Asset is the sum of all balances up to and including the month.
	Asset int64
}

type Month struct {
	// Index is the 1-based position in the horizon, the current month is 1.
	Index int
	// Label is the calendar month as YYYY-MM.
	Label   string
	Results []ScenarioMonth
}

// Projection is the monthly cash flow of some scenarios over the comparison span.
type Projection struct {
	Span      int
	Scenarios []ScenarioRef
	Months    []Month
}

// AnnualBalance sums one year of a scenario.
type AnnualBalance struct {
	Scenario ScenarioRef
	Income   int64
	Expense  int64
	Balance  int64
	// DifferenceToBase is Balance minus the base scenario's Balance.
	DifferenceToBase int64
}

// Occurs reports whether item has an occurrence in horizon month m.
func Occurs(item budget.BudgetItem, m int) bool {
	if m < item.StartMonth {
		return false
	}
	if item.EndMonth != nil && m > *item.EndMonth {
		return false
	}
	interval := item.Interval
	if interval < 1 {
		interval = 1
	}
	return (m-item.StartMonth)%interval == 0
}

// MonthlyBalance is the signed sum of the items occurring in month m. actuals maps item
// ids to what was really booked in that month and wins over the planned amount, also in
// months the item is not planned for.
func MonthlyBalance(items []budget.BudgetItem, m int, actuals map[string]int64) int64 {
	var sum int64
	for _, item := range items {
		if actual, ok := actuals[item.Id]; ok {
			sum += actual
			continue
		}
		if Occurs(item, m) {
			sum += item.Signed()
		}
	}
	return sum
}

// AnnualAmount is the unsigned amount of item over twelve months, ignoring its start and
// end month. Custom intervals are rounded down.
func AnnualAmount(item budget.BudgetItem) int64 {
	switch item.FrequencyKind {
	case budget.Monthly:
		return item.Amount * 12
	case budget.Yearly:
		return item.Amount
	default:
		if item.Interval < 1 {
			return item.Amount * 12
		}
		return item.Amount * 12 / int64(item.Interval)
	}
}

// Annual sums the annual amounts of items into income, expense and balance.
func Annual(ref ScenarioRef, items []budget.BudgetItem) AnnualBalance {
	result := AnnualBalance{Scenario: ref}
	for _, item := range items {
		amount := AnnualAmount(item)
		if item.Kind == budget.Income {
			result.Income += amount
		} else {
			result.Expense += amount
		}
	}
	result.Balance = result.Income - result.Expense
	return result
}
