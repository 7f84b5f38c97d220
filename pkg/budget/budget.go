package budget

type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type FrequencyKind string

const (
	Monthly FrequencyKind = "monthly"
	Yearly  FrequencyKind = "yearly"
	Custom  FrequencyKind = "custom"
)

// BudgetItem is a single recurring income or expense line of a household budget.
type BudgetItem struct {
	Id       string
	Name     string
	Amount   int64
	Kind     Kind
	Category string
	// FrequencyKind together with Interval describes how often the amount occurs.
	FrequencyKind FrequencyKind
	// Interval is the number of months between two occurrences.
	Interval int
	// StartMonth is a 1-based index into the comparison horizon.
	StartMonth int
	// EndMonth is the last month index the item is active in, nil means unbounded.
	EndMonth *int
}

// Clone returns a copy that shares no memory with the receiver.
func (i BudgetItem) Clone() BudgetItem {
	if i.EndMonth != nil {
		end := *i.EndMonth
		i.EndMonth = &end
	}
	return i
}

// Signed returns the amount with income positive and expense negative.
func (i BudgetItem) Signed() int64 {
	if i.Kind == Income {
		return i.Amount
	}
	return -i.Amount
}

// ItemPatch holds the fields to overwrite on an existing item. Nil fields are left untouched.
// The id is not patchable.
type ItemPatch struct {
	Name          *string
	Amount        *int64
	Kind          *Kind
	Category      *string
	FrequencyKind *FrequencyKind
	Interval      *int
	StartMonth    *int
	EndMonth      *int
	// ClearEndMonth makes the item unbounded, it wins over EndMonth.
	ClearEndMonth bool
}

// Apply returns a copy of item with the patch fields written over it.
func (p ItemPatch) Apply(item BudgetItem) BudgetItem {
	result := item.Clone()
	if p.Name != nil {
		result.Name = *p.Name
	}
	if p.Amount != nil {
		result.Amount = *p.Amount
	}
	if p.Kind != nil {
		result.Kind = *p.Kind
	}
	if p.Category != nil {
		result.Category = *p.Category
	}
	if p.FrequencyKind != nil {
		result.FrequencyKind = *p.FrequencyKind
	}
	if p.Interval != nil {
		result.Interval = *p.Interval
	}
	if p.StartMonth != nil {
		result.StartMonth = *p.StartMonth
	}
	if p.EndMonth != nil {
		end := *p.EndMonth
		result.EndMonth = &end
	}
	if p.ClearEndMonth {
		result.EndMonth = nil
	}
	return result
}

// IsEmpty reports whether applying the patch would change nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Kind == nil && p.Category == nil &&
		p.FrequencyKind == nil && p.Interval == nil && p.StartMonth == nil &&
		p.EndMonth == nil && !p.ClearEndMonth
}

// DefaultInterval returns the interval implied by a frequency, 0 for custom.
func DefaultInterval(frequency FrequencyKind) int {
	switch frequency {
	case Monthly:
		return 1
	case Yearly:
		return 12
	default:
		return 0
	}
}

// Seed returns the items the base scenario starts with on a fresh installation.
func Seed(newId func() string) []BudgetItem {
	seed := []struct {
		name     string
		amount   int64
		kind     Kind
		category string
	}{
		{"Salary", 300000, Income, "Salary"},
		{"Rent", 80000, Expense, "Housing"},
		{"Water", 4000, Expense, "Utilities"},
		{"Electricity", 8000, Expense, "Utilities"},
		{"Gas", 5000, Expense, "Utilities"},
		{"Phone & internet", 10000, Expense, "Communication"},
		{"Groceries", 40000, Expense, "Food"},
		{"Household goods", 10000, Expense, "Household goods"},
		{"Medical", 5000, Expense, "Medical"},
		{"Clothing", 10000, Expense, "Clothing"},
		{"Social", 15000, Expense, "Social"},
		{"Miscellaneous", 5000, Expense, "Miscellaneous"},
		{"Transport", 10000, Expense, "Transport"},
		{"Allowance", 30000, Expense, "Allowance"},
	}
	items := make([]BudgetItem, 0, len(seed))
	for _, s := range seed {
		items = append(items, BudgetItem{
			Id:            newId(),
			Name:          s.name,
			Amount:        s.amount,
			Kind:          s.kind,
			Category:      s.category,
			FrequencyKind: Monthly,
			Interval:      1,
			StartMonth:    1,
		})
	}
	return items
}
