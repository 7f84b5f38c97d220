package budget

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func validItem() BudgetItem {
	return BudgetItem{
		Id:            "1",
		Name:          "Rent",
		Amount:        80000,
		Kind:          Expense,
		Category:      "Housing",
		FrequencyKind: Monthly,
		Interval:      1,
		StartMonth:    1,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(i *BudgetItem)
		want   error
	}{
		{"valid monthly item", func(i *BudgetItem) {}, nil},
		{"valid yearly item", func(i *BudgetItem) { i.FrequencyKind = Yearly; i.Interval = 12 }, nil},
		{"valid custom item", func(i *BudgetItem) { i.FrequencyKind = Custom; i.Interval = 3 }, nil},
		{"zero amount is allowed", func(i *BudgetItem) { i.Amount = 0 }, nil},
		{"bounded item", func(i *BudgetItem) { i.StartMonth = 3; i.EndMonth = ptr(3) }, nil},
		{"blank name", func(i *BudgetItem) { i.Name = "  " }, ErrEmptyName},
		{"negative amount", func(i *BudgetItem) { i.Amount = -1 }, ErrNegativeAmount},
		{"unknown kind", func(i *BudgetItem) { i.Kind = "gift" }, ErrInvalidKind},
		{"unknown frequency", func(i *BudgetItem) { i.FrequencyKind = "weekly" }, ErrInvalidFrequency},
		{"interval below one", func(i *BudgetItem) { i.FrequencyKind = Custom; i.Interval = 0 }, ErrInvalidInterval},
		{"monthly with interval 2", func(i *BudgetItem) { i.Interval = 2 }, ErrIntervalMismatch},
		{"yearly with interval 1", func(i *BudgetItem) { i.FrequencyKind = Yearly }, ErrIntervalMismatch},
		{"start month zero", func(i *BudgetItem) { i.StartMonth = 0 }, ErrInvalidStartMonth},
		{"end before start", func(i *BudgetItem) { i.StartMonth = 5; i.EndMonth = ptr(4) }, ErrEndBeforeStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.modify(&item)
			assert.ErrorIs(t, Validate(item), tt.want)
		})
	}
}

func TestValidatePatch(t *testing.T) {
	t.Run("should accept an empty patch", func(t *testing.T) {
		assert.NoError(t, ValidatePatch(ItemPatch{}))
	})

	t.Run("should reject interval mismatch when both fields are present", func(t *testing.T) {
		err := ValidatePatch(ItemPatch{FrequencyKind: ptr(Yearly), Interval: ptr(6)})
		assert.ErrorIs(t, err, ErrIntervalMismatch)
	})

	t.Run("should reject a negative amount", func(t *testing.T) {
		assert.ErrorIs(t, ValidatePatch(ItemPatch{Amount: ptr(int64(-5))}), ErrNegativeAmount)
	})

	t.Run("should ignore end month when it is cleared", func(t *testing.T) {
		err := ValidatePatch(ItemPatch{StartMonth: ptr(5), EndMonth: ptr(1), ClearEndMonth: true})
		assert.NoError(t, err)
	})
}

func TestItemPatch_Apply(t *testing.T) {
	t.Run("should overwrite only present fields", func(t *testing.T) {
		// given
		item := validItem()

		// when
		result := ItemPatch{Amount: ptr(int64(999)), EndMonth: ptr(12)}.Apply(item)

		// then
		assert.Equal(t, int64(999), result.Amount)
		assert.Equal(t, "Rent", result.Name)
		assert.Equal(t, 12, *result.EndMonth)
		assert.Nil(t, item.EndMonth, "original item must stay untouched")
	})

	t.Run("should clear the end month", func(t *testing.T) {
		item := validItem()
		item.EndMonth = ptr(6)

		result := ItemPatch{ClearEndMonth: true}.Apply(item)

		assert.Nil(t, result.EndMonth)
		assert.Equal(t, 6, *item.EndMonth)
	})

	t.Run("should not share the end month pointer with the source", func(t *testing.T) {
		item := validItem()
		item.EndMonth = ptr(6)

		result := ItemPatch{Name: ptr("Mortgage")}.Apply(item)
		*result.EndMonth = 7

		assert.Equal(t, 6, *item.EndMonth)
	})
}

func TestBudgetItem_Signed(t *testing.T) {
	item := validItem()
	assert.Equal(t, int64(-80000), item.Signed())
	item.Kind = Income
	assert.Equal(t, int64(80000), item.Signed())
}

func TestSeed(t *testing.T) {
	next := 0
	items := Seed(func() string {
		next++
		return strconv.Itoa(next)
	})

	assert.Len(t, items, 14)
	assert.Equal(t, "1", items[0].Id)
	assert.Equal(t, Income, items[0].Kind)
	for _, item := range items {
		assert.NoError(t, Validate(item), item.Name)
	}
}
