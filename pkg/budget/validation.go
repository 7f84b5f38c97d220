package budget

import (
	"errors"
	"strings"
)

var (
	ErrEmptyName         = errors.New("name cannot be empty")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrInvalidKind       = errors.New("kind must be income or expense")
	ErrInvalidFrequency  = errors.New("frequency must be monthly, yearly or custom")
	ErrInvalidInterval   = errors.New("interval must be at least 1")
	ErrIntervalMismatch  = errors.New("interval does not match frequency")
	ErrInvalidStartMonth = errors.New("start month must be at least 1")
	ErrEndBeforeStart    = errors.New("end month cannot be before start month")
)

// Validate checks a complete item as submitted by the editor. The merge engine assumes
// items passed this check and never validates again.
func Validate(item BudgetItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return ErrEmptyName
	}
	if item.Amount < 0 {
		return ErrNegativeAmount
	}
	if item.Kind != Income && item.Kind != Expense {
		return ErrInvalidKind
	}
	if err := validateRecurrence(item.FrequencyKind, item.Interval); err != nil {
		return err
	}
	if item.StartMonth < 1 {
		return ErrInvalidStartMonth
	}
	if item.EndMonth != nil && *item.EndMonth < item.StartMonth {
		return ErrEndBeforeStart
	}
	return nil
}

// ValidatePatch checks the fields present in a patch on their own. Cross-field rules that
// need the patched record are checked by Validate on the result.
func ValidatePatch(patch ItemPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ErrEmptyName
	}
	if patch.Amount != nil && *patch.Amount < 0 {
		return ErrNegativeAmount
	}
	if patch.Kind != nil && *patch.Kind != Income && *patch.Kind != Expense {
		return ErrInvalidKind
	}
	if patch.FrequencyKind != nil {
		switch *patch.FrequencyKind {
		case Monthly, Yearly, Custom:
		default:
			return ErrInvalidFrequency
		}
	}
	if patch.Interval != nil && *patch.Interval < 1 {
		return ErrInvalidInterval
	}
	if patch.FrequencyKind != nil && patch.Interval != nil {
		if err := validateRecurrence(*patch.FrequencyKind, *patch.Interval); err != nil {
			return err
		}
	}
	if patch.StartMonth != nil && *patch.StartMonth < 1 {
		return ErrInvalidStartMonth
	}
	if patch.StartMonth != nil && patch.EndMonth != nil && !patch.ClearEndMonth && *patch.EndMonth < *patch.StartMonth {
		return ErrEndBeforeStart
	}
	return nil
}

func validateRecurrence(frequency FrequencyKind, interval int) error {
	switch frequency {
	case Monthly, Yearly, Custom:
	default:
		return ErrInvalidFrequency
	}
	if interval < 1 {
		return ErrInvalidInterval
	}
	if want := DefaultInterval(frequency); want != 0 && interval != want {
		return ErrIntervalMismatch
	}
	return nil
}
