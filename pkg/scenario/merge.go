package scenario

import (
	"slices"

	"github.com/kawazanyo/kawazanyo/pkg/budget"
)

type Provenance string

const (
	ProvenanceBase     Provenance = "base"
	ProvenanceModified Provenance = "modified"
	ProvenanceAdded    Provenance = "added"
	ProvenanceDeleted  Provenance = "deleted"
)

// AnnotatedItem is an item of a scenario together with where it came from.
// Original is only set for modified items and holds the unmodified base record.
type AnnotatedItem struct {
	Item       budget.BudgetItem
	Provenance Provenance
	Original   *budget.BudgetItem
}

// ResolveEffectiveItems returns the items a scenario consists of, in display order.
// Deleted base items are left out, overridden ones are replaced as a whole and
// scenario-only items follow the base items. The result never contains an id twice.
func ResolveEffectiveItems(base BaseScenario, scenario Scenario) []budget.BudgetItem {
	switch s := scenario.(type) {
	case BaseScenario:
		return cloneItems(s.Items)
	case SimScenario:
		annotated := resolve(base, s)
		items := make([]budget.BudgetItem, 0, len(annotated))
		for _, entry := range annotated {
			if entry.Provenance == ProvenanceDeleted {
				continue
			}
			items = append(items, entry.Item)
		}
		return items
	default:
		return nil
	}
}

// ResolveAnnotatedItems returns every item of a scenario tagged with its provenance. Unlike
// ResolveEffectiveItems, deleted base items are kept and tagged deleted. Deletion wins over
// an override of the same id.
func ResolveAnnotatedItems(base BaseScenario, scenario Scenario) []AnnotatedItem {
	switch s := scenario.(type) {
	case BaseScenario:
		result := make([]AnnotatedItem, 0, len(s.Items))
		for _, item := range s.Items {
			result = append(result, AnnotatedItem{Item: item.Clone(), Provenance: ProvenanceBase})
		}
		return result
	case SimScenario:
		return resolve(base, s)
	default:
		return nil
	}
}

func resolve(base BaseScenario, sim SimScenario) []AnnotatedItem {
	deleted := make(map[string]struct{}, len(sim.DeletedItemIds))
	for _, id := range sim.DeletedItemIds {
		deleted[id] = struct{}{}
	}
	overrides := make(map[string]budget.BudgetItem, len(sim.Overrides))
	for _, override := range sim.Overrides {
		if _, exists := overrides[override.Id]; !exists {
			overrides[override.Id] = override
		}
	}

	result := make([]AnnotatedItem, 0, len(base.Items)+len(sim.Overrides))
	seen := make(map[string]struct{}, len(base.Items)+len(sim.Overrides))
	for _, baseItem := range base.Items {
		if _, dup := seen[baseItem.Id]; dup {
			continue
		}
		seen[baseItem.Id] = struct{}{}

		if _, isDeleted := deleted[baseItem.Id]; isDeleted {
			result = append(result, AnnotatedItem{Item: baseItem.Clone(), Provenance: ProvenanceDeleted})
			continue
		}
		if override, ok := overrides[baseItem.Id]; ok {
			original := baseItem.Clone()
			result = append(result, AnnotatedItem{Item: override.Clone(), Provenance: ProvenanceModified, Original: &original})
			continue
		}
		result = append(result, AnnotatedItem{Item: baseItem.Clone(), Provenance: ProvenanceBase})
	}

	for _, override := range sim.Overrides {
		if _, dup := seen[override.Id]; dup {
			continue
		}
		seen[override.Id] = struct{}{}
		result = append(result, AnnotatedItem{Item: override.Clone(), Provenance: ProvenanceAdded})
	}

	return applyOrder(result, sim.ItemOrder, func(entry AnnotatedItem) string { return entry.Item.Id })
}

// applyOrder stable-sorts entries by the position of their id in order. Ids missing from
// order rank after all ordered ones and keep their relative order. Only the first
// occurrence of a repeated id in order counts.
func applyOrder[T any](entries []T, order []string, idOf func(T) string) []T {
	if len(order) == 0 {
		return entries
	}
	rank := make(map[string]int, len(order))
	for pos, id := range order {
		if _, exists := rank[id]; !exists {
			rank[id] = pos
		}
	}
	unranked := len(order)
	rankOf := func(entry T) int {
		if r, ok := rank[idOf(entry)]; ok {
			return r
		}
		return unranked
	}
	slices.SortStableFunc(entries, func(a, b T) int {
		return rankOf(a) - rankOf(b)
	})
	return entries
}

func cloneItems(items []budget.BudgetItem) []budget.BudgetItem {
	result := make([]budget.BudgetItem, 0, len(items))
	for _, item := range items {
		result = append(result, item.Clone())
	}
	return result
}
