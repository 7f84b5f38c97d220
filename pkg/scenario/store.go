package scenario

import (
	"slices"

	"github.com/kawazanyo/kawazanyo/pkg/budget"
)

// The functions in this file are the only way a State changes. Each one returns the next
// state and whether anything changed. Unknown scenario or item ids leave the state as it
// is and report false. Inputs are never modified: every touched branch is rebuilt.

// AddItem adds draft under newId. On the base it becomes a base item, on a sim scenario it
// becomes a scenario-only override.
func AddItem(state State, scenarioId string, draft budget.BudgetItem, newId string) (State, bool) {
	if newId == "" || state.hasItemId(newId) {
		return state, false
	}
	item := draft.Clone()
	item.Id = newId

	if scenarioId == BaseId {
		state.Base.Items = appendCopy(state.Base.Items, item)
		return state, true
	}
	return updateSim(state, scenarioId, func(sim SimScenario) (SimScenario, bool) {
		sim.Overrides = appendCopy(sim.Overrides, item)
		return sim, true
	})
}

// UpdateItem writes patch over an item. Inside a sim scenario the first edit of a base item
// stores the full patched base record as an override.
func UpdateItem(state State, scenarioId, itemId string, patch budget.ItemPatch) (State, bool) {
	if patch.IsEmpty() {
		return state, false
	}
	if scenarioId == BaseId {
		items, ok := replaceItem(state.Base.Items, itemId, patch.Apply)
		if !ok {
			return state, false
		}
		state.Base.Items = items
		return state, true
	}

	baseItem, inBase := findItem(state.Base.Items, itemId)
	return updateSim(state, scenarioId, func(sim SimScenario) (SimScenario, bool) {
		if overrides, ok := replaceItem(sim.Overrides, itemId, patch.Apply); ok {
			sim.Overrides = overrides
			return sim, true
		}
		if !inBase {
			return sim, false
		}
		sim.Overrides = appendCopy(sim.Overrides, patch.Apply(baseItem))
		return sim, true
	})
}

// RemoveItem deletes an item. A base item is removed for good, together with every
// scenario's override of it and deletion mark for it. Inside a sim scenario a scenario-only
// item is dropped, while a base item gets marked deleted and loses its override.
func RemoveItem(state State, scenarioId, itemId string) (State, bool) {
	if scenarioId == BaseId {
		items, ok := removeItem(state.Base.Items, itemId)
		if !ok {
			return state, false
		}
		state.Base.Items = items
		state.Scenarios = forgetBaseItem(state.Scenarios, itemId)
		state.Actuals = dropActuals(state.Actuals, func(actual MonthlyActual) bool {
			return actual.ItemId == itemId
		})
		return state, true
	}

	_, inBase := findItem(state.Base.Items, itemId)
	next, changed := updateSim(state, scenarioId, func(sim SimScenario) (SimScenario, bool) {
		changed := false
		if overrides, ok := removeItem(sim.Overrides, itemId); ok {
			sim.Overrides = overrides
			changed = true
		}
		if inBase && !slices.Contains(sim.DeletedItemIds, itemId) {
			sim.DeletedItemIds = appendCopy(sim.DeletedItemIds, itemId)
			changed = true
		}
		return sim, changed
	})
	if changed && !inBase {
		// A scenario-only item is gone for good, a deleted base item can still be restored.
		next.Actuals = dropActuals(next.Actuals, func(actual MonthlyActual) bool {
			return actual.ScenarioId == scenarioId && actual.ItemId == itemId
		})
	}
	return next, changed
}

// RestoreItem unmarks a deleted base item. The item comes back with its current override,
// if any, else with its base value. The base scenario has nothing to restore.
func RestoreItem(state State, scenarioId, itemId string) (State, bool) {
	if scenarioId == BaseId {
		return state, false
	}
	return updateSim(state, scenarioId, func(sim SimScenario) (SimScenario, bool) {
		if !slices.Contains(sim.DeletedItemIds, itemId) {
			return sim, false
		}
		sim.DeletedItemIds = slices.DeleteFunc(slices.Clone(sim.DeletedItemIds), func(id string) bool {
			return id == itemId
		})
		return sim, true
	})
}

// ReorderItems physically reorders the base items, appending the ones missing from ids. For
// a sim scenario it only records ids as the display order.
func ReorderItems(state State, scenarioId string, ids []string) (State, bool) {
	if scenarioId == BaseId {
		reordered := applyOrder(slices.Clone(state.Base.Items), ids, func(item budget.BudgetItem) string { return item.Id })
		if sameOrder(reordered, state.Base.Items) {
			return state, false
		}
		state.Base.Items = reordered
		return state, true
	}
	return updateSim(state, scenarioId, func(sim SimScenario) (SimScenario, bool) {
		if slices.Equal(sim.ItemOrder, ids) {
			return sim, false
		}
		sim.ItemOrder = slices.Clone(ids)
		return sim, true
	})
}

// AddScenario creates an empty sim scenario.
func AddScenario(state State, name, newId string) (State, bool) {
	if newId == "" || newId == BaseId || state.simIndex(newId) != -1 {
		return state, false
	}
	state.Scenarios = appendCopy(state.Scenarios, SimScenario{Id: newId, Name: name})
	return state, true
}

// RemoveScenario drops a sim scenario with all its changes. The base is permanent.
func RemoveScenario(state State, id string) (State, bool) {
	idx := state.simIndex(id)
	if idx == -1 {
		return state, false
	}
	state.Scenarios = slices.Delete(slices.Clone(state.Scenarios), idx, idx+1)
	state.Actuals = dropActuals(state.Actuals, func(actual MonthlyActual) bool {
		return actual.ScenarioId == id
	})
	return state, true
}

// RenameScenario renames any scenario, the base included.
func RenameScenario(state State, id, name string) (State, bool) {
	if id == BaseId {
		if state.Base.Name == name {
			return state, false
		}
		state.Base.Name = name
		return state, true
	}
	return updateSim(state, id, func(sim SimScenario) (SimScenario, bool) {
		if sim.Name == name {
			return sim, false
		}
		sim.Name = name
		return sim, true
	})
}

// SetComparisonSpan sets the number of months projections cover. Spans below one are ignored.
func SetComparisonSpan(state State, span int) (State, bool) {
	if span < 1 || span == state.ComparisonSpan {
		return state, false
	}
	state.ComparisonSpan = span
	return state, true
}

func SetPro(state State, isPro bool) (State, bool) {
	if state.IsPro == isPro {
		return state, false
	}
	state.IsPro = isPro
	return state, true
}

// SetMonthlyActual records what was really booked for an item in a month, replacing an
// earlier record of the same month. The item must be part of the scenario.
func SetMonthlyActual(state State, actual MonthlyActual) (State, bool) {
	if !ValidMonth(actual.Month) {
		return state, false
	}
	sc, ok := state.Scenario(actual.ScenarioId)
	if !ok {
		return state, false
	}
	items := ResolveEffectiveItems(state.Base, sc)
	if _, ok := findItem(items, actual.ItemId); !ok {
		return state, false
	}

	idx := slices.IndexFunc(state.Actuals, actual.sameSlot)
	if idx == -1 {
		state.Actuals = appendCopy(state.Actuals, actual)
		return state, true
	}
	if state.Actuals[idx] == actual {
		return state, false
	}
	actuals := slices.Clone(state.Actuals)
	actuals[idx] = actual
	state.Actuals = actuals
	return state, true
}

// ClearMonthlyActual removes the record of an item in a month, so the planned amount counts again.
func ClearMonthlyActual(state State, scenarioId, itemId, month string) (State, bool) {
	slot := MonthlyActual{ScenarioId: scenarioId, ItemId: itemId, Month: month}
	if !slices.ContainsFunc(state.Actuals, slot.sameSlot) {
		return state, false
	}
	state.Actuals = dropActuals(state.Actuals, slot.sameSlot)
	return state, true
}

func updateSim(state State, id string, fn func(SimScenario) (SimScenario, bool)) (State, bool) {
	idx := state.simIndex(id)
	if idx == -1 {
		return state, false
	}
	updated, changed := fn(state.Scenarios[idx])
	if !changed {
		return state, false
	}
	scenarios := slices.Clone(state.Scenarios)
	scenarios[idx] = updated
	state.Scenarios = scenarios
	return state, true
}

// forgetBaseItem removes every reference to a base item that no longer exists, so a former
// override does not resurface as a scenario-only item.
func forgetBaseItem(scenarios []SimScenario, itemId string) []SimScenario {
	result := make([]SimScenario, 0, len(scenarios))
	for _, sim := range scenarios {
		if overrides, ok := removeItem(sim.Overrides, itemId); ok {
			sim.Overrides = overrides
		}
		if slices.Contains(sim.DeletedItemIds, itemId) {
			sim.DeletedItemIds = slices.DeleteFunc(slices.Clone(sim.DeletedItemIds), func(id string) bool {
				return id == itemId
			})
		}
		result = append(result, sim)
	}
	return result
}

// dropActuals returns actuals without the matching ones. The input is returned as is when
// nothing matches.
func dropActuals(actuals []MonthlyActual, match func(MonthlyActual) bool) []MonthlyActual {
	if !slices.ContainsFunc(actuals, match) {
		return actuals
	}
	return slices.DeleteFunc(slices.Clone(actuals), match)
}

func (s State) hasItemId(id string) bool {
	if _, ok := findItem(s.Base.Items, id); ok {
		return true
	}
	for _, sim := range s.Scenarios {
		if _, ok := findItem(sim.Overrides, id); ok {
			return true
		}
	}
	return false
}

func findItem(items []budget.BudgetItem, id string) (budget.BudgetItem, bool) {
	for _, item := range items {
		if item.Id == id {
			return item, true
		}
	}
	return budget.BudgetItem{}, false
}

func replaceItem(items []budget.BudgetItem, id string, fn func(budget.BudgetItem) budget.BudgetItem) ([]budget.BudgetItem, bool) {
	idx := slices.IndexFunc(items, func(item budget.BudgetItem) bool { return item.Id == id })
	if idx == -1 {
		return items, false
	}
	result := slices.Clone(items)
	result[idx] = fn(items[idx])
	return result, true
}

func removeItem(items []budget.BudgetItem, id string) ([]budget.BudgetItem, bool) {
	if !slices.ContainsFunc(items, func(item budget.BudgetItem) bool { return item.Id == id }) {
		return items, false
	}
	return slices.DeleteFunc(slices.Clone(items), func(item budget.BudgetItem) bool { return item.Id == id }), true
}

func sameOrder(a, b []budget.BudgetItem) bool {
	return slices.EqualFunc(a, b, func(x, y budget.BudgetItem) bool { return x.Id == y.Id })
}

func appendCopy[T any](list []T, value T) []T {
	result := make([]T, 0, len(list)+1)
	result = append(result, list...)
	return append(result, value)
}
