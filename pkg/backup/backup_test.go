package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() scenario.State {
	end := 6
	rent := budget.BudgetItem{Id: "a", Name: "Rent", Amount: 80000, Kind: budget.Expense, Category: "Housing",
		FrequencyKind: budget.Monthly, Interval: 1, StartMonth: 1}
	bonus := budget.BudgetItem{Id: "b", Name: "Bonus", Amount: 200000, Kind: budget.Income,
		FrequencyKind: budget.Custom, Interval: 6, StartMonth: 3, EndMonth: &end}
	cheaper := rent.Clone()
	cheaper.Amount = 60000

	state := scenario.NewState("Current", []budget.BudgetItem{rent, bonus}, 36)
	state.IsPro = true
	state.Scenarios = []scenario.SimScenario{
		{Id: "s1", Name: "Move", Overrides: []budget.BudgetItem{cheaper}, DeletedItemIds: []string{"b"}, ItemOrder: []string{"b", "a"}},
		{Id: "s2", Name: "Nothing"},
	}
	state.Actuals = []scenario.MonthlyActual{
		{ScenarioId: scenario.BaseId, ItemId: "a", Month: "2026-02", Amount: -81000},
		{ScenarioId: "s1", ItemId: "a", Month: "2026-02", Amount: -59000},
	}
	return state
}

func setupService(t *testing.T) (context.Context, *ServiceImpl, *scenario.ServiceImpl) {
	t.Helper()
	ctx := context.Background()
	repo := scenario.NewRepositoryStub()
	require.NoError(t, repo.SaveState(ctx, testState()))
	scenarios := scenario.NewService(repo, nil)
	require.NoError(t, scenarios.Load(ctx, scenario.Defaults{}))
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC))
	return ctx, NewService(scenarios, clock), scenarios
}

func TestServiceImpl_ExportImport(t *testing.T) {
	t.Run("should restore exactly the exported state", func(t *testing.T) {
		// given
		ctx, service, scenarios := setupService(t)
		raw, err := json.Marshal(service.Export(ctx))
		require.NoError(t, err)
		require.NoError(t, scenarios.ReplaceState(ctx, scenario.NewState("Empty", nil, 12)))

		// when
		var doc Document
		require.NoError(t, json.Unmarshal(raw, &doc))
		err = service.Import(ctx, doc)

		// then
		require.NoError(t, err)
		assert.Equal(t, testState(), scenarios.State(ctx))
	})

	t.Run("should write unbounded items with a null end month", func(t *testing.T) {
		ctx, service, _ := setupService(t)

		raw, err := json.Marshal(service.Export(ctx))

		require.NoError(t, err)
		assert.Contains(t, string(raw), `"endMonth":null`)
		assert.Contains(t, string(raw), `"endMonth":6`)
		assert.Contains(t, string(raw), `"frequencyType":"custom"`)
	})

	t.Run("should name the file after the current day", func(t *testing.T) {
		_, service, _ := setupService(t)

		assert.Equal(t, "kawazanyo_backup_2026-03-09.json", service.FileName())
	})
}

func TestToState(t *testing.T) {
	valid := func() Document { return FromState(testState()) }
	tests := []struct {
		name   string
		modify func(doc *Document)
	}{
		{"no scenarios", func(doc *Document) { doc.Scenarios = nil }},
		{"base not first", func(doc *Document) { doc.Scenarios[0], doc.Scenarios[1] = doc.Scenarios[1], doc.Scenarios[0] }},
		{"base with deletions", func(doc *Document) { doc.Scenarios[0].DeletedItemIds = []string{"a"} }},
		{"duplicate scenario", func(doc *Document) { doc.Scenarios[2].Id = "s1" }},
		{"scenario without id", func(doc *Document) { doc.Scenarios[2].Id = "" }},
		{"sim with items", func(doc *Document) { doc.Scenarios[1].Items = doc.Scenarios[0].Items }},
		{"duplicate item", func(doc *Document) { doc.Scenarios[0].Items[1].Id = "a" }},
		{"item without id", func(doc *Document) { doc.Scenarios[1].Overrides[0].Id = "" }},
		{"invalid item", func(doc *Document) { doc.Scenarios[0].Items[0].Type = "gift" }},
		{"item deleted twice", func(doc *Document) { doc.Scenarios[1].DeletedItemIds = []string{"b", "b"} }},
		{"deletion of no base item", func(doc *Document) { doc.Scenarios[2].DeletedItemIds = []string{"x"} }},
		{"actual of unknown scenario", func(doc *Document) { doc.Actuals[0].ScenarioId = "s9" }},
		{"actual without item", func(doc *Document) { doc.Actuals[0].ItemId = "" }},
		{"actual with bad month", func(doc *Document) { doc.Actuals[0].Month = "2026-2" }},
		{"two actuals in one month", func(doc *Document) { doc.Actuals[1].ScenarioId = scenario.BaseId }},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			doc := valid()
			tt.modify(&doc)

			_, err := ToState(doc)

			assert.ErrorIs(t, err, ErrInvalidBackup)
		})
	}

	t.Run("should accept a valid document", func(t *testing.T) {
		state, err := ToState(valid())

		require.NoError(t, err)
		assert.Equal(t, testState(), state)
	})
}

func TestHandler(t *testing.T) {
	t.Run("should download the backup as a file", func(t *testing.T) {
		_, service, _ := setupService(t)
		handler := NewHandler(service)
		w := httptest.NewRecorder()

		handler.Export(w, httptest.NewRequest(http.MethodGet, "/api/backup", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="kawazanyo_backup_2026-03-09.json"`, w.Header().Get("Content-Disposition"))
		var doc Document
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Len(t, doc.Scenarios, 3)
	})

	t.Run("should import a valid backup", func(t *testing.T) {
		ctx, service, scenarios := setupService(t)
		handler := NewHandler(service)
		body := `{"scenarios":[{"id":"base","name":"Fresh","items":[{"id":"x","name":"Salary","amount":1,"type":"income","frequencyType":"monthly","interval":1,"startMonth":1,"endMonth":null}]}],"comparisonSpan":12}`
		w := httptest.NewRecorder()

		handler.Import(w, httptest.NewRequest(http.MethodPost, "/api/backup", strings.NewReader(body)))

		require.Equal(t, http.StatusNoContent, w.Code)
		state := scenarios.State(ctx)
		assert.Equal(t, "Fresh", state.Base.Name)
		assert.Len(t, state.Base.Items, 1)
		assert.Empty(t, state.Scenarios)
		assert.Equal(t, 12, state.ComparisonSpan)
	})

	t.Run("should answer 400 for a scenario deleting an item twice", func(t *testing.T) {
		ctx, service, scenarios := setupService(t)
		handler := NewHandler(service)
		body := `{"scenarios":[{"id":"base","name":"Current","items":[{"id":"b","name":"Food","amount":1,"type":"expense","frequencyType":"monthly","interval":1,"startMonth":1}]},{"id":"s1","name":"Move","deletedItemIds":["b","b"]}],"comparisonSpan":12}`
		w := httptest.NewRecorder()

		handler.Import(w, httptest.NewRequest(http.MethodPost, "/api/backup", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ErrInvalidBackup.Error())
		assert.Equal(t, testState(), scenarios.State(ctx))
	})

	t.Run("should reject malformed backups", func(t *testing.T) {
		_, service, _ := setupService(t)
		handler := NewHandler(service)

		notJson := httptest.NewRecorder()
		handler.Import(notJson, httptest.NewRequest(http.MethodPost, "/api/backup", strings.NewReader("{")))
		noBase := httptest.NewRecorder()
		handler.Import(noBase, httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewBufferString(`{"scenarios":[]}`)))

		assert.Equal(t, http.StatusBadRequest, notJson.Code)
		assert.Equal(t, http.StatusBadRequest, noBase.Code)
		assert.Contains(t, noBase.Body.String(), ErrInvalidBackup.Error())
	})
}
