package scenario

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kawazanyo/kawazanyo/internal/rest"
	"github.com/kawazanyo/kawazanyo/pkg/budget"
	log "github.com/sirupsen/logrus"
)

type ScenarioDTO struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	OverrideCount  int      `json:"overrideCount"`
	DeletedItemIds []string `json:"deletedItemIds,omitempty"`
	ItemOrder      []string `json:"itemOrder,omitempty"`
}

type ScenarioNameDTO struct {
	Name string `json:"name"`
}

type AnnotatedItemDTO struct {
	Item       budget.ItemDTO  `json:"item"`
	Provenance string          `json:"provenance"`
	Original   *budget.ItemDTO `json:"original,omitempty"`
}

type OrderDTO struct {
	ItemIds []string `json:"itemIds"`
}

type SettingsDTO struct {
	ComparisonSpan int  `json:"comparisonSpan"`
	IsPro          bool `json:"isPro"`
}

type ActualDTO struct {
	ScenarioId string `json:"scenarioId"`
	ItemId     string `json:"itemId"`
	Month      string `json:"month"`
	// Amount is signed, expenses are negative.
	Amount int64 `json:"amount"`
}

// ActualAmountDTO carries the booked amount as entered, without sign.
type ActualAmountDTO struct {
	Amount int64 `json:"amount"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListScenarios godoc
// @Summary List scenarios
// @Description Get the base scenario followed by all what-if scenarios
// @Tags Scenario
// @Produce json
// @Success 200 {array} ScenarioDTO
// @Router /api/scenario [get]
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing scenarios")
	scenarios := h.service.ListScenarios(r.Context())
	result := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		result = append(result, scenarioToDTO(s))
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

// AddScenario godoc
// @Summary Create a scenario
// @Description Create an empty what-if scenario on top of the base
// @Tags Scenario
// @Accept json
// @Produce json
// @Param scenario body ScenarioNameDTO true "Scenario name"
// @Success 201 {object} ScenarioDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/scenario [post]
func (h *Handler) AddScenario(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding scenario")
	name, ok := decodeName(w, r)
	if !ok {
		return
	}
	sim, err := h.service.AddScenario(r.Context(), name)
	if err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, scenarioToDTO(sim))
}

// RenameScenario godoc
// @Summary Rename a scenario
// @Tags Scenario
// @Accept json
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Param scenario body ScenarioNameDTO true "Scenario name"
// @Success 200 {object} ScenarioDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId} [put]
func (h *Handler) RenameScenario(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Renaming scenario %s", scenarioId)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	name, ok := decodeName(w, r)
	if !ok {
		return
	}
	if err := h.service.RenameScenario(r.Context(), scenarioId, name); err != nil {
		handleError(w, err)
		return
	}
	h.writeScenario(w, r, scenarioId)
}

// RemoveScenario godoc
// @Summary Delete a scenario
// @Description Delete a what-if scenario with all its changes. The base cannot be deleted.
// @Tags Scenario
// @Param scenarioId path string true "Scenario ID"
// @Success 204
// @Failure 400 {object} rest.ErrorResponse "The base scenario cannot be deleted"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId} [delete]
func (h *Handler) RemoveScenario(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Removing scenario %s", scenarioId)
	if scenarioId == BaseId {
		rest.WriteError(w, http.StatusBadRequest, "The base scenario cannot be deleted", "")
		return
	}
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	if err := h.service.RemoveScenario(r.Context(), scenarioId); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetItems godoc
// @Summary Effective items of a scenario
// @Description Items after applying deletions, overrides, additions and the display order
// @Tags Scenario
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Success 200 {array} budget.ItemDTO
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/items [get]
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Getting items of scenario %s", scenarioId)
	items, err := h.service.EffectiveItems(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budget.ItemsToDTO(items))
}

// GetAnnotatedItems godoc
// @Summary Annotated items of a scenario
// @Description Every item tagged base, modified, added or deleted
// @Tags Scenario
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Success 200 {array} AnnotatedItemDTO
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/annotated [get]
func (h *Handler) GetAnnotatedItems(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Getting annotated items of scenario %s", scenarioId)
	items, err := h.service.AnnotatedItems(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	result := make([]AnnotatedItemDTO, 0, len(items))
	for _, entry := range items {
		dto := AnnotatedItemDTO{Item: budget.ItemToDTO(entry.Item), Provenance: string(entry.Provenance)}
		if entry.Original != nil {
			original := budget.ItemToDTO(*entry.Original)
			dto.Original = &original
		}
		result = append(result, dto)
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

// AddItem godoc
// @Summary Add an item
// @Description Add a base item, or a scenario-only item to a what-if scenario
// @Tags Scenario
// @Accept json
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Param item body budget.ItemDTO true "Item"
// @Success 201 {object} budget.ItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid item"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/item [post]
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Adding item to scenario %s", scenarioId)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	var dto budget.ItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	draft := budget.DTOToItem(dto)
	if err := budget.Validate(draft); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid item", err.Error())
		return
	}
	added, err := h.service.AddItem(r.Context(), scenarioId, draft)
	if err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, budget.ItemToDTO(added))
}

// UpdateItem godoc
// @Summary Update an item
// @Description Partially update an item. Inside a what-if scenario the first edit of a base item creates an override.
// @Tags Scenario
// @Accept json
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Param itemId path string true "Item ID"
// @Param patch body budget.ItemPatchDTO true "Fields to change"
// @Success 200 {object} budget.ItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid patch"
// @Failure 404 {object} rest.ErrorResponse "Scenario or item not found"
// @Router /api/scenario/{scenarioId}/item/{itemId} [patch]
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioId, itemId := vars["scenarioId"], vars["itemId"]
	log.Debugf("Updating item %s of scenario %s", itemId, scenarioId)

	var dto budget.ItemPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	patch, err := budget.DTOToPatch(dto)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid patch", err.Error())
		return
	}
	if err := budget.ValidatePatch(patch); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid patch", err.Error())
		return
	}

	// Deleted items are editable too, the change shows once they are restored.
	items, err := h.service.AnnotatedItems(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	idx := slices.IndexFunc(items, func(entry AnnotatedItem) bool { return entry.Item.Id == itemId })
	if idx == -1 {
		rest.WriteError(w, http.StatusNotFound, "Item not found", itemId)
		return
	}
	patched := patch.Apply(items[idx].Item)
	if err := budget.Validate(patched); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid patch", err.Error())
		return
	}

	if err := h.service.UpdateItem(r.Context(), scenarioId, itemId, patch); err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budget.ItemToDTO(patched))
}

// RemoveItem godoc
// @Summary Delete an item
// @Description Remove a base item for good, or hide it inside a what-if scenario
// @Tags Scenario
// @Param scenarioId path string true "Scenario ID"
// @Param itemId path string true "Item ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/item/{itemId} [delete]
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioId, itemId := vars["scenarioId"], vars["itemId"]
	log.Debugf("Removing item %s of scenario %s", itemId, scenarioId)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	if err := h.service.RemoveItem(r.Context(), scenarioId, itemId); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreItem godoc
// @Summary Restore a deleted item
// @Description Bring back a base item that was deleted inside a what-if scenario
// @Tags Scenario
// @Param scenarioId path string true "Scenario ID"
// @Param itemId path string true "Item ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/item/{itemId}/restore [post]
func (h *Handler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioId, itemId := vars["scenarioId"], vars["itemId"]
	log.Debugf("Restoring item %s of scenario %s", itemId, scenarioId)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	if err := h.service.RestoreItem(r.Context(), scenarioId, itemId); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderItems godoc
// @Summary Set the display order
// @Description Reorder the base items, or store the display order of a what-if scenario
// @Tags Scenario
// @Accept json
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Param order body OrderDTO true "Item ids in display order"
// @Success 200 {array} budget.ItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/order [put]
func (h *Handler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Reordering items of scenario %s", scenarioId)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	var dto OrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if err := h.service.ReorderItems(r.Context(), scenarioId, dto.ItemIds); err != nil {
		handleError(w, err)
		return
	}
	h.GetItems(w, r)
}

// GetActuals godoc
// @Summary List recorded actuals
// @Description Get the amounts really booked for the items of a scenario
// @Tags Actual
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Success 200 {array} ActualDTO
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/actual [get]
func (h *Handler) GetActuals(w http.ResponseWriter, r *http.Request) {
	scenarioId := mux.Vars(r)["scenarioId"]
	log.Debugf("Getting actuals of scenario %s", scenarioId)
	actuals, err := h.service.Actuals(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	result := make([]ActualDTO, 0, len(actuals))
	for _, actual := range actuals {
		result = append(result, actualToDTO(actual))
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

// SetActual godoc
// @Summary Record an actual
// @Description Record what was really booked for an item in a month. It replaces the planned amount of that month.
// @Tags Actual
// @Accept json
// @Produce json
// @Param scenarioId path string true "Scenario ID"
// @Param itemId path string true "Item ID"
// @Param month path string true "Month as YYYY-MM"
// @Param actual body ActualAmountDTO true "Booked amount without sign"
// @Success 200 {object} ActualDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Scenario or item not found"
// @Router /api/scenario/{scenarioId}/item/{itemId}/actual/{month} [put]
func (h *Handler) SetActual(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioId, itemId, month := vars["scenarioId"], vars["itemId"], vars["month"]
	log.Debugf("Recording actual of item %s of scenario %s in %s", itemId, scenarioId, month)
	if !ValidMonth(month) {
		rest.WriteError(w, http.StatusBadRequest, "Month must be written as YYYY-MM", month)
		return
	}
	var dto ActualAmountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if dto.Amount < 0 {
		rest.WriteError(w, http.StatusBadRequest, "Amount must not be negative", "")
		return
	}

	items, err := h.service.EffectiveItems(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	idx := slices.IndexFunc(items, func(item budget.BudgetItem) bool { return item.Id == itemId })
	if idx == -1 {
		rest.WriteError(w, http.StatusNotFound, "Item not found", itemId)
		return
	}
	amount := dto.Amount
	if items[idx].Kind == budget.Expense {
		amount = -amount
	}

	actual := MonthlyActual{ScenarioId: scenarioId, ItemId: itemId, Month: month, Amount: amount}
	if err := h.service.SetMonthlyActual(r.Context(), actual); err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, actualToDTO(actual))
}

// ClearActual godoc
// @Summary Remove an actual
// @Description Forget the booked amount of an item in a month, the planned amount counts again
// @Tags Actual
// @Param scenarioId path string true "Scenario ID"
// @Param itemId path string true "Item ID"
// @Param month path string true "Month as YYYY-MM"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/scenario/{scenarioId}/item/{itemId}/actual/{month} [delete]
func (h *Handler) ClearActual(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioId, itemId, month := vars["scenarioId"], vars["itemId"], vars["month"]
	log.Debugf("Clearing actual of item %s of scenario %s in %s", itemId, scenarioId, month)
	if !h.requireScenario(w, r, scenarioId) {
		return
	}
	if err := h.service.ClearMonthlyActual(r.Context(), scenarioId, itemId, month); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings godoc
// @Summary Get settings
// @Tags Settings
// @Produce json
// @Success 200 {object} SettingsDTO
// @Router /api/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting settings")
	settings := h.service.Settings(r.Context())
	rest.WriteJSON(w, http.StatusOK, SettingsDTO{ComparisonSpan: settings.ComparisonSpan, IsPro: settings.IsPro})
}

// UpdateSettings godoc
// @Summary Update settings
// @Description Set the comparison span in months and the pro flag
// @Tags Settings
// @Accept json
// @Produce json
// @Param settings body SettingsDTO true "Settings"
// @Success 200 {object} SettingsDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating settings")
	var dto SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if dto.ComparisonSpan < 1 {
		rest.WriteError(w, http.StatusBadRequest, "Comparison span must be at least one month", "")
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), Settings{ComparisonSpan: dto.ComparisonSpan, IsPro: dto.IsPro})
	if err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SettingsDTO{ComparisonSpan: settings.ComparisonSpan, IsPro: settings.IsPro})
}

func (h *Handler) requireScenario(w http.ResponseWriter, r *http.Request, scenarioId string) bool {
	if _, err := h.service.GetScenario(r.Context(), scenarioId); err != nil {
		handleError(w, err)
		return false
	}
	return true
}

func (h *Handler) writeScenario(w http.ResponseWriter, r *http.Request, scenarioId string) {
	s, err := h.service.GetScenario(r.Context(), scenarioId)
	if err != nil {
		handleError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, scenarioToDTO(s))
}

func decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var dto ScenarioNameDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return "", false
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		rest.WriteError(w, http.StatusBadRequest, "Scenario name is required", "")
		return "", false
	}
	return name, true
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrScenarioNotFound):
		rest.WriteError(w, http.StatusNotFound, "Scenario not found", "")
	case errors.Is(err, ErrStateNotLoaded):
		rest.WriteError(w, http.StatusServiceUnavailable, "Scenarios are not loaded yet", "")
	default:
		log.Errorf("scenario request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func actualToDTO(actual MonthlyActual) ActualDTO {
	return ActualDTO{ScenarioId: actual.ScenarioId, ItemId: actual.ItemId, Month: actual.Month, Amount: actual.Amount}
}

func scenarioToDTO(s Scenario) ScenarioDTO {
	switch v := s.(type) {
	case BaseScenario:
		return ScenarioDTO{Id: v.Id, Name: v.Name, Kind: kindBase}
	case SimScenario:
		return ScenarioDTO{
			Id:             v.Id,
			Name:           v.Name,
			Kind:           kindSim,
			OverrideCount:  len(v.Overrides),
			DeletedItemIds: v.DeletedItemIds,
			ItemOrder:      v.ItemOrder,
		}
	default:
		return ScenarioDTO{Id: s.ScenarioId(), Name: s.ScenarioName()}
	}
}
