package google

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kawazanyo/kawazanyo/internal/rest"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	log "github.com/sirupsen/logrus"
)

type ExportRequestDTO struct {
	SpreadsheetId string   `json:"spreadsheetId,omitempty"`
	SheetName     string   `json:"sheetName,omitempty"`
	ScenarioIds   []string `json:"scenarioIds,omitempty"`
}

type ExportResultDTO struct {
	SpreadsheetId string `json:"spreadsheetId"`
	Range         string `json:"range"`
	UpdatedCells  int64  `json:"updatedCells"`
}

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s}
}

// ExportProjection godoc
// @Summary Export the projection to Google Sheets
// @Description Write the monthly projection of the base and the given scenarios into a spreadsheet
// @Tags Google
// @Accept json
// @Produce json
// @Param request body ExportRequestDTO false "Target spreadsheet and scenarios"
// @Success 200 {object} ExportResultDTO
// @Failure 400 {object} rest.ErrorResponse "No spreadsheet"
// @Failure 401 {object} rest.ErrorResponse "Google authorization required"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/integrations/google/sheets/export [post]
func (h *Handler) ExportProjection(w http.ResponseWriter, r *http.Request) {
	log.Debug("Exporting projection to Google Sheets")
	var dto ExportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	result, err := h.service.ExportProjection(r.Context(), ExportRequest(dto))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			rest.WriteError(w, http.StatusUnauthorized, "Google authorization required", "")
		case errors.Is(err, ErrNoSpreadsheet):
			rest.WriteError(w, http.StatusBadRequest, "No spreadsheet given or configured", "")
		case errors.Is(err, scenario.ErrScenarioNotFound):
			rest.WriteError(w, http.StatusNotFound, "Scenario not found", "")
		default:
			log.Errorf("failed to export projection: %v", err)
			rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, ExportResultDTO(result))
}
