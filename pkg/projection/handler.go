package projection

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kawazanyo/kawazanyo/internal/rest"
	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	log "github.com/sirupsen/logrus"
)

type ScenarioRefDTO struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type ScenarioMonthDTO struct {
	ScenarioId string `json:"scenarioId"`
	Balance    int64  `json:"balance"`
	Asset      int64  `json:"asset"`
}

type MonthDTO struct {
	Index   int                `json:"index"`
	Month   string             `json:"month"`
	Results []ScenarioMonthDTO `json:"results"`
}

type ProjectionDTO struct {
	Span      int              `json:"span"`
	Scenarios []ScenarioRefDTO `json:"scenarios"`
	Months    []MonthDTO       `json:"months"`
}

type AnnualBalanceDTO struct {
	Scenario         ScenarioRefDTO `json:"scenario"`
	Income           int64          `json:"income"`
	Expense          int64          `json:"expense"`
	Balance          int64          `json:"balance"`
	DifferenceToBase int64          `json:"differenceToBase"`
}

type Handler struct {
	service  Service
	renderer Renderer
	clock    utils.Clock
}

func NewHandler(service Service, renderer Renderer, clock utils.Clock) *Handler {
	return &Handler{service: service, renderer: renderer, clock: clock}
}

// GetProjection godoc
// @Summary Monthly projection
// @Description Monthly balance and cumulative asset of the base and the given scenarios over the comparison span
// @Tags Projection
// @Produce json
// @Produce text/csv
// @Param scenario query []string false "Scenario IDs to compare with the base"
// @Success 200 {object} ProjectionDTO
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/projection [get]
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting projection")
	projection, err := h.service.Project(r.Context(), r.URL.Query()["scenario"])
	if err != nil {
		handleError(w, err)
		return
	}
	if r.Header.Get("Accept") == "text/csv" {
		h.writeCsv(w, projection)
		return
	}
	rest.WriteJSON(w, http.StatusOK, projectionToDTO(projection))
}

// GetProjectionCsv godoc
// @Summary Monthly projection as CSV
// @Tags Projection
// @Produce text/csv
// @Param scenario query []string false "Scenario IDs to compare with the base"
// @Success 200 {string} string "CSV file"
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/projection/csv [get]
func (h *Handler) GetProjectionCsv(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting projection as CSV")
	projection, err := h.service.Project(r.Context(), r.URL.Query()["scenario"])
	if err != nil {
		handleError(w, err)
		return
	}
	h.writeCsv(w, projection)
}

// GetAnnualComparison godoc
// @Summary Annual balance comparison
// @Description Annual income, expense and balance of the base and the given scenarios, with the difference to the base
// @Tags Projection
// @Produce json
// @Param scenario query []string false "Scenario IDs to compare with the base"
// @Success 200 {array} AnnualBalanceDTO
// @Failure 404 {object} rest.ErrorResponse "Scenario not found"
// @Router /api/projection/annual [get]
func (h *Handler) GetAnnualComparison(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting annual comparison")
	balances, err := h.service.AnnualComparison(r.Context(), r.URL.Query()["scenario"])
	if err != nil {
		handleError(w, err)
		return
	}
	if r.Header.Get("Accept") == "text/csv" {
		csv, err := h.renderer.RenderAnnual(balances)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write annual comparison: %v", err)
		}
		return
	}
	result := make([]AnnualBalanceDTO, 0, len(balances))
	for _, balance := range balances {
		result = append(result, AnnualBalanceDTO{
			Scenario:         ScenarioRefDTO(balance.Scenario),
			Income:           balance.Income,
			Expense:          balance.Expense,
			Balance:          balance.Balance,
			DifferenceToBase: balance.DifferenceToBase,
		})
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) writeCsv(w http.ResponseWriter, projection Projection) {
	csv, err := h.renderer.RenderProjection(projection)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fileName := fmt.Sprintf("kawazanyo_projection_%s.csv", h.clock.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		log.Errorf("failed to write projection: %v", err)
	}
}

func handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, scenario.ErrScenarioNotFound) {
		rest.WriteError(w, http.StatusNotFound, "Scenario not found", "")
		return
	}
	log.Errorf("projection request failed: %v", err)
	rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
}

func projectionToDTO(projection Projection) ProjectionDTO {
	refs := make([]ScenarioRefDTO, 0, len(projection.Scenarios))
	for _, ref := range projection.Scenarios {
		refs = append(refs, ScenarioRefDTO(ref))
	}
	months := make([]MonthDTO, 0, len(projection.Months))
	for _, month := range projection.Months {
		results := make([]ScenarioMonthDTO, 0, len(month.Results))
		for _, result := range month.Results {
			results = append(results, ScenarioMonthDTO(result))
		}
		months = append(months, MonthDTO{Index: month.Index, Month: month.Label, Results: results})
	}
	return ProjectionDTO{Span: projection.Span, Scenarios: refs, Months: months}
}
