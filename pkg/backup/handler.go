package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kawazanyo/kawazanyo/internal/rest"
	log "github.com/sirupsen/logrus"
)

// Backups are small, anything above this is not one of ours.
const maxBackupSize = 10 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Export godoc
// @Summary Export a backup
// @Description Download the whole state as one JSON document
// @Tags Backup
// @Produce json
// @Success 200 {object} Document
// @Router /api/backup [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	log.Debug("Exporting backup")
	doc := h.service.Export(r.Context())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName()))
	rest.WriteJSON(w, http.StatusOK, doc)
}

// Import godoc
// @Summary Import a backup
// @Description Replace the whole state with a previously exported document
// @Tags Backup
// @Accept json
// @Param backup body Document true "Backup document"
// @Success 204
// @Failure 400 {object} rest.ErrorResponse "Invalid backup"
// @Router /api/backup [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	log.Debug("Importing backup")
	var doc Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBackupSize)).Decode(&doc); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid backup", err.Error())
		return
	}
	if err := h.service.Import(r.Context(), doc); err != nil {
		if errors.Is(err, ErrInvalidBackup) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid backup", err.Error())
			return
		}
		log.Errorf("failed to import backup: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
