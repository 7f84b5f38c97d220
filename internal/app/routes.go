package app

import (
	"github.com/gorilla/mux"
	"github.com/kawazanyo/kawazanyo/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Scenarios
	r.HandleFunc("/api/scenario", deps.ScenarioHandler.ListScenarios).Methods("GET")
	r.HandleFunc("/api/scenario", deps.ScenarioHandler.AddScenario).Methods("POST")
	r.HandleFunc("/api/scenario/{scenarioId}", deps.ScenarioHandler.RenameScenario).Methods("PUT")
	r.HandleFunc("/api/scenario/{scenarioId}", deps.ScenarioHandler.RemoveScenario).Methods("DELETE")

	// Scenario items
	r.HandleFunc("/api/scenario/{scenarioId}/items", deps.ScenarioHandler.GetItems).Methods("GET")
	r.HandleFunc("/api/scenario/{scenarioId}/annotated", deps.ScenarioHandler.GetAnnotatedItems).Methods("GET")
	r.HandleFunc("/api/scenario/{scenarioId}/item", deps.ScenarioHandler.AddItem).Methods("POST")
	r.HandleFunc("/api/scenario/{scenarioId}/item/{itemId}", deps.ScenarioHandler.UpdateItem).Methods("PATCH")
	r.HandleFunc("/api/scenario/{scenarioId}/item/{itemId}", deps.ScenarioHandler.RemoveItem).Methods("DELETE")
	r.HandleFunc("/api/scenario/{scenarioId}/item/{itemId}/restore", deps.ScenarioHandler.RestoreItem).Methods("POST")
	r.HandleFunc("/api/scenario/{scenarioId}/order", deps.ScenarioHandler.ReorderItems).Methods("PUT")

	// Monthly actuals
	r.HandleFunc("/api/scenario/{scenarioId}/actual", deps.ScenarioHandler.GetActuals).Methods("GET")
	r.HandleFunc("/api/scenario/{scenarioId}/item/{itemId}/actual/{month}", deps.ScenarioHandler.SetActual).Methods("PUT")
	r.HandleFunc("/api/scenario/{scenarioId}/item/{itemId}/actual/{month}", deps.ScenarioHandler.ClearActual).Methods("DELETE")

	// Settings
	r.HandleFunc("/api/settings", deps.ScenarioHandler.GetSettings).Methods("GET")
	r.HandleFunc("/api/settings", deps.ScenarioHandler.UpdateSettings).Methods("PUT")

	// Projection
	r.HandleFunc("/api/projection", deps.ProjectionHandler.GetProjection).Methods("GET")
	r.HandleFunc("/api/projection/csv", deps.ProjectionHandler.GetProjectionCsv).Methods("GET")
	r.HandleFunc("/api/projection/annual", deps.ProjectionHandler.GetAnnualComparison).Methods("GET")

	// Backup
	r.HandleFunc("/api/backup", deps.BackupHandler.Export).Methods("GET")
	r.HandleFunc("/api/backup", deps.BackupHandler.Import).Methods("POST")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/sheets/export", deps.GoogleHandler.ExportProjection).Methods("POST")
}
