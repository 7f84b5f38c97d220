package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kawazanyo/kawazanyo/internal/config"
	"github.com/kawazanyo/kawazanyo/internal/event_bus"
	"github.com/kawazanyo/kawazanyo/internal/utils"
	"github.com/kawazanyo/kawazanyo/pkg/backup"
	"github.com/kawazanyo/kawazanyo/pkg/google"
	"github.com/kawazanyo/kawazanyo/pkg/projection"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	ScenarioRepo    scenario.Repository
	ScenarioService *scenario.ServiceImpl
	ScenarioHandler *scenario.Handler

	ProjectionService  *projection.ServiceImpl
	ProjectionRenderer *projection.CsvRendererImpl
	ProjectionHandler  *projection.Handler

	BackupService *backup.ServiceImpl
	BackupHandler *backup.Handler

	GoogleAuth    *google.GoogleAuth
	GoogleService google.Service
	GoogleHandler *google.Handler
}

// BuildDependencies initializes and wires all application services and handlers, and loads
// the stored scenarios.
func BuildDependencies(ctx context.Context, db *sql.DB, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.ScenarioRepo = scenario.NewRepository(db)
	deps.ScenarioService = scenario.NewService(deps.ScenarioRepo, deps.EventBus)
	err := deps.ScenarioService.Load(ctx, scenario.Defaults{
		BaseName:       cfg.Budget.BaseName,
		ComparisonSpan: cfg.Budget.ComparisonSpan,
		Seed:           cfg.Budget.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}
	deps.ScenarioHandler = scenario.NewHandler(deps.ScenarioService)

	deps.ProjectionService = projection.NewService(deps.ScenarioService, deps.Clock, deps.EventBus)
	deps.ProjectionRenderer = projection.NewCsvRenderer()
	deps.ProjectionHandler = projection.NewHandler(deps.ProjectionService, deps.ProjectionRenderer, deps.Clock)

	deps.BackupService = backup.NewService(deps.ScenarioService, deps.Clock)
	deps.BackupHandler = backup.NewHandler(deps.BackupService)

	deps.GoogleAuth = google.NewGoogleAuth(db, cfg)
	deps.GoogleService = google.NewService(deps.ProjectionService, google.NewSheetsWriter(deps.GoogleAuth), cfg.Google.SpreadsheetId, cfg.Google.SheetName)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	return deps, nil
}
