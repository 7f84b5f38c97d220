package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kawazanyo/kawazanyo/internal/config"
	"github.com/kawazanyo/kawazanyo/internal/test_utils"
	"github.com/kawazanyo/kawazanyo/pkg/projection"
	"github.com/kawazanyo/kawazanyo/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectionStub struct {
	projection projection.Projection
	err        error
	requested  []string
}

func (p *projectionStub) Project(ctx context.Context, scenarioIds []string) (projection.Projection, error) {
	p.requested = scenarioIds
	return p.projection, p.err
}

func (p *projectionStub) AnnualComparison(ctx context.Context, scenarioIds []string) ([]projection.AnnualBalance, error) {
	return nil, p.err
}

type writerStub struct {
	spreadsheetId string
	writeRange    string
	values        [][]any
	err           error
}

func (w *writerStub) UpdateValues(ctx context.Context, spreadsheetId, writeRange string, values [][]any) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.spreadsheetId, w.writeRange, w.values = spreadsheetId, writeRange, values
	var cells int64
	for _, row := range values {
		cells += int64(len(row))
	}
	return cells, nil
}

func testProjection() projection.Projection {
	return projection.Projection{
		Span:      1,
		Scenarios: []projection.ScenarioRef{{Id: "base", Name: "Current"}},
		Months: []projection.Month{
			{Index: 1, Label: "2026-11", Results: []projection.ScenarioMonth{{ScenarioId: "base", Balance: 600, Asset: 600}}},
		},
	}
}

func TestServiceImpl_ExportProjection(t *testing.T) {
	t.Run("should write the projection to the configured sheet", func(t *testing.T) {
		// given
		projections := &projectionStub{projection: testProjection()}
		writer := &writerStub{}
		service := NewService(projections, writer, "sheet-id", "Projection")

		// when
		result, err := service.ExportProjection(context.Background(), ExportRequest{ScenarioIds: []string{"s1"}})

		// then
		require.NoError(t, err)
		assert.Equal(t, ExportResult{SpreadsheetId: "sheet-id", Range: "'Projection'!A1", UpdatedCells: 8}, result)
		assert.Equal(t, []string{"s1"}, projections.requested)
		assert.Equal(t, [][]any{
			{"Month", "Index", "Current balance", "Current asset"},
			{"2026-11", 1, int64(600), int64(600)},
		}, writer.values)
	})

	t.Run("should prefer the spreadsheet of the request", func(t *testing.T) {
		writer := &writerStub{}
		service := NewService(&projectionStub{projection: testProjection()}, writer, "sheet-id", "")

		result, err := service.ExportProjection(context.Background(), ExportRequest{SpreadsheetId: "other", SheetName: "Mine"})

		require.NoError(t, err)
		assert.Equal(t, "other", writer.spreadsheetId)
		assert.Equal(t, "'Mine'!A1", result.Range)
	})

	t.Run("should fail without a spreadsheet", func(t *testing.T) {
		service := NewService(&projectionStub{}, &writerStub{}, "", "")

		_, err := service.ExportProjection(context.Background(), ExportRequest{})

		assert.ErrorIs(t, err, ErrNoSpreadsheet)
	})

	t.Run("should pass on projection and writer errors", func(t *testing.T) {
		projectionFailure := NewService(&projectionStub{err: scenario.ErrScenarioNotFound}, &writerStub{}, "id", "")
		writerFailure := NewService(&projectionStub{projection: testProjection()}, &writerStub{err: ErrUnauthenticated}, "id", "")

		_, projectionErr := projectionFailure.ExportProjection(context.Background(), ExportRequest{})
		_, writerErr := writerFailure.ExportProjection(context.Background(), ExportRequest{})

		assert.ErrorIs(t, projectionErr, scenario.ErrScenarioNotFound)
		assert.ErrorIs(t, writerErr, ErrUnauthenticated)
	})
}

func TestHandler_ExportProjection(t *testing.T) {
	tests := []struct {
		name       string
		writerErr  error
		wantStatus int
	}{
		{"should export", nil, http.StatusOK},
		{"should ask for authorization", ErrUnauthenticated, http.StatusUnauthorized},
		{"should report other failures", errors.New("quota"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(&projectionStub{projection: testProjection()}, &writerStub{err: tt.writerErr}, "sheet-id", "")
			handler := NewHandler(service)
			w := httptest.NewRecorder()

			handler.ExportProjection(w, httptest.NewRequest(http.MethodPost, "/api/integrations/google/sheets/export", strings.NewReader(`{"scenarioIds":["base"]}`)))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	t.Run("should accept an empty body", func(t *testing.T) {
		handler := NewHandler(NewService(&projectionStub{projection: testProjection()}, &writerStub{}, "sheet-id", ""))
		w := httptest.NewRecorder()

		handler.ExportProjection(w, httptest.NewRequest(http.MethodPost, "/api/integrations/google/sheets/export", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var result ExportResultDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, "sheet-id", result.SpreadsheetId)
	})
}

func TestGoogleAuth(t *testing.T) {
	setup := func(t *testing.T) *GoogleAuth {
		db := test_utils.SetupTestDB(t)
		cfg := config.Defaults()
		cfg.Google.ClientId = "client-id"
		return NewGoogleAuth(db, cfg)
	}

	t.Run("should have no client before authorization", func(t *testing.T) {
		auth := setup(t)

		client, err := auth.getClient(context.Background())
		_, writeErr := NewSheetsWriter(auth).UpdateValues(context.Background(), "id", "A1", nil)

		require.NoError(t, err)
		assert.Nil(t, client)
		assert.ErrorIs(t, writeErr, ErrUnauthenticated)
	})

	t.Run("should return the consent URL and remember the nonce", func(t *testing.T) {
		// given
		auth := setup(t)
		w := httptest.NewRecorder()

		// when
		auth.OAuthLogin(w, httptest.NewRequest(http.MethodGet, "/api/integrations/google/auth/login?finalUrl=http://app", nil))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var redirect googleAuthRedirect
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redirect))
		assert.Contains(t, redirect.RedirectUrl, "client_id=client-id")
		assert.Contains(t, redirect.RedirectUrl, "access_type=offline")

		var nonce string
		require.NoError(t, auth.db.QueryRow("SELECT nonce FROM google_auth WHERE id = 1").Scan(&nonce))
		assert.NotEmpty(t, nonce)
		client, err := auth.getClient(context.Background())
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("should reject a callback without nonce", func(t *testing.T) {
		auth := setup(t)
		w := httptest.NewRecorder()

		auth.OAuthCallback(w, httptest.NewRequest(http.MethodGet, "/api/integrations/google/auth/callback?code=x&state=nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should forget a stored token on logout", func(t *testing.T) {
		// given
		auth := setup(t)
		_, err := auth.db.Exec("INSERT INTO google_auth (id, nonce, access_token, refresh_token, token_type, expiry) VALUES (1, 'n', 'access', 'refresh', 'Bearer', 4102444800)")
		require.NoError(t, err)
		client, err := auth.getClient(context.Background())
		require.NoError(t, err)
		require.NotNil(t, client)
		w := httptest.NewRecorder()

		// when
		auth.OAuthLogout(w, httptest.NewRequest(http.MethodDelete, "/api/integrations/google/auth/logout", nil))

		// then
		assert.Equal(t, http.StatusNoContent, w.Code)
		client, err = auth.getClient(context.Background())
		require.NoError(t, err)
		assert.Nil(t, client)
	})
}
