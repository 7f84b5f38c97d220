package google

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kawazanyo/kawazanyo/internal/config"
	"github.com/kawazanyo/kawazanyo/internal/rest"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// The application has a single owner, so there is at most one stored authorization.
const authRowId = 1

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type GoogleAuth struct {
	db          *sql.DB
	oauthConfig *oauth2.Config
}

func NewGoogleAuth(db *sql.DB, cfg config.Application) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/integrations/google/auth/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}

	return &GoogleAuth{db: db, oauthConfig: oauthConfig}
}

// OAuthLogin godoc
// @Summary Start Google authorization
// @Description Returns the Google consent URL. After the callback the browser is sent to finalUrl.
// @Tags Google
// @Produce json
// @Param finalUrl query string false "URL to return to"
// @Success 200 {object} googleAuthRedirect
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/integrations/google/auth/login [get]
func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		g.authFailed(w, fmt.Errorf("failed to begin transaction: %w", err))
		return
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM google_auth WHERE id = $1", authRowId); err != nil {
		g.authFailed(w, fmt.Errorf("failed to delete old Google auth row: %w", err))
		return
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO google_auth (id, nonce) VALUES ($1, $2)", authRowId, stateNonce); err != nil {
		g.authFailed(w, fmt.Errorf("failed to store Google auth nonce: %w", err))
		return
	}
	if err := tx.Commit(); err != nil {
		g.authFailed(w, fmt.Errorf("failed to commit Google auth nonce: %w", err))
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	rest.WriteJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: u})
}

// OAuthCallback godoc
// @Summary Google authorization callback
// @Tags Google
// @Param code query string true "Authorization code"
// @Param state query string true "State with the final URL and the nonce"
// @Success 302
// @Router /api/integrations/google/auth/callback [get]
func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		rest.WriteError(w, http.StatusBadRequest, "Invalid state", "")
		return
	}
	finalUrl, nonce := parts[0], parts[1]

	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("unable to exchange code for token: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	result, err := g.db.ExecContext(r.Context(),
		"UPDATE google_auth SET access_token = $1, refresh_token = $2, token_type = $3, expiry = $4 WHERE nonce = $5",
		token.AccessToken, token.RefreshToken, token.TokenType, token.Expiry.Unix(), nonce)
	if err == nil {
		if affected, _ := result.RowsAffected(); affected == 0 {
			err = errors.New("no pending authorization for nonce")
		}
	}
	if err != nil {
		log.Errorf("unable to store Google auth token: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Google auth token for nonce: ", nonce)
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

// OAuthLogout godoc
// @Summary Forget the Google authorization
// @Tags Google
// @Success 204
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/integrations/google/auth/logout [delete]
func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := g.db.ExecContext(r.Context(), "DELETE FROM google_auth WHERE id = $1", authRowId); err != nil {
		g.authFailed(w, fmt.Errorf("failed to delete Google auth row: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *GoogleAuth) authFailed(w http.ResponseWriter, err error) {
	log.Error(err)
	rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
}

func (g *GoogleAuth) getToken(ctx context.Context) (*oauth2.Token, error) {
	var token oauth2.Token
	var expiryTimestamp int64
	err := g.db.QueryRowContext(ctx, "SELECT access_token, refresh_token, token_type, expiry FROM google_auth WHERE id = $1", authRowId).
		Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiryTimestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google auth token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, nil
	}

	token.Expiry = time.Unix(expiryTimestamp, 0)
	return &token, nil
}

// getClient returns nil without an error when no authorization is stored.
func (g *GoogleAuth) getClient(ctx context.Context) (*http.Client, error) {
	token, err := g.getToken(ctx)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	if token == nil {
		return nil, nil
	}
	return g.oauthConfig.Client(context.Background(), token), nil
}
