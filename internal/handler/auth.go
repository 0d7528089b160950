package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/model"
)

const stateCookie = "oauth_state"

// GitHubSignIn is the OAuth flow used for sign-in.
// *auth.GitHubProvider implements it.
type GitHubSignIn interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages GitHub sign-in and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub
//   - HandleGitHubCallback → exchange the code, link the GitHub handle as
//     verified, issue the JWT cookie
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → who is signed in, with their handles
type AuthHandler struct {
	github  GitHubSignIn
	tokens  *auth.TokenService
	handles HandleManager
	secure  bool
	logger  *slog.Logger
}

// NewAuthHandler builds the handler. secure marks cookies Secure, which
// requires HTTPS.
func NewAuthHandler(github GitHubSignIn, tokens *auth.TokenService, handles HandleManager, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:  github,
		tokens:  tokens,
		handles: handles,
		secure:  secure,
		logger:  logger,
	}
}

// HandleGitHubLogin redirects to GitHub with a random state that is also
// kept in a short-lived cookie for the callback's CSRF check.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the cookie (CSRF)
//  2. Exchange the code for the GitHub user
//  3. Link the GitHub login to the user and mark it verified: completing
//     OAuth proves the user controls that account
//  4. Issue the JWT cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream_unavailable", Message: "authentication failed"})
		return
	}

	userID := ghUser.UserID()
	if _, err := h.handles.Link(r.Context(), userID, model.PlatformGitHub, ghUser.Login); err != nil {
		h.logger.Error("auth callback: linking github handle failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if err := h.handles.MarkVerified(r.Context(), userID, model.PlatformGitHub); err != nil {
		h.logger.Error("auth callback: verifying github handle failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	tokenStr, err := h.tokens.Generate(userID)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.logger.Info("user signed in", slog.String("user_id", userID), slog.String("login", ghUser.Login))

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout deletes the JWT cookie. The token itself stays valid until
// it expires; without the cookie the browser just stops sending it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type meResponse struct {
	UserID  string                 `json:"userId"`
	Handles []model.PlatformHandle `json:"handles"`
}

// HandleMe
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	handles, err := h.handles.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if handles == nil {
		handles = []model.PlatformHandle{}
	}
	writeJSON(w, http.StatusOK, meResponse{UserID: userID, Handles: handles})
}
