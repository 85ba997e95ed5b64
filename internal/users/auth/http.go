// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/secrets/internal/platform/constants"
	"github.com/taibuivan/secrets/internal/platform/ctxutil"
	"github.com/taibuivan/secrets/internal/platform/middleware"
	requestutil "github.com/taibuivan/secrets/internal/platform/request"
	"github.com/taibuivan/secrets/internal/platform/respond"
	"github.com/taibuivan/secrets/internal/platform/validate"
)

// # Definitions & Constructors

// HandlerConfig holds the transport settings of the auth endpoints.
type HandlerConfig struct {
	// CookieSecure sets the Secure attribute on every cookie written.
	CookieSecure bool
	// LoginURL receives the browser after a failed federated sign-in.
	LoginURL string
	// LandingURL receives the browser after a successful federated sign-in.
	LandingURL string
	// StateTTL bounds the lifetime of the OAuth state cookie.
	StateTTL time.Duration
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Local registration and login, logout, the current profile, and the
// browser side of the federated handshake.
type Handler struct {
	authService       *Service
	federationService *FederationService
	config            HandlerConfig
}

// NewHandler constructs a new [Handler]. federationService may be nil when no
// provider is configured.
func NewHandler(service *Service, federationService *FederationService, config HandlerConfig) *Handler {
	return &Handler{
		authService:       service,
		federationService: federationService,
		config:            config,
	}
}

// Routes returns a [chi.Router] configured with the local auth routes.
//
// # Endpoints
//   - POST /register : Creates a local account and signs it in.
//   - POST /login    : Verifies credentials and sets the session cookie.
//   - POST /logout   : Invalidates the session.
//   - GET  /me       : Returns the signed-in user.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// FederationRoutes returns a [chi.Router] for the browser-driven OAuth2 flow.
//
// # Endpoints
//   - GET /{provider}          : Redirects to the provider consent screen.
//   - GET /{provider}/callback : Completes the handshake.
func (handler *Handler) FederationRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{provider}", handler.startFederation)
	router.Get("/{provider}/callback", handler.federationCallback)

	return router
}

// # Request & Response Payloads

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userView is the client-facing projection of [User]. Credentials and the
// secret never leave the server through it.
type userView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Username  string    `json:"username,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(user *User) userView {
	view := userView{
		ID:        user.ID,
		Kind:      string(user.Kind()),
		Username:  user.Username(),
		CreatedAt: user.CreatedAt,
	}
	if user.Federated != nil {
		view.Provider = user.Federated.Provider
	}
	return view
}

// # Local Endpoints

/*
Register creates a local account and signs it in.

POST /api/v1/auth/register

Request:
  - Body: credentialsRequest (Username, Password)

Response:
  - 201: User: Created user profile, session cookie set
  - 400: ErrInvalidJSON or validation failure
  - 409: USERNAME_TAKEN
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	SetSessionCookie(writer, &IssuedSession{Token: session.Token, ExpiresAt: session.ExpiresAt}, handler.config.CookieSecure)
	respond.Created(writer, map[string]any{
		FieldUser: newUserView(session.User),
	})
}

/*
Login verifies a username and password.

POST /api/v1/auth/login

Request:
  - Body: credentialsRequest (Username, Password)

Response:
  - 200: User: Profile, session cookie set
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	SetSessionCookie(writer, &IssuedSession{Token: session.Token, ExpiresAt: session.ExpiresAt}, handler.config.CookieSecure)
	respond.OK(writer, map[string]any{
		FieldUser: newUserView(session.User),
	})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Response:
  - 204: No Content: Session invalidated (or none was present), cookie cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.Logout(request.Context(), SessionTokenFromRequest(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ClearSessionCookie(writer, handler.config.CookieSecure)
	respond.NoContent(writer)
}

/*
Me returns the signed-in user, freshly loaded from the repository.

GET /api/v1/auth/me

Response:
  - 200: User
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.authService.CurrentUser(request.Context(), SessionTokenFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser: newUserView(user),
	})
}

// # Federated Endpoints

/*
StartFederation redirects the browser to the provider.

GET /auth/{provider}

Response:
  - 302: Provider authorization URL, state cookie set
  - 404: Unknown provider
*/
func (handler *Handler) startFederation(writer http.ResponseWriter, request *http.Request) {
	if handler.federationService == nil {
		respond.Error(writer, request, ErrUnknownProvider)
		return
	}

	redirect, err := handler.federationService.AuthorizationURL(requestutil.Param(request, FieldProvider))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    redirect.State,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(handler.config.StateTTL / time.Second),
		Secure:   handler.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(writer, request, redirect.URL, http.StatusFound)
}

/*
FederationCallback completes the handshake.

GET /auth/{provider}/callback

Description: The state must match both its signature and the cookie set by
the start endpoint. Any failure sends the browser back to the login page.

Response:
  - 302: LandingURL with a session cookie, or LoginURL?error=federation_failed
*/
func (handler *Handler) federationCallback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	provider := requestutil.Param(request, FieldProvider)
	state := query.Get("state")

	clearStateCookie(writer, handler.config.CookieSecure)

	if handler.federationService == nil {
		handler.federationFailed(writer, request, provider, ErrUnknownProvider)
		return
	}

	cookie, err := request.Cookie(constants.OAuthStateCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		handler.federationFailed(writer, request, provider, ErrFederationFailed)
		return
	}

	session, err := handler.federationService.Callback(request.Context(), CallbackInput{
		Provider: provider,
		Code:     query.Get("code"),
		State:    state,
		Error:    query.Get("error"),
	})
	if err != nil {
		handler.federationFailed(writer, request, provider, err)
		return
	}

	SetSessionCookie(writer, &IssuedSession{Token: session.Token, ExpiresAt: session.ExpiresAt}, handler.config.CookieSecure)
	http.Redirect(writer, request, handler.config.LandingURL, http.StatusFound)
}

func (handler *Handler) federationFailed(writer http.ResponseWriter, request *http.Request, provider string, err error) {
	ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "federated_login_failed",
		slog.String("provider", provider),
		slog.Any("error", err),
	)

	target := handler.config.LoginURL + "?" + url.Values{"error": {"federation_failed"}}.Encode()
	http.Redirect(writer, request, target, http.StatusFound)
}

func clearStateCookie(writer http.ResponseWriter, secure bool) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
