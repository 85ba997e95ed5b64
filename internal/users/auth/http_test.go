// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/constants"
	"github.com/taibuivan/secrets/internal/platform/middleware"
	"github.com/taibuivan/secrets/internal/users/auth"
)

type httpFixture struct {
	router     http.Handler
	federation *federationFixture
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()

	federation := newFederationFixture(t)

	service, err := auth.NewService(federation.repository, federation.sessions, bcrypt.MinCost)
	require.NoError(t, err)

	handler := auth.NewHandler(service, federation.service, auth.HandlerConfig{
		CookieSecure: false,
		LoginURL:     "/login",
		LandingURL:   "/secrets",
		StateTTL:     10 * time.Minute,
	})

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(federation.sessions))
	router.Mount("/api/v1/auth", handler.Routes())
	router.Mount("/auth", handler.FederationRoutes())

	return &httpFixture{router: router, federation: federation}
}

func (fixture *httpFixture) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)
	return recorder
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// decodeUser extracts the user object from a success envelope.
func decodeUser(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	data, ok := decodeBody(t, recorder)["data"].(map[string]any)
	require.True(t, ok)
	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	return user
}

/*
TestHandler_LocalLifecycle walks register, profile, logout and the
rejected profile request that follows.
*/
func TestHandler_LocalLifecycle(t *testing.T) {
	fixture := newHTTPFixture(t)

	registered := fixture.do(http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"p4ssword!"}`)
	require.Equal(t, http.StatusCreated, registered.Code)

	session := findCookie(registered, constants.SessionCookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	user := decodeUser(t, registered)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "local", user["kind"])
	assert.NotContains(t, registered.Body.String(), "p4ssword!")

	me := fixture.do(http.MethodGet, "/api/v1/auth/me", "", session)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, user["id"], decodeUser(t, me)["id"])

	loggedOut := fixture.do(http.MethodPost, "/api/v1/auth/logout", "", session)
	assert.Equal(t, http.StatusNoContent, loggedOut.Code)
	cleared := findCookie(loggedOut, constants.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	after := fixture.do(http.MethodGet, "/api/v1/auth/me", "", session)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
	assert.Equal(t, apperr.CodeUnauthenticated, decodeBody(t, after)["code"])
}

func TestHandler_LoginFailures(t *testing.T) {
	fixture := newHTTPFixture(t)

	require.Equal(t, http.StatusCreated,
		fixture.do(http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"p4ssword!"}`).Code)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"wrong_password", `{"username":"alice","password":"nope-nope"}`, http.StatusUnauthorized, apperr.CodeInvalidCredentials},
		{"unknown_user", `{"username":"bob","password":"p4ssword!"}`, http.StatusUnauthorized, apperr.CodeInvalidCredentials},
		{"invalid_json", `{"username":`, http.StatusBadRequest, apperr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := fixture.do(http.MethodPost, "/api/v1/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, recorder)["code"])
			assert.Nil(t, findCookie(recorder, constants.SessionCookieName))
		})
	}

	ok := fixture.do(http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"p4ssword!"}`)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.NotNil(t, findCookie(ok, constants.SessionCookieName))
}

func TestHandler_RegisterConflict(t *testing.T) {
	fixture := newHTTPFixture(t)

	first := fixture.do(http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"p4ssword!"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := fixture.do(http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"p4ssword!"}`)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, apperr.CodeUsernameTaken, decodeBody(t, second)["code"])
}

/*
TestHandler_FederatedFlow follows the browser through the redirect, the
state cookie and the callback.
*/
func TestHandler_FederatedFlow(t *testing.T) {
	fixture := newHTTPFixture(t)

	start := fixture.do(http.MethodGet, "/auth/google", "")
	require.Equal(t, http.StatusFound, start.Code)

	location, err := url.Parse(start.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)

	stateCookie := findCookie(start, constants.OAuthStateCookieName)
	require.NotNil(t, stateCookie)
	state := location.Query().Get("state")
	assert.Equal(t, state, stateCookie.Value)

	callbackURL := "/auth/google/callback?" + url.Values{"code": {"code-1"}, "state": {state}}.Encode()
	callback := fixture.do(http.MethodGet, callbackURL, "", stateCookie)
	require.Equal(t, http.StatusFound, callback.Code)
	assert.Equal(t, "/secrets", callback.Header().Get("Location"))

	session := findCookie(callback, constants.SessionCookieName)
	require.NotNil(t, session)

	me := fixture.do(http.MethodGet, "/api/v1/auth/me", "", session)
	require.Equal(t, http.StatusOK, me.Code)
	user := decodeUser(t, me)
	assert.Equal(t, "federated", user["kind"])
	assert.Equal(t, auth.ProviderGoogle, user["provider"])
}

func TestHandler_FederatedFailures(t *testing.T) {
	fixture := newHTTPFixture(t)

	state, err := fixture.federation.signer.Issue(auth.ProviderGoogle)
	require.NoError(t, err)
	matching := &http.Cookie{Name: constants.OAuthStateCookieName, Value: state}

	tests := []struct {
		name    string
		query   url.Values
		cookies []*http.Cookie
	}{
		{"missing_state_cookie", url.Values{"code": {"c"}, "state": {state}}, nil},
		{"cookie_mismatch", url.Values{"code": {"c"}, "state": {state}}, []*http.Cookie{{Name: constants.OAuthStateCookieName, Value: "other"}}},
		{"user_denied", url.Values{"error": {"access_denied"}, "state": {state}}, []*http.Cookie{matching}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := fixture.do(http.MethodGet, "/auth/google/callback?"+tt.query.Encode(), "", tt.cookies...)
			assert.Equal(t, http.StatusFound, recorder.Code)
			assert.Equal(t, "/login?error=federation_failed", recorder.Header().Get("Location"))
			assert.Nil(t, findCookie(recorder, constants.SessionCookieName))
		})
	}

	unknown := fixture.do(http.MethodGet, "/auth/myspace", "")
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}
