// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/config"
	"github.com/taibuivan/secrets/internal/platform/ctxutil"
	"github.com/taibuivan/secrets/internal/platform/sec"
)

// # Providers

// maxProfileBytes caps the user-info response body.
const maxProfileBytes = 1 << 20

// Provider is one external identity provider reachable through the
// authorization-code flow.
type Provider struct {
	// Name is the route key, e.g. "google".
	Name        string
	OAuth       *oauth2.Config
	UserInfoURL string
}

// NewProvider builds a [Provider] from its configuration, keyed by name.
func NewProvider(name string, cfg config.ProviderConfig) Provider {
	return Provider{
		Name: name,
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		UserInfoURL: cfg.UserInfoURL,
	}
}

// subjectFrom extracts the stable subject id from a user-info payload.
//
// GitHub identifies users by a numeric id; everyone else follows OpenID
// Connect and uses "sub".
func (provider Provider) subjectFrom(body io.Reader) (string, error) {
	if provider.Name == ProviderGitHub {
		var payload struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decode_profile_failed: %w", err)
		}
		if payload.ID <= 0 {
			return "", errors.New("profile has no subject id")
		}
		return strconv.FormatInt(payload.ID, 10), nil
	}

	var payload struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode_profile_failed: %w", err)
	}
	if payload.Sub == "" {
		return "", errors.New("profile has no subject id")
	}
	return payload.Sub, nil
}

// # Federation Service

// FederationService implements the OAuth2 authorization-code login.
//
// No server-side state is kept between the redirect and the callback: the
// state parameter is a signed, short-lived token bound to the provider.
type FederationService struct {
	providers      map[string]Provider
	userRepository UserRepository
	sessions       *SessionManager
	stateSigner    *sec.StateSigner
	httpClient     *http.Client
	timeout        time.Duration
}

// NewFederationService constructs a [FederationService].
//
// Every outbound provider call is bounded by timeout.
func NewFederationService(
	providers []Provider,
	userRepository UserRepository,
	sessions *SessionManager,
	stateSigner *sec.StateSigner,
	timeout time.Duration,
) *FederationService {
	byName := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		byName[provider.Name] = provider
	}

	return &FederationService{
		providers:      byName,
		userRepository: userRepository,
		sessions:       sessions,
		stateSigner:    stateSigner,
		httpClient:     &http.Client{Timeout: timeout},
		timeout:        timeout,
	}
}

// Providers returns the configured provider names, sorted.
func (service *FederationService) Providers() []string {
	names := make([]string, 0, len(service.providers))
	for name := range service.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthorizationRedirect is where to send the browser, and the state it must
// bring back.
type AuthorizationRedirect struct {
	URL   string
	State string
}

/*
AuthorizationURL builds the provider authorization URL.

Parameters:
  - providerName: string

Returns:
  - *AuthorizationRedirect: URL with client id, redirect URL, scopes and state
  - error: ErrUnknownProvider, or a state signing failure
*/
func (service *FederationService) AuthorizationURL(providerName string) (*AuthorizationRedirect, error) {
	provider, ok := service.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	state, err := service.stateSigner.Issue(provider.Name)
	if err != nil {
		return nil, fmt.Errorf("federation_state_issue_failed: %w", err)
	}

	return &AuthorizationRedirect{
		URL:   provider.OAuth.AuthCodeURL(state),
		State: state,
	}, nil
}

// CallbackInput carries the query parameters of the provider callback.
type CallbackInput struct {
	Provider string
	Code     string
	State    string
	// Error is the provider's "error" parameter, set when the user declined.
	Error string
}

/*
Callback completes the handshake and signs the external identity in.

Description: Verifies state, exchanges the code for an access token, fetches
the provider profile and finds or creates the linked user. Every provider-side
failure is reported as ErrFederationFailed.

Parameters:
  - context: context.Context
  - input: CallbackInput

Returns:
  - *LoginSession: Session for the linked user
  - error: ErrFederationFailed or RepositoryFailure
*/
func (service *FederationService) Callback(context context.Context, input CallbackInput) (*LoginSession, error) {
	provider, ok := service.providers[input.Provider]
	if !ok {
		return nil, federationFailed(fmt.Errorf("unknown provider %q", input.Provider))
	}
	if input.Error != "" {
		return nil, federationFailed(fmt.Errorf("provider returned error %q", input.Error))
	}
	if input.Code == "" {
		return nil, federationFailed(errors.New("missing authorization code"))
	}
	if err := service.stateSigner.Verify(input.State, provider.Name); err != nil {
		return nil, federationFailed(err)
	}

	subjectID, err := service.fetchSubject(context, provider, input.Code)
	if err != nil {
		return nil, federationFailed(err)
	}

	user, err := service.findOrCreate(context, provider.Name, subjectID)
	if err != nil {
		return nil, err
	}

	session, err := service.sessions.Create(context, user.ID)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "federated_login_succeeded",
		slog.String("provider", provider.Name),
		slog.String("user_id", user.ID),
	)

	return &LoginSession{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// fetchSubject exchanges code for a token and reads the subject id from the
// user-info endpoint.
func (service *FederationService) fetchSubject(parent context.Context, provider Provider, code string) (string, error) {
	requestContext, cancel := context.WithTimeout(parent, service.timeout)
	defer cancel()

	requestContext = context.WithValue(requestContext, oauth2.HTTPClient, service.httpClient)

	token, err := provider.OAuth.Exchange(requestContext, code)
	if err != nil {
		return "", fmt.Errorf("token_exchange_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(requestContext, http.MethodGet, provider.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("profile_request_build_failed: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := provider.OAuth.Client(requestContext, token).Do(request)
	if err != nil {
		return "", fmt.Errorf("profile_request_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("profile_request_failed: status %d", response.StatusCode)
	}

	return provider.subjectFrom(io.LimitReader(response.Body, maxProfileBytes))
}

// findOrCreate returns the user linked to (provider, subjectID), creating it
// on first sight. Concurrent callbacks for one subject converge on one user:
// the loser of the insert race reads the winner's row.
func (service *FederationService) findOrCreate(context context.Context, provider, subjectID string) (*User, error) {
	user, err := service.userRepository.FindByFederatedID(context, provider, subjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, asRepositoryFailure("federation_find_user_failed", err)
	}

	candidate := &User{
		Federated: &FederatedIdentity{Provider: provider, SubjectID: subjectID},
	}

	err = service.userRepository.InsertIfAbsent(context, candidate)
	switch {
	case err == nil:
		ctxutil.GetLogger(context).InfoContext(context, "federated_user_created",
			slog.String("provider", provider),
			slog.String("user_id", candidate.ID),
		)
		return candidate, nil
	case errors.Is(err, ErrDuplicateIdentity):
		user, err = service.userRepository.FindByFederatedID(context, provider, subjectID)
		if err != nil {
			return nil, asRepositoryFailure("federation_find_user_after_conflict_failed", err)
		}
		return user, nil
	default:
		return nil, asRepositoryFailure("federation_create_user_failed", err)
	}
}

// federationFailed hides the provider-side cause behind ErrFederationFailed.
func federationFailed(cause error) error {
	return apperr.FederationFailed(cause)
}
