// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package secret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/ctxutil"
	"github.com/taibuivan/secrets/internal/platform/validate"
	"github.com/taibuivan/secrets/internal/users/auth"
)

// # Service Layer

// Service implements secret submission and listing.
type Service struct {
	repository Repository
	sessions   SessionResolver
}

// NewService constructs a new [Service].
func NewService(repository Repository, sessions SessionResolver) *Service {
	return &Service{repository: repository, sessions: sessions}
}

/*
Submit stores text as the secret of the user behind token, replacing any
previous secret.

Parameters:
  - context: context.Context
  - token: string (session token)
  - text: string

Returns:
  - error: ErrUnauthenticated, ValidationError or RepositoryFailure
*/
func (service *Service) Submit(context context.Context, token, text string) error {
	userID, ok, err := service.sessions.Resolve(context, token)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrUnauthenticated
	}

	text = strings.TrimSpace(text)

	validator := &validate.Validator{}
	validator.Required(FieldSecret, text).
		MaxLen(FieldSecret, text, MaxLength)

	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.repository.UpdateSecret(context, userID, text); err != nil {
		// The session outlived its account.
		if errors.Is(err, auth.ErrUserNotFound) {
			return auth.ErrUnauthenticated
		}
		return classify("secret_service_submit_failed", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "secret_submitted", slog.String("user_id", userID))
	return nil
}

/*
List returns every user holding a non-empty secret, oldest first. No session
is required.

Parameters:
  - context: context.Context

Returns:
  - []auth.User: Possibly empty
  - error: RepositoryFailure
*/
func (service *Service) List(context context.Context) ([]auth.User, error) {
	users, err := service.repository.FindAllWithSecret(context)
	if err != nil {
		return nil, classify("secret_service_list_failed", err)
	}
	return users, nil
}

func classify(operation string, err error) error {
	if apperr.IsAppError(err) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return fmt.Errorf("%s: %w", operation, apperr.RepositoryFailure(err))
}
