// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/secrets/internal/platform/constants"
	"github.com/taibuivan/secrets/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/secrets/internal/platform/request"
	"github.com/taibuivan/secrets/internal/platform/respond"
)

// SessionResolver maps an opaque session token to its user.
//
// Defining it here keeps the middleware independent of the auth package,
// which provides the concrete implementation.
type SessionResolver interface {
	Resolve(context context.Context, token string) (userID string, ok bool, err error)
}

// Authenticate resolves the session cookie, if any, and binds its user to
// the request context.
//
// # Flow
//  1. No cookie: the request proceeds as anonymous.
//  2. Unknown, expired or invalidated token: the request proceeds as anonymous.
//  3. Session store failure: logged, then the request proceeds as anonymous.
//     Routes that need a user reject it themselves.
//  4. Valid session: inject the user id and a logger carrying it.
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cookie, err := request.Cookie(constants.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}

			userID, ok, err := resolver.Resolve(request.Context(), cookie.Value)
			if err != nil {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "session_resolve_failed",
					slog.Any("error", err),
				)
				next.ServeHTTP(writer, request)
				return
			}
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithUserID(request.Context(), userID)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", userID)))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if _, err := requestutil.RequiredUserID(request); err != nil {
			respond.Error(writer, request, err)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
