// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package secret

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/secrets/internal/platform/request"
	"github.com/taibuivan/secrets/internal/platform/respond"
	"github.com/taibuivan/secrets/internal/platform/validate"
	"github.com/taibuivan/secrets/internal/users/auth"
)

// Handler implements the HTTP layer for secrets.
type Handler struct {
	secretService *Service
}

// NewHandler constructs a new secret [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{secretService: service}
}

// Routes returns a [chi.Router] configured with the secret endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Post("/", handler.submit)

	return router
}

type submitRequest struct {
	Secret string `json:"secret"`
}

/*
GET /api/v1/secrets.

Description: Lists the published secrets. Authors are not disclosed.

Response:
  - 200: {"secrets": []string}
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.secretService.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	secrets := make([]string, 0, len(users))
	for _, user := range users {
		secrets = append(secrets, user.Secret)
	}

	respond.OK(writer, map[string]any{
		"secrets": secrets,
	})
}

/*
POST /api/v1/secrets.

Request:
  - Cookie: session
  - Body: submitRequest (Secret)

Response:
  - 204: Secret stored
  - 400: Invalid JSON or empty secret
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) submit(writer http.ResponseWriter, request *http.Request) {
	var input submitRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.secretService.Submit(request.Context(), auth.SessionTokenFromRequest(request), input.Secret); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
