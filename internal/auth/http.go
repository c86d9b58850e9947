// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/projectbase/idm/internal/platform/apperr"
	requestutil "github.com/projectbase/idm/internal/platform/request"
	"github.com/projectbase/idm/internal/platform/respond"
	"github.com/projectbase/idm/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the session-lifecycle HTTP endpoints.
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, JSON); every decision about tokens and sessions lives in [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /sign-in       : Authenticates credentials, returns a token pair.
//   - GET  /refresh-token : Rotates the token pair of the calling session.
//   - GET  /logout        : Revokes the calling session.
//   - GET  /is-secure     : Authenticated no-op probe.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/sign-in", handler.signIn)
	router.Get("/refresh-token", handler.refreshToken)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/logout", handler.logout)
		r.Get("/is-secure", handler.isSecure)
	})

	return router
}

// # Request Payloads

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// clientContext builds the [ClientContext] from the transport facts.
func clientContext(request *http.Request) ClientContext {
	return ClientContext{
		UserAgent: request.UserAgent(),
		IPAddress: requestutil.ClientIP(request),
	}
}

/*
SignIn authenticates a credential pair and establishes a session.

POST /api/v1/auth/sign-in

Description: Validates input, verifies credentials, and issues a paired
access/refresh token set bound to the caller's device fingerprint.

Request:
  - Body: signInRequest (Username, Password)

Response:
  - 200: TokenResult: The issued token pair
  - 400: ErrInvalidJSON / validation failure / LOGIN_FAILED
*/
func (handler *Handler) signIn(writer http.ResponseWriter, request *http.Request) {
	var input signInRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), input.Username, input.Password, clientContext(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
RefreshToken rotates the caller's token pair.

GET /api/v1/auth/refresh-token?refresh_token=...

Description: The caller must present an authenticated access identity (the
bearer token resolved by the middleware) and the matching live refresh token.
Both generations are replaced atomically.

Response:
  - 200: TokenResult: The fresh token pair
  - 400: Missing refresh_token parameter
  - 401: Unauthenticated caller or REFRESH_TOKEN_INVALID
  - 404: TOKEN_NOT_FOUND
*/
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	refreshToken := request.URL.Query().Get(FieldRefreshToken)
	if refreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "This field is required"))
		return
	}

	resolver := FromContext(request.Context())
	if !resolver.IsAuthenticated(request.Context()) {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	result, err := handler.authService.Refresh(
		request.Context(),
		resolver.AccessTokenID(request.Context()),
		resolver.UserID(request.Context()),
		refreshToken,
		clientContext(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Logout revokes the calling session.

GET /api/v1/auth/logout

Description: Soft-deletes the session correlated to the caller's access
token. Both tokens of the pair stop authenticating immediately.

Response:
  - 200: {"signed_out": true}
  - 404: TOKEN_NOT_FOUND
  - 500: LOGOUT_FAILED
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	resolver := FromContext(request.Context())

	err := handler.authService.Logout(request.Context(), resolver.AccessTokenID(request.Context()))
	if err != nil {
		if !apperr.IsAppError(err) {
			err = apperr.LogoutFailed(err)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"signed_out": true})
}

/*
IsSecure is an authenticated no-op used by clients to probe whether their
current access token still authenticates.

GET /api/v1/auth/is-secure

Response:
  - 200: {"secure": true}
  - 401: Unauthenticated
*/
func (handler *Handler) isSecure(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]bool{"secure": true})
}
