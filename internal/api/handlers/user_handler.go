package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/accounts-be/internal/api/middleware"
	"github.com/isdelr/accounts-be/internal/api/respond"
	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/crud"
	"github.com/isdelr/accounts-be/internal/models"
	"github.com/isdelr/accounts-be/internal/services"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 1 << 20

// UserHandler handles HTTP requests for accounts: signup, login, the current
// user and the admin user management routes.
type UserHandler struct {
	users services.UserServiceProvider
	auth  services.AuthServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, auth services.AuthServiceProvider) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// TokenResponse is the body returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload models.UserCreate
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.users.CreateUser(r.Context(), payload)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		respond.Error(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Msg("User registered")
	respond.JSON(w, http.StatusCreated, user)
}

// Login exchanges form credentials for a bearer token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		respond.Error(w, r, apperrors.Validation("username and password are required"))
		return
	}

	user, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("email", email).Msg("Failed authentication attempt")
		respond.Error(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		respond.Error(w, r, err)
		return
	}

	respond.NoCache(w)
	respond.JSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Unauthorized(w)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// List handles listing users with offset/limit paging and ordering.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	users, err := h.users.ListUsers(r.Context(), page)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// Update applies a partial update to a user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var payload models.UserUpdate
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, payload)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", id).Msg("User updated")
	respond.JSON(w, http.StatusOK, user)
}

// Delete removes a user and returns the deleted record.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.DeleteUser(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", id).Msg("User deleted")
	respond.JSON(w, http.StatusOK, user)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.Validation("id must be an integer")
	}
	return id, nil
}

func parsePage(r *http.Request) (crud.Page, error) {
	q := r.URL.Query()
	page := crud.Page{OrderBy: q.Get("order_by")}

	var err error
	if v := q.Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			return crud.Page{}, apperrors.Validation("offset must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return crud.Page{}, apperrors.Validation("limit must be an integer")
		}
	}
	return page, nil
}
