package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, actorID, targetID string, fields model.UserFields) (*model.User, error)
	Delete(ctx context.Context, actorID, targetID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type updateUserRequest struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	UserRole    string `json:"userRole"`
	Email       string `json:"email"`
}

// ListUsers は全ユーザーを返す。
// GET /users, GET /dashboard
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dataResponse{
		Success: true,
		Data:    toUserResponses(users),
	})
}

// Profile は認証済みユーザー自身のプロフィールを返す。
// GET /profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dataResponse{
		Success: true,
		Data: profileResponse{
			Name:        user.Name,
			DateOfBirth: user.DateOfBirth,
			UserRole:    user.UserRole,
			Email:       user.Email,
		},
	})
}

// UpdateUser は指定ユーザーのプロフィールを更新する。
// PUT /dashboard/{userId}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewUnauthenticatedError())
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	_, err = h.service.Update(r.Context(), actorID, chi.URLParam(r, "userId"), model.UserFields{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		UserRole:    req.UserRole,
		Email:       req.Email,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "User updated successfully",
	})
}

// DeleteUser は指定ユーザーを削除する。
// DELETE /dashboard/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.Delete(r.Context(), actorID, chi.URLParam(r, "userId")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "User deleted successfully",
	})
}
