// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は登録・ログインハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// OAuthBridgeInterface はGoogleサインインハンドラーが必要とするインターフェース。
type OAuthBridgeInterface interface {
	SignInWithAccessToken(ctx context.Context, accessToken string) (*auth.SignInResult, error)
	SignInWithCode(ctx context.Context, code string) (*auth.SignInResult, error)
}

// LoginURLProvider はGoogleの同意画面URLを生成する。
type LoginURLProvider interface {
	GetLoginURL(state string) string
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string // フロントエンドのURL。OAuthコールバック後のリダイレクト先
	CookieSecure bool
}

// AuthHandler は登録・ログイン・Googleサインインのハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	bridge    OAuthBridgeInterface
	loginURLs LoginURLProvider
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
// loginURLsがnilの場合、認可コードフローのハンドラーは登録しない前提とする。
func NewAuthHandler(service AuthServiceInterface, bridge OAuthBridgeInterface, loginURLs LoginURLProvider, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		bridge:    bridge,
		loginURLs: loginURLs,
		config:    config,
	}
}

type registerRequest struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	UserRole    string `json:"userRole"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userInfoRequest struct {
	AccessToken string `json:"accessToken"`
}

type userInfoResponse struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Token   string `json:"token"`
}

// Register はユーザーを登録し、トークンを返す。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	token, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		UserRole:    req.UserRole,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Registration successful",
		Token:   token,
	})
}

// Login はメールアドレスとパスワードを検証し、トークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
	})
}

// GoogleUserInfo はブラウザが取得したGoogleのアクセストークンでサインインする。
// POST /api/google/userinfo
func (h *AuthHandler) GoogleUserInfo(w http.ResponseWriter, r *http.Request) {
	var req userInfoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.bridge.SignInWithAccessToken(r.Context(), req.AccessToken)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, userInfoResponse{
		Success: true,
		Name:    result.User.Name,
		Email:   result.User.Email,
		Token:   result.Token,
	})
}

// GoogleLogin はGoogleの認可コードフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.loginURLs.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はGoogleからのコールバックを処理する。
// 成功時はフロントエンドのログイン画面にトークンをURLフラグメントで渡す。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		middleware.WriteErrorResponse(w, model.NewInputError(model.MsgInvalidOAuthState))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの交換とサインイン
	result, err := h.bridge.SignInWithCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectToLogin(w, r, url.Values{"error": {"authentication_failed"}})
		return
	}

	// 3. フロントエンドにリダイレクト
	h.redirectToLogin(w, r, url.Values{"token": {result.Token}})
}

// redirectToLogin はフロントエンドのログイン画面にリダイレクトする。
// 値はサーバーログやRefererに残らないようURLフラグメントに載せる。
func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request, fragment url.Values) {
	target := h.config.BaseURL + "/login#" + fragment.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
