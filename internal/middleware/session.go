// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/model"
)

const bearerScheme = "bearer"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// auth.TokenIssuerが実装する。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// NewSessionMiddleware はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
// 検証に成功した場合はトークンのユーザーIDをリクエストコンテキストに注入する。
// トークンが無い場合と拒否された場合はどちらも401を返し、下流のハンドラーは呼ばない。
func NewSessionMiddleware(verifier TokenVerifier, recorder metrics.Recorder) func(next http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取り出す
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				recorder.RecordTokenVerification(metrics.TokenMissing)
				w.Header().Set("WWW-Authenticate", `Bearer`)
				WriteErrorResponse(w, model.NewUnauthenticatedError())
				return
			}

			// 2. 署名と有効期限を検証
			userID, err := verifier.Verify(token)
			if err != nil {
				recorder.RecordTokenVerification(metrics.TokenInvalid)
				slog.Debug("bearer token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				WriteErrorResponse(w, model.NewUnauthorizedError(err))
				return
			}
			recorder.RecordTokenVerification(metrics.TokenValid)

			// 3. 認証済みユーザーIDをコンテキストに注入
			setRequestUserID(r.Context(), userID)
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken は"Bearer <token>"形式のヘッダー値からトークンを取り出す。
// スキーム名は大文字小文字を区別しない。スキームが異なる場合やトークンが空の場合はfalseを返す。
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
