package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// NewCORSMiddleware はフロントエンドのオリジンからのアクセスを許可するCORSミドルウェアを返す。
// ベアラートークンを送るためAuthorizationヘッダーを許可する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Cross-Origin-Opener-Policy"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}
