package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TrustProxy        bool
	Logger            *slog.Logger
	Recorder          metrics.Recorder

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService    AuthServiceInterface
	OAuthBridge    OAuthBridgeInterface
	GoogleLoginURL LoginURLProvider // nilの場合は認可コードフローを無効化する
	AuthConfig     AuthHandlerConfig

	// ユーザー・タスク
	UserService UserServiceInterface
	TaskService TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP(TrustProxy時) → Logging → SecurityHeaders → CORS
//	  保護ルート: → Session → RateLimit(General)
//	  登録・ログイン: → RateLimit(Auth)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Recorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.OAuthBridge, deps.GoogleLoginURL, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/api/google/userinfo", authHandler.GoogleUserInfo)
	})

	r.Get("/users", userHandler.ListUsers)
	r.Get("/tasks", taskHandler.ListTasks)

	// Google認可コードフロー
	if deps.GoogleLoginURL != nil {
		r.Get("/auth/google", authHandler.GoogleLogin)
		r.Get("/auth/google/callback", authHandler.GoogleCallback)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier, deps.Recorder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/profile", userHandler.Profile)
		r.Post("/tasks", taskHandler.CreateTask)

		// ユーザー管理
		r.Get("/dashboard", userHandler.ListUsers)
		r.Put("/dashboard/{userId}", userHandler.UpdateUser)
		r.Delete("/dashboard/{userId}", userHandler.DeleteUser)
	})

	return r
}
