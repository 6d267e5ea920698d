// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/handler"
	"github.com/hitoshi/taskman/internal/logger"
	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/task"
	"github.com/hitoshi/taskman/internal/user"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間の上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と genkey は署名鍵やDBを必要としないため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		return runHealthcheck(healthcheckURL())
	case CommandGenKey:
		path := config.DefaultEnvFile
		if len(args) > 1 && args[1] != "" {
			path = args[1]
		}
		if err := runGenKey(path); err != nil {
			return err
		}
		fmt.Fprintf(w, "SECRET_KEY written to %s\n", path)
		return nil
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.Port),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// buildRouter は設定とCredential Storeから全依存関係をワイヤリングしてルーターを返す。
// 返されたRateLimiterはシャットダウン時に停止する必要がある。
func buildRouter(cfg *config.Config, st *store) (http.Handler, *middleware.RateLimiter, error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(reg)

	// 2. トークンとパスワード
	tokens, err := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// 3. Google OAuth
	google := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Timeout:      cfg.OAuthTimeout,
	})
	var exchanger auth.CodeExchanger
	var loginURLs handler.LoginURLProvider
	if cfg.GoogleOAuthEnabled() {
		exchanger = google
		loginURLs = google
	} else {
		slog.Info("google authorization code flow disabled: client credentials not configured")
	}

	// 4. ドメインサービス
	authService := auth.NewService(st.users, hasher, tokens, recorder)
	bridge := auth.NewBridge(google, exchanger, st.users, tokens, recorder)
	userService := user.NewService(st.users)
	taskService := task.NewService(st.tasks)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAuth, cfg.RateLimitGeneral))

	deps := &handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TrustProxy:        cfg.TrustProxy,
		Logger:            slog.Default(),
		Recorder:          recorder,

		HealthChecker:  st.health,
		MetricsHandler: metrics.Handler(reg),

		AuthService:    authService,
		OAuthBridge:    bridge,
		GoogleLoginURL: loginURLs,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieSecure: cfg.TLSEnabled() || strings.HasPrefix(cfg.BaseURL, "https://"),
		},

		UserService: userService,
		TaskService: taskService,
	}

	return handler.NewRouter(deps), rateLimiter, nil
}

// runServe はAPIサーバーモードで起動する。
// Credential Storeを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. Credential Store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer st.Close()

	slog.Info("credential store connection established",
		slog.String("driver", string(st.driver)),
		slog.String("database_url", maskDatabaseURL(cfg.DBConnectionString)),
	)

	// 2. ルーター
	router, rateLimiter, err := buildRouter(cfg, st)
	if err != nil {
		return err
	}
	defer rateLimiter.Stop()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("tls", cfg.TLSEnabled()),
		)
		var err error
		if cfg.TLSEnabled() {
			err = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はCredential Storeのスキーマを適用する。
// PostgreSQLはgolang-migrateで未適用マイグレーションを順番に適用する。
// SQLiteとMongoDBは接続時にスキーマとインデックスを適用する。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DBConnectionString)),
	)

	driver, err := database.DriverFromURL(cfg.DBConnectionString)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if driver == database.DriverPostgres {
		if err := database.RunMigrations(cfg.DBConnectionString); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		st.Close()
	}

	slog.Info("database migrations completed successfully", slog.String("driver", string(driver)))
	return nil
}

// healthcheckURL は自プロセスの/healthエンドポイントのURLを環境変数から組み立てる。
func healthcheckURL() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	scheme := "http"
	if os.Getenv("TLS_CERT_FILE") != "" && os.Getenv("TLS_KEY_FILE") != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://localhost:%s/health", scheme, port)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(target string) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			// 宛先はループバックのみ。自己署名証明書でも通す
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	if strings.HasPrefix(raw, "sqlite://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}
