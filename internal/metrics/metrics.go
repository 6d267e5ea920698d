// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証操作の種別
const (
	OperationRegister    = "register"
	OperationLogin       = "login"
	OperationOAuthSignIn = "oauth_signin"
)

// 認証操作の結果
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeError              = "error"
)

// トークン検証の結果
const (
	TokenValid   = "valid"
	TokenMissing = "missing"
	TokenInvalid = "invalid"
)

// Recorder はメトリクス記録のインターフェース。
// 認証サービスやミドルウェアから利用する。
type Recorder interface {
	RecordAuthAttempt(operation, outcome string)
	RecordTokenVerification(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts       *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	requestLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_auth_attempts_total",
			Help: "認証操作（登録・ログイン・OAuthサインイン）の結果別の合計数",
		}, []string{"operation", "outcome"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_token_verifications_total",
			Help: "セッショントークン検証の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.tokenVerifications,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordAuthAttempt は認証操作の結果を記録する。
func (c *Collector) RecordAuthAttempt(operation, outcome string) {
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(result string) {
	c.tokenVerifications.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// NopRecorder は何も記録しないRecorder。テストやメトリクス無効時に使う。
type NopRecorder struct{}

func (NopRecorder) RecordAuthAttempt(string, string)   {}
func (NopRecorder) RecordTokenVerification(string)     {}
func (NopRecorder) RecordHTTPStatus(int)               {}
func (NopRecorder) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = NopRecorder{}
)
