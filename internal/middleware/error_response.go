package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskman/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// StatusForKind はエラー分類に対応するHTTPステータスコードを返す。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindInput, model.KindConflict:
		return http.StatusBadRequest
	case model.KindUnauthenticated, model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON は任意の値をJSONとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ステータスコードはエラー分類から決まる。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	WriteJSON(w, StatusForKind(apiErr.Kind), ErrorResponseBody{
		Success: false,
		Error:   apiErr.Message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, &model.APIError{Kind: model.KindInternal, Message: model.MsgInternal})
}

// WriteError はサービス層から返されたエラーをレスポンスに変換する。
// *model.APIError以外のエラーはログに記録して500を返す。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteInternalServerError(w)
		return
	}

	if StatusForKind(apiErr.Kind) >= http.StatusInternalServerError {
		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("kind", string(apiErr.Kind)),
		}
		if apiErr.Err != nil {
			attrs = append(attrs, slog.String("error", apiErr.Err.Error()))
		}
		slog.Error("request failed", attrs...)
	}
	WriteErrorResponse(w, apiErr)
}
