package model

import "fmt"

// ErrorKind はAPIエラーの分類を表す。
// 分類ごとにHTTPステータスコードが決まる。
type ErrorKind string

const (
	KindInput           ErrorKind = "input_error"     // 400
	KindConflict        ErrorKind = "conflict"        // 400
	KindUnauthenticated ErrorKind = "unauthenticated" // 401: 資格情報なし
	KindUnauthorized    ErrorKind = "unauthorized"    // 401: 資格情報が拒否された
	KindNotFound        ErrorKind = "not_found"       // 404
	KindUpstream        ErrorKind = "upstream_error"  // 500
	KindInternal        ErrorKind = "internal_error"  // 500
)

// クライアントに返すエラーメッセージ
const (
	MsgAllFieldsRequired        = "All fields are required"
	MsgUserAlreadyExists        = "User already exists"
	MsgCredentialsRequired      = "Email and password are required"
	MsgInvalidCredentials       = "Invalid credentials"
	MsgUserNotFound             = "User not found"
	MsgAuthenticationRequired   = "Authentication required"
	MsgUnauthorized             = "Unauthorized"
	MsgAccessTokenMissing       = "Access token is missing"
	MsgAuthorizationCodeMissing = "Authorization code is missing"
	MsgUpstreamFailed           = "Failed to retrieve user information"
	MsgTaskNameRequired         = "Task is required"
	MsgInvalidRequestBody       = "Invalid request body"
	MsgInvalidOAuthState        = "Invalid state parameter"
	MsgInternal                 = "Internal server error"
)

// APIError はハンドラーでHTTPレスポンスに変換されるエラーを表す。
// Errには原因となったエラーを保持し、ログにのみ出力する。
type APIError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewInputError はリクエスト内容の不備を表すエラーを生成する。
func NewInputError(message string) *APIError {
	return &APIError{Kind: KindInput, Message: message}
}

// NewConflictError はメールアドレス重複エラーを生成する。
func NewConflictError() *APIError {
	return &APIError{Kind: KindConflict, Message: MsgUserAlreadyExists}
}

// NewUnauthenticatedError は資格情報が提示されなかった場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{Kind: KindUnauthenticated, Message: MsgAuthenticationRequired}
}

// NewUnauthorizedError は提示された資格情報が拒否された場合のエラーを生成する。
func NewUnauthorizedError(err error) *APIError {
	return &APIError{Kind: KindUnauthorized, Message: MsgUnauthorized, Err: err}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: MsgUserNotFound}
}

// NewUpstreamError は外部IdPとの通信失敗を表すエラーを生成する。
func NewUpstreamError(err error) *APIError {
	return &APIError{Kind: KindUpstream, Message: MsgUpstreamFailed, Err: err}
}

// NewInternalError は想定外の内部エラーを生成する。
func NewInternalError(err error) *APIError {
	return &APIError{Kind: KindInternal, Message: MsgInternal, Err: err}
}
