// Package model はドメインモデルを定義する。
package model

import "time"

const (
	// DefaultUserRole はOAuth経由で自動作成されるユーザーのロール。
	DefaultUserRole = "user"

	// OAuthPlaceholderDateOfBirth はOAuth経由で自動作成されるユーザーの仮の生年月日。
	// プロバイダーのプロフィールには生年月日が含まれないため固定値を入れる。
	OAuthPlaceholderDateOfBirth = "1980-12-25"
)

// User はサービス利用ユーザーを表す。
// PasswordHashは平文パスワードを保持しない。
type User struct {
	ID           string
	Name         string
	DateOfBirth  string
	UserRole     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFields はプロフィール編集で更新可能なフィールドの集合。
type UserFields struct {
	Name        string
	DateOfBirth string
	UserRole    string
	Email       string
}

// Apply はフィールドをユーザーに反映する。
func (f UserFields) Apply(u *User) {
	u.Name = f.Name
	u.DateOfBirth = f.DateOfBirth
	u.UserRole = f.UserRole
	u.Email = f.Email
}

// OAuthProfile は外部IdPから取得したプロフィールを表す。
// 永続化はせず、メールアドレスの一致でローカルユーザーに紐付ける。
type OAuthProfile struct {
	Name  string
	Email string
}
