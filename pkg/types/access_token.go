package types

const DEFAULT_ACCESS_TOKEN_VERSION = "v1"

type AccessToken struct {
	ID        int64  `json:"id" db:"id"`
	Appid     string `json:"appid" db:"appid"`
	UserID    string `json:"user_id" db:"user_id"`
	Version   string `json:"version" db:"version"`
	Token     string `json:"token" db:"token"`
	Info      string `json:"info" db:"info"`
	ExpiresAt int64  `json:"expires_at" db:"expires_at"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
