package types

type User struct {
	ID        string `json:"id" db:"id"`
	Appid     string `json:"appid" db:"appid"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email" db:"email"`
	Avatar    string `json:"avatar" db:"avatar"`
	Role      string `json:"role" db:"role"`
	Salt      string `json:"-" db:"salt"`
	Password  string `json:"-" db:"password"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// ConnectedUser is the verified identity attached to a realtime session
// after the handshake token passes verification.
type ConnectedUser struct {
	ID    string `json:"userId"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ListUserOptions struct {
	IDs   []string
	Email string
	Role  string
}

type UserTokenMeta struct {
	Appid    string `json:"appid"`
	UserID   string `json:"user_id"`
	ExpireAt int64  `json:"expire_at"`
}
