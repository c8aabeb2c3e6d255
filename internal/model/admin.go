package model

// Admin is a dashboard account. PasswordHash is a bcrypt hash.
type Admin struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
