package entity

import "time"

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Credentials is the username/password pair sent to /users and /login.
type Credentials struct {
	Username string `json:"username" form:"username" validate:"notblank,max=50"`
	Password string `json:"password" form:"password" validate:"notblank,maxbytes=72"`
}

func (c Credentials) Validate() error {
	return validateStruct(c)
}

// Token is the login response.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
