package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator validates bearer tokens issued by the account service.
type Authenticator interface {
	GenerateAccessToken(userID int64, role string) (string, error)
	ValidateAccessToken(token string) (*jwt.Token, error)
}
