package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenClaims represents JWT claims carrying the actor descriptor.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Role     Role       `json:"role"`
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
}

// Actor converts the claims into the actor descriptor used by guarded
// operations.
func (c *TokenClaims) Actor() Actor {
	return Actor{
		ID:       c.UserID,
		Username: c.Username,
		Role:     c.Role,
		BranchID: c.BranchID,
	}
}
