package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevokedToken records a logged-out token until it would have expired anyway.
type RevokedToken struct {
	ID        ObjectID  `bson:"_id,omitempty" json:"id"`
	TokenHash string    `bson:"token_hash" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

type RegisterResponse struct {
	ID string `json:"id"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims is the payload of an issued bearer token. Subject carries the user id.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Tier  Tier   `json:"tier"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() ObjectID {
	return ObjectID(c.Subject)
}
