package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tablify/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minSecretLen = 8

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errClientExists       = errors.New("client already exists")
)

// createClient stores a new API client with a bcrypt-hashed secret.
func createClient(db *gorm.DB, name, secret, role string) (models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Client{}, fmt.Errorf("client name required")
	}
	if len(secret) < minSecretLen {
		return models.Client{}, fmt.Errorf("secret too short (min %d)", minSecretLen)
	}
	if role == "" {
		role = models.RoleClient
	}
	// pre-check existing (optimistic)
	var existing models.Client
	if err := db.Where("name = ?", name).First(&existing).Error; err == nil {
		return models.Client{}, errClientExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return models.Client{}, err
	}
	r := models.Role{Name: role}
	if err := db.Where("name = ?", role).FirstOrCreate(&r).Error; err != nil {
		return models.Client{}, fmt.Errorf("ensure role %s: %w", role, err)
	}
	client := models.Client{Name: name, HashedSecret: hashed, RoleID: &r.ID, Role: r}
	if err := db.Omit("Role").Create(&client).Error; err != nil {
		if isUniqueConstraintError(err) { // race after the pre-check
			return models.Client{}, errClientExists
		}
		return models.Client{}, err
	}
	return client, nil
}

// authenticateClient checks name and secret against the stored hash.
func authenticateClient(db *gorm.DB, name, secret string) (models.Client, error) {
	var client models.Client
	if err := db.Preload("Role").Where("name = ?", strings.TrimSpace(name)).First(&client).Error; err != nil {
		return models.Client{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(client.HashedSecret, []byte(secret)); err != nil {
		return models.Client{}, errInvalidCredentials
	}
	return client, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// tokenClaims identifies the caller of a protected route.
type tokenClaims struct {
	Client string `json:"client"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 token for client valid for ttl.
func issueToken(secret []byte, client, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Client: client,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken validates an HMAC-signed token and returns its claims.
func parseToken(secret []byte, tokenString string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Client == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
