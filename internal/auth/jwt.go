package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Role is the kind of principal a token was issued to.
type Role string

const (
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey []byte
	voterTTL  time.Duration
	adminTTL  time.Duration
}

// Claims represents the custom JWT claims of a voter or admin session.
type Claims struct {
	Role Role `json:"role"`

	// Set for voter tokens only.
	ElectionID string `json:"election_id,omitempty"`
	VoterID    string `json:"voter_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`

	jwt.RegisteredClaims
}

// NewJWTManager creates a new JWT manager. secretKey should be a strong random
// string. Voter tokens are short lived since they only cover one ballot.
func NewJWTManager(secretKey string, voterTTL, adminTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		voterTTL:  voterTTL,
		adminTTL:  adminTTL,
	}
}

// VoterTTL returns how long voter tokens stay valid.
func (m *JWTManager) VoterTTL() time.Duration {
	return m.voterTTL
}

// AdminTTL returns how long admin tokens stay valid.
func (m *JWTManager) AdminTTL() time.Duration {
	return m.adminTTL
}

// GenerateVoter creates a token bound to one voting session.
func (m *JWTManager) GenerateVoter(electionID, voterID, sessionID string) (string, error) {
	return m.sign(&Claims{
		Role:       RoleVoter,
		ElectionID: electionID,
		VoterID:    voterID,
		SessionID:  sessionID,
	}, m.voterTTL)
}

// GenerateAdmin creates an administrator token.
func (m *JWTManager) GenerateAdmin() (string, error) {
	return m.sign(&Claims{Role: RoleAdmin}, m.adminTTL)
}

func (m *JWTManager) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if claims.VoterID != "" {
		claims.Subject = claims.VoterID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and validates a JWT token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	switch claims.Role {
	case RoleAdmin:
	case RoleVoter:
		if claims.ElectionID == "" || claims.VoterID == "" || claims.SessionID == "" {
			return nil, ErrInvalidToken
		}
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}
