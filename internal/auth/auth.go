package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mkoval/runcoach-app/internal/domain"
)

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	UserID    uuid.UUID
	Role      domain.Role
	ExpiresAt time.Time
}

// Service is the authentication collaborator consumed by the use cases:
// password hashing plus issuance and verification of signed, time-limited
// tokens. Token lifecycle is issued -> valid -> expired; expiry is the only
// termination path, there is no revocation list.
type Service interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool
	IssueToken(userID uuid.UUID, role domain.Role) (string, error)
	VerifyToken(token string) (Identity, error)
}

// jwtService implements Service with bcrypt credentials and HS256 JWTs.
type jwtService struct {
	secret     string
	expiration time.Duration
}

// NewJWTService creates a new instance of jwtService.
func NewJWTService(secret string, expiration time.Duration) Service {
	if secret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if expiration <= 0 {
		expiration = time.Hour * 1
	}
	return &jwtService{secret: secret, expiration: expiration}
}

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *jwtService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *jwtService) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken mints a signed token carrying the user id and role.
func (s *jwtService) IssueToken(userID uuid.UUID, role domain.Role) (string, error) {
	expirationTime := time.Now().Add(s.expiration)
	claims := &jwtClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "runcoach-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken checks signature and expiry and returns the asserted identity.
// All failure modes collapse into domain.ErrAuthentication so callers never
// leak why a token was rejected.
func (s *jwtService) VerifyToken(tokenString string) (Identity, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: token expired", domain.ErrAuthentication)
		}
		return Identity{}, fmt.Errorf("%w: invalid token", domain.ErrAuthentication)
	}
	if !token.Valid || claims.UserID == "" || claims.Role == "" || claims.ExpiresAt == nil {
		return Identity{}, fmt.Errorf("%w: invalid token claims", domain.ErrAuthentication)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: invalid token subject", domain.ErrAuthentication)
	}

	return Identity{
		UserID:    userID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
