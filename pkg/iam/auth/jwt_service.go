package auth

import (
	"fmt"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService is the HMAC-signed TokenService
type JWTService struct {
	secretKey      []byte
	accessTokenTTL time.Duration
	issuer         string
	audience       []string
	now            func() time.Time
}

func NewJWTServiceFromConfig(cfg *config.JWTConfig) *JWTService {
	return &JWTService{
		secretKey:      []byte(cfg.SecretKey),
		accessTokenTTL: cfg.AccessTokenTTL,
		issuer:         cfg.Issuer,
		audience:       cfg.Audience,
		now:            time.Now,
	}
}

// JWTClaims is the token payload
type JWTClaims struct {
	UserID  kernel.UserID `json:"user_id"`
	Email   string        `json:"email"`
	Name    string        `json:"name"`
	Scopes  []string      `json:"scopes"`
	Service bool          `json:"service,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for operators and service accounts.
// Recognised claims: email, name, scopes ([]string), service (bool), ttl (time.Duration).
func (j *JWTService) GenerateAccessToken(userID kernel.UserID, claims map[string]any) (string, error) {
	now := j.now()

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	scopes, _ := claims["scopes"].([]string)
	service, _ := claims["service"].(bool)
	ttl, ok := claims["ttl"].(time.Duration)
	if !ok || ttl <= 0 {
		ttl = j.accessTokenTTL
	}

	if scopes == nil {
		scopes = []string{}
	}

	jwtClaims := JWTClaims{
		UserID:  userID,
		Email:   email,
		Name:    name,
		Scopes:  scopes,
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID.String(),
			Audience:  j.audience,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry
func (j *JWTService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	}
	if len(j.audience) > 0 {
		opts = append(opts, jwt.WithAudience(j.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, opts...)

	if err != nil {
		return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
	}

	if !token.Valid {
		return nil, ErrTokenValidationFailed().WithDetail("error", "token is invalid")
	}

	jwtClaims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, ErrTokenValidationFailed().WithDetail("error", "invalid claims type")
	}

	return &TokenClaims{
		UserID:    jwtClaims.UserID,
		Email:     jwtClaims.Email,
		Name:      jwtClaims.Name,
		Scopes:    jwtClaims.Scopes,
		Service:   jwtClaims.Service,
		IssuedAt:  jwtClaims.IssuedAt.Time,
		ExpiresAt: jwtClaims.ExpiresAt.Time,
	}, nil
}
