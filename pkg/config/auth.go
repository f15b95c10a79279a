package config

import "time"

// AuthConfig covers bearer verification only; identity is issued upstream
type AuthConfig struct {
	JWT JWTConfig
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       []string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			Issuer:         getEnv("JWT_ISSUER", "talentledger"),
			Audience:       getEnvStringSlice("JWT_AUDIENCE", []string{"talentledger-api"}),
		},
	}
}
