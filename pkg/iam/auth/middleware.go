package auth

import (
	"strings"

	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type AuthMiddleware struct {
	tokenService TokenService
}

func NewAuthMiddleware(tokenService TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

// Authenticate resolves the bearer token (header or access_token cookie) into
// a kernel.AuthContext stored under the "auth" local
func (am *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearer(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ErrUnauthorized().Error(),
			})
		}

		claims, err := am.tokenService.ValidateAccessToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		userID := claims.UserID
		authContext := &kernel.AuthContext{
			UserID:  &userID,
			Email:   claims.Email,
			Name:    claims.Name,
			Scopes:  claims.Scopes,
			Service: claims.Service,
		}

		c.Locals("auth", authContext)
		return c.Next()
	}
}

// RequireScope requires a specific scope
func (am *AuthMiddleware) RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := GetAuthContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if !authContext.HasScope(scope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":          "Insufficient permissions",
				"required_scope": scope,
			})
		}

		return c.Next()
	}
}

// RequireAdmin only lets "*" or "admin:*" holders through
func (am *AuthMiddleware) RequireAdmin() fiber.Handler {
	return am.RequireAnyScope(scopes.ScopeAll, scopes.ScopeAdminAll)
}

// RequireAnyScope requires any of the provided scopes
func (am *AuthMiddleware) RequireAnyScope(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := GetAuthContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if !authContext.HasAnyScope(required...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":           "Insufficient permissions",
				"required_scopes": required,
			})
		}

		return c.Next()
	}
}

func extractBearer(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies("access_token")
}

// GetAuthContext extracts the auth context from the fiber locals
func GetAuthContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals("auth").(*kernel.AuthContext)
	return authContext, ok && authContext != nil && authContext.IsValid()
}
