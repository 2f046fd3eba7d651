package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/service"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserRoleKey = "userRole"
)

// AuthMiddleware creates a Gin middleware that resolves the bearer token into
// a caller identity. Token verification lives in the auth use case; this
// layer only extracts the header and stores the result in the context.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		identity, err := authService.ResolveCurrentUser(c.Request.Context(), parts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextUserRoleKey, identity.Role)
		c.Next()
	}
}

// RoleMiddleware checks the authenticated caller's role against an allow
// list. Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Caller identity not found in context")
			return
		}

		for _, role := range allowedRoles {
			if caller.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "Access denied for role "+string(caller.Role))
	}
}

// callerFromContext rebuilds the service-layer caller from what
// AuthMiddleware stored.
func callerFromContext(c *gin.Context) (service.Caller, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return service.Caller{}, errors.New("user ID not found in context")
	}
	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return service.Caller{}, errors.New("user role not found in context")
	}

	caller := service.Caller{}
	var ok bool
	if caller.ID, ok = idRaw.(uuid.UUID); !ok {
		return service.Caller{}, errors.New("invalid user ID type in context")
	}
	if caller.Role, ok = roleRaw.(domain.Role); !ok {
		return service.Caller{}, errors.New("invalid user role type in context")
	}
	return caller, nil
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// parseIDParam parses a UUID path parameter.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// pageFromQuery reads offset/limit query parameters; the repository applies
// its default when limit is absent.
func pageFromQuery(c *gin.Context) repository.Page {
	var page repository.Page
	if v, err := strconv.ParseInt(c.Query("offset"), 10, 64); err == nil && v > 0 {
		page.Offset = v
	}
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v > 0 {
		page.Limit = v
	}
	return page
}

// respondError maps a service error onto an HTTP status through the error
// taxonomy. Unclassified errors are reported opaquely so internals never
// leak into responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAuthentication):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAuthorization):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransient):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
