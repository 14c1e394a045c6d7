package auth

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"cmms.GO/config"
	"cmms.GO/core/actor"
	entity "cmms.GO/model/entity"
	authRepo "cmms.GO/model/repository/auth"
)

// ContextKey holds the authenticated actor.Actor on the echo context.
const ContextKey = "actor"

// Middleware returns the auth middleware based on AUTH_TYPE env var.
func Middleware(db *gorm.DB) echo.MiddlewareFunc {
	skipper := buildSkipper()
	authType := os.Getenv("AUTH_TYPE")
	switch authType {
	case "key":
		return keyAuth(skipper)
	case "token":
		return tokenAuth(authRepo.NewAuthRepository(db), skipper)
	default:
		return basicAuth(skipper)
	}
}

// From returns the actor set by the middleware.
func From(c echo.Context) actor.Actor {
	if a, ok := c.Get(ContextKey).(actor.Actor); ok {
		return a
	}
	return actor.Actor{}
}

func buildSkipper() middleware.Skipper {
	skipPaths := config.GetAuthSkipperPaths()
	return func(c echo.Context) bool {
		path := c.Path()
		for _, skip := range skipPaths {
			if path == skip {
				return true
			}
		}
		return false
	}
}

func basicAuth(skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: func(username, password string, c echo.Context) (bool, error) {
			if username != os.Getenv("API_USER") || password != os.Getenv("API_PASS") {
				return false, nil
			}
			c.Set(ContextKey, actor.Actor{Admin: true})
			return true, nil
		},
		Skipper: skipper,
	})
}

// keyAuth accepts API_KEY as an operator and ADMIN_API_KEY as an admin.
func keyAuth(skipper middleware.Skipper) echo.MiddlewareFunc {
	apiKey := os.Getenv("API_KEY")
	adminKey := os.Getenv("ADMIN_API_KEY")
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			switch {
			case adminKey != "" && key == adminKey:
				c.Set(ContextKey, actor.Actor{Admin: true})
			case apiKey != "" && key == apiKey:
				c.Set(ContextKey, actor.Actor{})
			default:
				return false, nil
			}
			return true, nil
		},
		Skipper: skipper,
	})
}

func tokenAuth(repo *authRepo.AuthRepository, skipper middleware.Skipper) echo.MiddlewareFunc {
	staticKey := os.Getenv("ADMIN_API_KEY")
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(token string, c echo.Context) (bool, error) {
			if staticKey != "" && token == staticKey {
				c.Set(ContextKey, actor.Actor{Admin: true})
				return true, nil
			}
			t, err := repo.FindActiveToken(token)
			if err != nil {
				return false, nil
			}
			c.Set(ContextKey, fromToken(t))
			return true, nil
		},
		Skipper: skipper,
	})
}

// fromToken binds the caller to the token's organization.
func fromToken(t *entity.ApiToken) actor.Actor {
	return actor.Actor{
		UserID:         t.UserID,
		OrganizationID: t.OrganizationID,
		Admin:          t.Role == entity.RoleAdmin,
	}
}
