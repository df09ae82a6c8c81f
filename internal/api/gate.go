package api

import (
	"fmt"
	"strconv"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"book-service/internal/entity"
	"book-service/internal/ratelimit"
	"book-service/internal/service"
)

// ContextUserKey is where the gate stores the authenticated *entity.User.
const ContextUserKey = "user"

// CurrentUser returns the user resolved by the gate, or nil on ungated routes.
func CurrentUser(c echo.Context) *entity.User {
	u, _ := c.Get(ContextUserKey).(*entity.User)
	return u
}

// Gate returns the middleware chain in front of every book route: the per-client request
// counter first, then bearer token authentication.
func Gate(limiter *ratelimit.WindowStore, users *service.UserService) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		windowLimiter(limiter),
		authenticate(users),
	}
}

func clientID(c echo.Context) (string, error) {
	return c.RealIP(), nil
}

func denyTooManyRequests(c echo.Context, identifier string, err error) error {
	c.Response().Header().Set("X-RateLimit-Remaining", "0")
	return entity.ErrTooManyRequests
}

func windowLimiter(store *ratelimit.WindowStore) echo.MiddlewareFunc {
	limit := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper:             middleware.DefaultSkipper,
		Store:               store,
		IdentifierExtractor: clientID,
		ErrorHandler: func(c echo.Context, err error) error {
			return entity.ErrTooManyRequests
		},
		DenyHandler: denyTooManyRequests,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		counted := func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(store.Limit()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(store.Remaining(c.RealIP())))
			return next(c)
		}
		return limit(counted)
	}
}

// credentialLimiter throttles /users and /login with echo's token bucket store.
func credentialLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(perSecond),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: clientID,
		ErrorHandler: func(c echo.Context, err error) error {
			return entity.ErrTooManyRequests
		},
		DenyHandler: denyTooManyRequests,
	})
}

func authenticate(users *service.UserService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: ContextUserKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return users.Principal(c.Request().Context(), auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
		},
	})
}
