// Package api is the HTTP surface of the book service.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"book-service/internal/ratelimit"
	"book-service/internal/service"
)

// Deps is everything NewServer wires together.
type Deps struct {
	Books   *service.BookService
	Users   *service.UserService
	Limiter *ratelimit.WindowStore

	AllowedOrigins    []string
	AuthRatePerSecond float64
	AuthBurst         int

	Logger zerolog.Logger
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// The rate limiter keys on the peer address; forwarded headers are not trusted.
	e.IPExtractor = echo.ExtractIPDirect()
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(d.Logger))
	e.Use(middleware.Recover())
	if len(d.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     d.AllowedOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderAuthorization,
			},
		}))
	}

	bookHandler := NewBookHandler(d.Books)
	userHandler := NewUserHandler(d.Users)

	// Routes
	throttle := credentialLimiter(d.AuthRatePerSecond, d.AuthBurst)
	e.POST("/users", userHandler.CreateUser, throttle)
	e.POST("/login", userHandler.Login, throttle)

	books := e.Group("/books", Gate(d.Limiter, d.Users)...)
	books.POST("", bookHandler.CreateBook)
	books.GET("", bookHandler.ListBooks)
	books.GET("/:id", bookHandler.GetBook)
	books.PUT("/:id", bookHandler.UpdateBook)
	books.DELETE("/:id", bookHandler.DeleteBook)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "book-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev = ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID)
			if u := CurrentUser(c); u != nil {
				ev = ev.Str("user", u.Username)
			}
			ev.Msg("request")
			return nil
		},
	})
}
