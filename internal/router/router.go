package router // package router registers the HTTP routes of the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/handler"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// Handlers groups every handler the routes dispatch to.
type Handlers struct {
	Auth          *handler.AuthHandler
	Reservations  *handler.ReservationHandler
	Feedback      *handler.FeedbackHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
	Catalog       *handler.CatalogHandler
}

// Options carries the middleware settings.  A nil Redis client disables
// rate limiting and caching.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// Register wires all routes onto e.  Middleware is attached per route so
// unknown paths still fall through to echo's 404.
func Register(e *echo.Echo, db *sql.DB, h Handlers, opt Options) {
	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)
	cache := middleware.NewRedisCache(opt.Cache, opt.Redis)

	e.GET("/healthz", handler.Health(db))

	// Public auth endpoints are limited per IP.
	e.POST("/auth/signup", h.Auth.Signup, limit)
	e.POST("/auth/token", h.Auth.Token, limit)
	e.POST("/auth/refresh", h.Auth.Refresh, limit)
	e.POST("/auth/logout", h.Auth.Logout, limit)

	user := []echo.MiddlewareFunc{
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleAdmin),
		limit,
	}
	e.GET("/auth/me", h.Auth.Me, user...)

	e.GET("/halls", h.Catalog.ListHalls, append(user, cache)...)
	e.GET("/resources", h.Catalog.ListResources, append(user, cache)...)

	e.POST("/reservations", h.Reservations.Create, user...)
	e.GET("/reservations", h.Reservations.List, user...)
	e.GET("/reservations/past-approved", h.Reservations.PastApproved, user...)
	e.GET("/reservations/:id", h.Reservations.Get, user...)
	e.PUT("/reservations/:id", h.Reservations.Update, user...)
	e.DELETE("/reservations/:id", h.Reservations.Cancel, user...)
	e.GET("/check-availability", h.Reservations.CheckAvailability, user...)

	e.POST("/feedback", h.Feedback.Submit, user...)
	e.GET("/feedback/reservation/:id", h.Feedback.ForReservation, user...)

	e.GET("/notifications", h.Notifications.List, user...)
	e.GET("/notifications/count", h.Notifications.Count, user...)
	e.PUT("/notifications/read-all", h.Notifications.MarkAllRead, user...)
	e.PUT("/notifications/:id/read", h.Notifications.MarkRead, user...)

	RegisterAdmin(e, h, repository.NewUserRepo(db), opt.JWTSecret, limit, cache)
}

// RegisterAdmin registers ADMIN-scoped endpoints under /admin.  Besides the
// token role, each request checks that the stored account is still an
// administrator.
func RegisterAdmin(e *echo.Echo, h Handlers, users middleware.AccountLookup, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/admin")
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.RequireStoredAdmin(users),
		limit,
	}

	// ---- Reservations ----
	g.GET("/reservations", h.Admin.ListReservations, admin...)
	g.PUT("/reservations/:id/approve", h.Admin.Approve, admin...)
	g.PUT("/reservations/:id/deny", h.Admin.Deny, admin...)
	g.GET("/calendar", h.Admin.Calendar, admin...)
	g.GET("/feedback", h.Feedback.List, admin...)
	g.GET("/users", h.Admin.Users, admin...)

	// ---- Catalogue ----
	g.GET("/halls", h.Catalog.ListHalls, append(admin, cache)...)
	g.POST("/halls", h.Catalog.CreateHall, admin...)
	g.PUT("/halls/:id", h.Catalog.UpdateHall, admin...)
	g.GET("/resources", h.Catalog.ListResources, append(admin, cache)...)
	g.POST("/resources", h.Catalog.CreateResource, admin...)
	g.DELETE("/resources/:id", h.Catalog.DeleteResource, admin...)
}
