package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/handler"
	"github.com/iliyamo/theatre-reservation/internal/media"
	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/service"
)

// Deps is everything the routes need.  Redis and Publisher may be nil:
// caching and rate limiting then pass through and booking events are
// dropped.
type Deps struct {
	Cfg       config.Config
	DB        *sql.DB
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Media     config.MediaConfig
	Storage   media.Storage
	Publisher service.Publisher
}

// Setup builds repositories, services and handlers from d and registers
// every route on e.
func Setup(e *echo.Echo, d Deps) {
	e.Validator = NewValidator()

	genres := repository.NewGenreRepo(d.DB)
	actors := repository.NewActorRepo(d.DB)
	plays := repository.NewPlayRepo(d.DB)
	halls := repository.NewHallRepo(d.DB)
	perfs := repository.NewPerformanceRepo(d.DB)
	reservations := repository.NewReservationRepo(d.DB)

	booking := service.NewBooking(d.DB, reservations, perfs, d.Publisher)
	booking.EnforceHallCapacity = d.Cfg.EnforceHallCapacity
	images := service.NewImages(d.Storage, actors, plays, d.Media.MaxBytes)

	p := handler.Paginator{BaseURL: d.Cfg.PublicBaseURL}

	RegisterRoutes(e, d.DB)
	if local, ok := d.Storage.(*media.Local); ok {
		e.Static(d.Media.URLPrefix, local.Root)
	}
	RegisterAuth(e, handler.NewAuthHandler(d.Cfg, repository.NewUserRepo(d.DB), repository.NewTokenRepo(d.DB)), d.Cfg.JWTSecret)

	api := e.Group("/api/theatre",
		middleware.Authenticate(d.Cfg.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)
	RegisterCatalog(api,
		handler.NewCatalogHandler(p, genres, actors, plays, halls, images),
		handler.NewPerformanceHandler(p, perfs),
		middleware.NewRedisCache(d.Cache, d.Redis),
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
	)
	RegisterBooking(api, handler.NewBookingHandler(p, booking, reservations, repository.NewTicketRepo(d.DB)))
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account endpoints under /api/accounts.
// Registration and token endpoints are public; /me needs a valid access
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/accounts", middleware.Authenticate(jwtSecret))
	g.POST("/register", a.Register)
	g.POST("/token", a.Token)
	g.POST("/token/refresh", a.Refresh)
	g.POST("/token/verify", a.Verify)
	g.POST("/logout", a.Logout)

	// /me only reads and edits the caller's own account, so every
	// method counts as Safe here.
	me := middleware.Permission(middleware.Always(access.Safe))
	g.GET("/me", a.Me, me)
	g.PUT("/me", a.UpdateMe, me)
	g.PATCH("/me", a.UpdateMe, me)
}

// RegisterCatalog registers the catalog resources.  Reads need any
// authenticated user and go through the response cache; writes need
// staff and invalidate the cache when they succeed.
func RegisterCatalog(g *echo.Group, c *handler.CatalogHandler, pf *handler.PerformanceHandler, cache, invalidate echo.MiddlewareFunc) {
	perm := middleware.Permission(middleware.ByMethod)

	// ---- Genres ----
	g.GET("/genres", c.ListGenres, perm, cache)
	g.POST("/genres", c.CreateGenre, perm, invalidate)

	// ---- Actors ----
	g.GET("/actors", c.ListActors, perm, cache)
	g.POST("/actors", c.CreateActor, perm, invalidate)
	g.POST("/actors/:id/upload-image", c.UploadActorPhoto, perm, invalidate)

	// ---- Plays ----
	g.GET("/plays", c.ListPlays, perm, cache)
	g.POST("/plays", c.CreatePlay, perm, invalidate)
	g.GET("/plays/:id", c.GetPlay, perm, cache)
	g.PUT("/plays/:id", c.UpdatePlay, perm, invalidate)
	g.PATCH("/plays/:id", c.UpdatePlay, perm, invalidate)
	g.DELETE("/plays/:id", c.DeletePlay, perm, invalidate)
	g.POST("/plays/:id/upload-image", c.UploadPlayPoster, perm, invalidate)

	// ---- Theatre halls ----
	g.GET("/theatre-halls", c.ListHalls, perm, cache)
	g.POST("/theatre-halls", c.CreateHall, perm, invalidate)
	g.GET("/theatre-halls/:id", c.GetHall, perm, cache)
	g.PUT("/theatre-halls/:id", c.UpdateHall, perm, invalidate)
	g.PATCH("/theatre-halls/:id", c.UpdateHall, perm, invalidate)
	g.DELETE("/theatre-halls/:id", c.DeleteHall, perm, invalidate)

	// ---- Performances ----
	g.GET("/performances", pf.List, perm, cache)
	g.POST("/performances", pf.Create, perm, invalidate)
	g.GET("/performances/:id", pf.Get, perm, cache)
	g.PUT("/performances/:id", pf.Update, perm, invalidate)
	g.PATCH("/performances/:id", pf.Update, perm, invalidate)
	g.DELETE("/performances/:id", pf.Delete, perm, invalidate)
}

// RegisterBooking registers reservations and tickets.  Creating a
// reservation is open to every authenticated user; listings are scoped
// to the caller and never cached.
func RegisterBooking(g *echo.Group, b *handler.BookingHandler) {
	perm := middleware.Permission(middleware.ByMethod)
	g.GET("/reservations", b.ListReservations, perm)
	g.POST("/reservations", b.CreateReservation, middleware.Permission(middleware.Always(access.Booking)))
	g.GET("/reservations/:id", b.GetReservation, perm)
	g.GET("/tickets", b.ListTickets, perm)
	g.GET("/tickets/:id", b.GetTicket, perm)
}
