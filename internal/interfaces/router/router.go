package router

import (
	"fmt"
	"net/http"

	appsvc "showroom-backend/internal/app"
	"showroom-backend/internal/application/health"
	authsvc "showroom-backend/internal/application/auth"
	"showroom-backend/internal/config"
	"showroom-backend/internal/infrastructure/database"
	authhandler "showroom-backend/internal/interfaces/handlers/auth"
	candhandler "showroom-backend/internal/interfaces/handlers/candidatures"
	cronhandler "showroom-backend/internal/interfaces/handlers/cron"
	healthhandler "showroom-backend/internal/interfaces/handlers/health"
	ledgerhandler "showroom-backend/internal/interfaces/handlers/ledger"
	listhandler "showroom-backend/internal/interfaces/handlers/listings"
	notifhandler "showroom-backend/internal/interfaces/handlers/notifications"
	payhandler "showroom-backend/internal/interfaces/handlers/paymentrequests"
	placehandler "showroom-backend/internal/interfaces/handlers/placements"
	uploadhandler "showroom-backend/internal/interfaces/handlers/uploads"
	"showroom-backend/internal/middleware"
	"showroom-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// CreateApp builds the HTTP app. Services is nil when no database is configured;
// only health and auth routes are mounted then.
func CreateApp(cfg *config.Config) (*fiber.App, *appsvc.Services, error) {
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
		CookieDomain:      cfg.CookieDomain,
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, nil, fmt.Errorf("automigrate: %w", err)
			}
		}
	} else {
		log.Warn().Msg("no database URL configured, partnership routes disabled")
	}

	var services *appsvc.Services
	if db != nil {
		services, err = appsvc.NewServices(cfg, db, rdb)
		if err != nil {
			return nil, nil, err
		}
	}
	return Mount(cfg, sessionHandler, rdb, services), services, nil
}

// Mount wires middleware and routes over already-built dependencies.
func Mount(cfg *config.Config, sessionHandler fiber.Handler, rdb *redis.Client, services *appsvc.Services) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		AllowedOrigins: []string{cfg.FrontendURL},
		DevPassword:    cfg.DevPassword,
	}))
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if services != nil {
		db = services.DB
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             db,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if cfg.FrontendURL != "" {
		hh.Probes = []health.Probe{{Name: "frontend", URL: cfg.FrontendURL}}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
		CookieDomain:      cfg.CookieDomain,
	}
	ah := &authhandler.Handlers{Rdb: rdb, Config: sessionCfg, DB: db}
	if db != nil {
		ah.UserFinder = &authsvc.GormUserFinder{DB: db}
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if services == nil {
		return app
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst).Middleware()
	partner := []fiber.Handler{middleware.RequireAuth(), middleware.AuthorizePermission(constants.Partner)}
	viewer := []fiber.Handler{middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewData)}

	// Showroom listings and commission options
	lh := &listhandler.Handlers{Service: services.Listings}
	lg := app.Group("/api/v1/showrooms", viewer...)
	lg.Get("/:showroom_id/listings", lh.ShowroomListings)
	lg.Get("/:showroom_id/commission-options", lh.ShowroomOptions)
	app.Get("/api/v1/listings/:listing_id", append(viewer, lh.GetListing)...)

	// Candidatures
	ch := &candhandler.Handlers{Service: services.Candidatures}
	cg := app.Group("/api/v1/candidatures", partner...)
	cg.Get("/", ch.List)
	cg.Get("/:id", ch.Get)
	cg.Post("/", limiter, ch.Submit)
	cg.Patch("/:id", limiter, ch.Edit)
	cg.Post("/:id/accept", limiter, ch.Accept)
	cg.Post("/:id/reject", limiter, ch.Reject)
	cg.Post("/:id/cancel", limiter, ch.Cancel)

	// Placements
	ph := &placehandler.Handlers{Service: services.Placements}
	pg := app.Group("/api/v1/placements", partner...)
	ph.Routes(pg, limiter)

	// Payment requests
	prh := &payhandler.Handlers{Service: services.PaymentRequests}
	prg := app.Group("/api/v1/payment-requests", partner...)
	prg.Get("/", prh.List)
	prg.Get("/:id", prh.Get)
	prg.Post("/", limiter, prh.Create)
	prg.Post("/:id/accept", limiter, prh.Accept)
	prg.Post("/:id/contest", limiter, prh.Contest)

	uph := &uploadhandler.Handlers{Service: services.Attachments}
	upg := app.Group("/api/v1/uploads", partner...)
	upg.Post("/payment-attachment", limiter, uph.PaymentAttachment)

	// Credits
	ledh := &ledgerhandler.Handlers{Service: services.Ledger, Access: services.Access}
	ledg := app.Group("/api/v1/ledger", middleware.RequireAuth())
	ledg.Get("/brands/:brand_id", ledh.Balance)
	ledg.Post("/grant", middleware.AuthorizePermission(constants.GrantCredits), ledh.Grant)

	// Notifications
	nh := &notifhandler.Handlers{Inbox: services.Inbox, DB: services.DB, Access: services.Access}
	ng := app.Group("/api/v1/notifications", viewer...)
	ng.Get("/", nh.List)
	ng.Get("/history/:brand_id/:showroom_id", nh.History)

	// Cron-driven sweep for serverless deployments
	crh := &cronhandler.Handlers{Runner: services.Sweeper, Secret: cfg.CronSecret}
	app.Post("/api/v1/internal/sweep", crh.Sweep)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
