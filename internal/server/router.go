package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"labbooking/internal/config"
	"labbooking/internal/database"
	"labbooking/internal/lock"
	"labbooking/internal/middleware"
	"labbooking/internal/modules/auth"
	"labbooking/internal/modules/booking"
	"labbooking/internal/modules/equipment"
	"labbooking/internal/modules/schedule"
	"labbooking/internal/observability"
	"labbooking/internal/pkg/jwt"
	"labbooking/internal/pkg/validator"
	"labbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer needs from main. Locker, Prom and
// Gatherer are optional.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *slog.Logger
	Locker   lock.Locker
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

// App is the assembled HTTP surface. Hub must be run by the caller for the
// live schedule feed to receive updates.
type App struct {
	Engine *gin.Engine
	Hub    *schedule.Hub
	Tokens *jwt.Service
}

func NewRouter(d Deps) *App {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := database.Ping(ctx, d.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	userRepo := repository.NewUserRepository(d.DB, d.Prom)
	equipmentRepo := repository.NewEquipmentRepository(d.DB, d.Prom)
	bookingRepo := repository.NewBookingRepository(d.DB, d.Prom)

	tokens := jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	builder := schedule.NewBuilder(equipmentRepo, bookingRepo, cfg.Location)
	hub := schedule.NewHub(builder, log, d.Prom)

	authHandler := auth.NewHandler(auth.NewService(userRepo, tokens, tokens.TTL(), log))
	equipmentHandler := equipment.NewHandler(equipment.NewService(equipmentRepo, hub, log))
	bookingHandler := booking.NewHandler(booking.NewService(bookingRepo, d.Locker, hub, d.Prom, log))
	scheduleHandler := schedule.NewHandler(builder, hub, tokens, schedule.NewUpgrader(cfg.CORSAllowedOrigins))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			equipmentHandler.RegisterRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			scheduleHandler.RegisterRoutes(protected, v1)

			admin := protected.Group("/admin")
			bookingHandler.RegisterAdminRoutes(admin)
		}
	}

	return &App{Engine: r, Hub: hub, Tokens: tokens}
}
