package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/space-reservation-backend/internal/reservation/http"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
	spaceHttp "github.com/nekogravitycat/space-reservation-backend/internal/space/http"
	"github.com/nekogravitycat/space-reservation-backend/internal/user"
	userHttp "github.com/nekogravitycat/space-reservation-backend/internal/user/http"
)

// Config carries everything the router needs to mount the API.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService        user.Service
	SpaceService       space.Service
	ReservationService reservation.Service

	JWTManager *auth.JWTManager
	Sessions   auth.SessionStore // nil disables server-side revocation

	Metrics         *metrics.Metrics
	MetricsGatherer prometheus.Gatherer // nil hides /metrics

	// Ready reports whether backing stores are reachable.
	Ready func(*gin.Context) error
}

// NewRouter initializes the HTTP router engine.
// It assembles middleware (CORS, logging, metrics, auth) and registers routes for each module.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestLogger(), Metrics(cfg.Metrics))

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsGatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	authMiddleware := auth.AuthRequired(cfg.JWTManager, cfg.Sessions)
	adminMiddleware := RequireAdmin()

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager, cfg.Sessions)
	spaceHandler := spaceHttp.NewHandler(cfg.SpaceService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, adminMiddleware)
		spaceHttp.RegisterRoutes(v1, spaceHandler, authMiddleware, adminMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
	}

	return r
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
