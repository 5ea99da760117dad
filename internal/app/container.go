package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/space-reservation-backend/internal/api"
	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
	"github.com/nekogravitycat/space-reservation-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	Redis        *redis.Client // optional; enables session revocation
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	// Registry receives the Prometheus collectors. Nil uses a private registry.
	Registry *prometheus.Registry
	// Clock decides "today" for reservation rules. Nil uses the system clock.
	Clock calendar.Clock
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	JWTManager         *auth.JWTManager
	UserService        user.Service
	SpaceService       space.Service
	ReservationService reservation.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var sessions auth.SessionStore
	if cfg.Redis != nil {
		sessions = auth.NewRedisSessionStore(cfg.Redis)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.NewWithRegistry(registry)

	clock := cfg.Clock
	if clock == nil {
		clock = calendar.SystemClock{}
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, sessions)

	// Space Module
	spaceRepo := space.NewPgxRepository(cfg.DBPool)
	spaceService := space.NewService(spaceRepo)

	// Reservation Module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool)
	reservationService := reservation.NewService(reservationRepo, spaceService, clock, m)

	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		UserService:        userService,
		SpaceService:       spaceService,
		ReservationService: reservationService,
		JWTManager:         jwtManager,
		Sessions:           sessions,
		Metrics:            m,
		MetricsGatherer:    registry,
		Ready: func(c *gin.Context) error {
			if err := cfg.DBPool.Ping(c.Request.Context()); err != nil {
				return err
			}
			if cfg.Redis != nil {
				return cfg.Redis.Ping(c.Request.Context()).Err()
			}
			return nil
		},
	})

	return &Container{
		Router:             router,
		JWTManager:         jwtManager,
		UserService:        userService,
		SpaceService:       spaceService,
		ReservationService: reservationService,
	}
}
