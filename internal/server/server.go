package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/F0laf0lu/Chat-API/internal/auth"
	"github.com/F0laf0lu/Chat-API/internal/broadcast"
	"github.com/F0laf0lu/Chat-API/internal/config"
	"github.com/F0laf0lu/Chat-API/internal/domain"
	apperrors "github.com/F0laf0lu/Chat-API/internal/errors"
)

// MessageRateLimiter limits how fast a user may post messages.
type MessageRateLimiter interface {
	Allow(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Dependencies bundles the collaborators the server needs.
type Dependencies struct {
	Users      domain.UserRepository
	Rooms      domain.RoomRepository
	Messages   domain.MessageRepository
	Registry   *broadcast.Registry
	Dispatcher *broadcast.Dispatcher
	// RateLimiter may be nil; message posting is then unlimited.
	RateLimiter MessageRateLimiter
	// Access defaults to admitting any authenticated user.
	Access domain.RoomAccessPolicy
	// DB and Redis are only used for readiness checks; either may be nil.
	DB    *pgxpool.Pool
	Redis *goredis.Client
	Clock clockwork.Clock
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	clock       clockwork.Clock
	jwtConfig   auth.Config
	registry    *broadcast.Registry
	dispatcher  *broadcast.Dispatcher
	users       domain.UserRepository
	rooms       domain.RoomRepository
	messages    domain.MessageRepository
	access      domain.RoomAccessPolicy
	rateLimiter MessageRateLimiter
	limits      *ConnectionLimits
	db          *pgxpool.Pool
	redisClient *goredis.Client
	startTime   time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	access := deps.Access
	if access == nil {
		access = allowAuthenticated{}
	}

	srv := &Server{
		echo:        e,
		config:      cfg,
		clock:       deps.Clock,
		jwtConfig:   auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Expiration: cfg.JWTExpiration},
		registry:    deps.Registry,
		dispatcher:  deps.Dispatcher,
		users:       deps.Users,
		rooms:       deps.Rooms,
		messages:    deps.Messages,
		access:      access,
		rateLimiter: deps.RateLimiter,
		limits:      NewConnectionLimits(int64(cfg.MaxWebSocketConnections), cfg.MaxConnectionsPerIP),
		db:          deps.DB,
		redisClient: deps.Redis,
		startTime:   deps.Clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Server starting", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// allowAuthenticated admits any identified user, mirroring the original
// API: live connections require authentication but not room membership.
type allowAuthenticated struct{}

func (allowAuthenticated) Authorize(_ context.Context, _ *domain.Room, _ uuid.UUID) error {
	return nil
}
