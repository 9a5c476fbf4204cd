// Package server exposes the amplifier over HTTP.
//
// Ownership boundary:
// - gin router, CORS, request logging and metrics middleware
// - mapping amplifier failures to HTTP status codes
// - HTTP listener lifecycle
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/essentiactl/internal/auth"
	"github.com/danmuck/essentiactl/internal/observability"
	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Amplifier is the part of amp.Amplifier the routes drive.
type Amplifier interface {
	ZoneStatus(ctx context.Context, zone int) (protocol.ZoneStatus, error)
	ZoneTone(ctx context.Context, zone int) (protocol.ZoneToneStatus, error)
	TurnOnZone(ctx context.Context, zone int) (bool, error)
	TurnOffZone(ctx context.Context, zone int) (bool, error)
	MuteZone(ctx context.Context, zone int) (bool, error)
	UnmuteZone(ctx context.Context, zone int) (bool, error)
	SetVolume(ctx context.Context, zone, level int) (bool, error)
	SetBass(ctx context.Context, zone, bass int) (bool, error)
	SetTreble(ctx context.Context, zone, treble int) (bool, error)
	SetSource(ctx context.Context, zone, source int) (bool, error)
	Connected() bool
	QueueDepth() int
}

type ZoneSwitcher interface {
	SetOn(ctx context.Context, zone int, on bool) error
	IsOn(ctx context.Context, zone int) (bool, error)
}

type SourceSwitcher interface {
	SetOn(ctx context.Context, source int, on bool) error
	IsOn(source int) (bool, error)
}

type Config struct {
	Name        string
	Addr        string
	CorsOrigins []string
	// RequestTimeout bounds how long a handler waits on the amplifier.
	RequestTimeout time.Duration
	// Zones lists the zones reported by GET /zones.
	Zones []int
	// AuthToken, when set, is required as a bearer token on every PUT route.
	AuthToken string
}

func DefaultConfig() Config {
	return Config{
		Name:           "essentiactl",
		Addr:           ":9400",
		CorsOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 10 * time.Second,
	}
}

type Server struct {
	cfg      Config
	amp      Amplifier
	zones    ZoneSwitcher
	sources  SourceSwitcher
	router   *gin.Engine
	appeared time.Time
}

func New(cfg Config, amp Amplifier, zones ZoneSwitcher, sources SourceSwitcher) *Server {
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.AppLogger(cfg.Name)))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "PUT"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		amp:      amp,
		zones:    zones,
		sources:  sources,
		router:   r,
		appeared: time.Now(),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("server.Server.Serve listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server.Server.Serve shutdown")
	return nil
}

// requireToken rejects requests without the configured bearer token. With no
// token configured it passes everything through.
func (s *Server) requireToken() gin.HandlerFunc {
	if s.cfg.AuthToken == "" {
		return func(c *gin.Context) { c.Next() }
	}
	validator := auth.StaticToken{Token: s.cfg.AuthToken}
	return func(c *gin.Context) {
		token, _ := auth.BearerToken(c.GetHeader("Authorization"))
		if err := validator.Validate(token); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return DefaultConfig().CorsOrigins
	}
	return origins
}
