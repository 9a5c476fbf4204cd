// Package service runs essentiactl as a standalone process.
//
// Ownership boundary:
// - layout loading and amplifier open at startup
// - HTTP serving for the process lifetime
// - shutdown on SIGINT/SIGTERM or when the serial reader gives up
package service

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/danmuck/essentiactl/internal/amp"
	"github.com/danmuck/essentiactl/internal/config"
	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/danmuck/essentiactl/internal/server"
	"github.com/danmuck/essentiactl/internal/transport"
	"github.com/rs/zerolog/log"
)

// Config is the standalone runtime configuration.
type Config struct {
	Amp    amp.Config
	Server server.Config
	// LayoutFile is a .toml or .yaml zone/source layout. Empty uses DefaultLayout.
	LayoutFile string
	// ApplyDefaultsOnStart pushes each zone's volume, treble and bass after open.
	ApplyDefaultsOnStart bool
}

func DefaultConfig() Config {
	return Config{
		Amp:    amp.DefaultConfig(),
		Server: server.DefaultConfig(),
	}
}

// Service owns the amplifier and HTTP server for one process.
type Service struct {
	cfg  Config
	open transport.Opener
}

func New(cfg Config) *Service {
	return NewWithOpener(cfg, transport.SerialOpener)
}

func NewWithOpener(cfg Config, open transport.Opener) *Service {
	return &Service{cfg: cfg, open: open}
}

// Run blocks until SIGINT/SIGTERM. A serial open failure is returned.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *Service) RunContext(ctx context.Context) error {
	layout, err := s.loadLayout()
	if err != nil {
		return err
	}

	a, err := amp.OpenWith(ctx, s.cfg.Amp, s.open)
	if err != nil {
		log.Error().Err(err).Str("path", s.cfg.Amp.Transport.Path).Msg("service.Service.Run open failed")
		return err
	}
	defer a.Close()

	zones := amp.NewZoneSwitch(a.Client, layout)
	sources := amp.NewSourceSwitch(a.Client, layout)
	if s.cfg.ApplyDefaultsOnStart {
		if err := zones.ApplyAllDefaults(ctx); err != nil {
			log.Warn().Err(err).Msg("service.Service.Run apply defaults failed")
		}
	}

	srvCfg := s.cfg.Server
	srvCfg.Zones = zoneIDs(layout)
	srv := server.New(srvCfg, a, zones, sources)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(runCtx)
	}()

	log.Info().
		Int("zones", len(layout.Zones)).
		Int("sources", len(layout.Sources)).
		Bool("mute_instead_of_relay", layout.MuteInsteadOfRelay).
		Msg("service.Service.Run ready")

	select {
	case err := <-serveErr:
		return err
	case <-a.Done():
		if ctx.Err() != nil {
			return <-serveErr
		}
		log.Error().Err(a.Err()).Msg("service.Service.Run serial reader stopped")
		cancel()
		<-serveErr
		return a.Err()
	case <-ctx.Done():
		log.Info().Msg("service.Service.Run shutdown")
		return <-serveErr
	}
}

func (s *Service) loadLayout() (config.Layout, error) {
	if s.cfg.LayoutFile == "" {
		return config.DefaultLayout(), nil
	}
	return config.LoadLayout(s.cfg.LayoutFile)
}

// zoneIDs lists configured zones, or every addressable zone without a layout.
func zoneIDs(layout config.Layout) []int {
	if len(layout.Zones) == 0 {
		ids := make([]int, 0, protocol.MaxZone)
		for z := protocol.MinZone; z <= protocol.MaxZone; z++ {
			ids = append(ids, z)
		}
		return ids
	}
	ids := make([]int, 0, len(layout.Zones))
	for _, z := range layout.Zones {
		ids = append(ids, z.ID)
	}
	return ids
}
