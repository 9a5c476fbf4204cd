package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/essentiactl/internal/service"
)

type fileConfig struct {
	SerialPort           string   `toml:"serial_port"`
	BaudRate             int      `toml:"baud_rate"`
	CmdDelayMS           int64    `toml:"cmd_delay_ms"`
	CommandTimeout       string   `toml:"command_timeout"`
	MaxQueueDepth        int      `toml:"max_queue_depth"`
	MaxReopenAttempts    int      `toml:"max_reopen_attempts"`
	ListenAddr           string   `toml:"listen_addr"`
	CorsOrigins          []string `toml:"cors_origins"`
	RequestTimeout       string   `toml:"request_timeout"`
	AuthToken            string   `toml:"auth_token"`
	LayoutFile           string   `toml:"layout_file"`
	ApplyDefaultsOnStart bool     `toml:"apply_defaults_on_start"`
}

func loadServiceConfig(path string) (service.Config, error) {
	cfg := service.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return service.Config{}, fmt.Errorf("load essentiactl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return service.Config{}, fmt.Errorf("load essentiactl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("serial_port") {
		if port := strings.TrimSpace(raw.SerialPort); port != "" {
			cfg.Amp.Transport.Path = port
		}
	}

	if meta.IsDefined("baud_rate") {
		if raw.BaudRate <= 0 {
			return service.Config{}, fmt.Errorf("baud_rate must be positive, got %d", raw.BaudRate)
		}
		cfg.Amp.Transport.BaudRate = raw.BaudRate
	}

	if meta.IsDefined("cmd_delay_ms") {
		if raw.CmdDelayMS < 0 {
			return service.Config{}, fmt.Errorf("cmd_delay_ms must not be negative, got %d", raw.CmdDelayMS)
		}
		cfg.Amp.Queue.CommandDelay = time.Duration(raw.CmdDelayMS) * time.Millisecond
	}

	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return service.Config{}, fmt.Errorf("parse command_timeout: %w", err)
		}
		cfg.Amp.Queue.ReplyTimeout = d
	}

	if meta.IsDefined("max_queue_depth") {
		cfg.Amp.Queue.MaxDepth = raw.MaxQueueDepth
	}

	if meta.IsDefined("max_reopen_attempts") {
		cfg.Amp.Transport.MaxReopenAttempts = raw.MaxReopenAttempts
	}

	if meta.IsDefined("listen_addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.Server.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return service.Config{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.Server.RequestTimeout = d
	}

	if meta.IsDefined("auth_token") {
		cfg.Server.AuthToken = strings.TrimSpace(raw.AuthToken)
	}

	if meta.IsDefined("layout_file") {
		cfg.LayoutFile = strings.TrimSpace(raw.LayoutFile)
	}

	if meta.IsDefined("apply_defaults_on_start") {
		cfg.ApplyDefaultsOnStart = raw.ApplyDefaultsOnStart
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
