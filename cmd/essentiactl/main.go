package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/essentiactl/internal/logging"
	"github.com/danmuck/essentiactl/internal/service"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/essentiactl/config.toml", "service config (TOML)")
	serialPort := flag.String("port", "", "serial device, overrides serial_port")
	layoutPath := flag.String("layout", "", "zone/source layout (.toml or .yaml), overrides layout_file")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := service.DefaultConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "essentiactl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "essentiactl: %v\n", err)
		os.Exit(1)
	} else {
		log.Warn().Str("path", *configPath).Msg("essentiactl config not found, using defaults")
	}
	if *serialPort != "" {
		cfg.Amp.Transport.Path = *serialPort
	}
	if *layoutPath != "" {
		cfg.LayoutFile = *layoutPath
	}

	svc := service.New(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "essentiactl: %v\n", err)
		os.Exit(1)
	}
}
