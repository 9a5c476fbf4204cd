package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/essentiactl/internal/config"
	"github.com/danmuck/essentiactl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	kind := flag.String("kind", config.KindLayoutTOML, "config kind: service|layout|layout-yaml")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing layout file")
	input := flag.String("input", "", "layout path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		path := *input
		if path == "" {
			var err error
			if path, err = defaultPath(*kind); err != nil {
				fatal(err)
			}
		}
		if *kind == config.KindService {
			fatal(fmt.Errorf("service configs are validated by essentiactl at startup"))
		}
		layout, err := config.LoadLayout(path)
		if err != nil {
			fatal(err)
		}
		log.Info().
			Str("path", path).
			Int("zones", len(layout.Zones)).
			Int("sources", len(layout.Sources)).
			Msg("configgen validated layout")
		return
	}

	target := *output
	if target == "" {
		var err error
		if target, err = defaultPath(*kind); err != nil {
			fatal(err)
		}
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		fatal(err)
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("configgen wrote template")
}

func defaultPath(kind string) (string, error) {
	switch kind {
	case config.KindService:
		return "cmd/essentiactl/config.toml", nil
	case config.KindLayoutTOML:
		return "cmd/essentiactl/layout.toml", nil
	case config.KindLayoutYAML:
		return "cmd/essentiactl/layout.yaml", nil
	default:
		return "", fmt.Errorf("unknown kind: %s", kind)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
	os.Exit(1)
}
