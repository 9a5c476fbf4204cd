package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindService    = "service"
	KindLayoutTOML = "layout"
	KindLayoutYAML = "layout-yaml"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindService:
		return serviceTemplate, nil
	case KindLayoutTOML:
		return layoutTOMLTemplate, nil
	case KindLayoutYAML:
		return layoutYAMLTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serviceTemplate = `serial_port = "/dev/ttyUSB0"
baud_rate = 9600
cmd_delay_ms = 100
command_timeout = "2s"
max_queue_depth = 64
listen_addr = ":9400"
cors_origins = ["http://localhost:3000"]
auth_token = ""
layout_file = "cmd/essentiactl/layout.toml"
`

const layoutTOMLTemplate = `default_volume = 40
mute_instead_of_relay = false

[[zones]]
id = 1
name = "Kitchen"
volume = 35
treble = 0
bass = 2
default_source_id = 1

[[zones]]
id = 2
name = "Patio"
treble = 1
bass = 0
default_source_id = 1

[[sources]]
id = 1
name = "Streamer"
input_id = 1
enabled_zones = [1, 2]

[[sources]]
id = 2
name = "Turntable"
input_id = 3
enabled_zones = [1]
turn_off_other_sources = true
`

const layoutYAMLTemplate = `default_volume: 40
mute_instead_of_relay: false
zones:
  - id: 1
    name: Kitchen
    volume: 35
    treble: 0
    bass: 2
    default_source_id: 1
  - id: 2
    name: Patio
    treble: 1
    bass: 0
    default_source_id: 1
sources:
  - id: 1
    name: Streamer
    input_id: 1
    enabled_zones: [1, 2]
  - id: 2
    name: Turntable
    input_id: 3
    enabled_zones: [1]
    turn_off_other_sources: true
`
