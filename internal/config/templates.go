package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "wire":
		return wireTemplate, nil
	case "probe":
		return probeTemplate, nil
	case "collector":
		return collectorTemplate, nil
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

const wireTemplate = `[signing]
# sha256 | hmac-sha256 | blake2b-256 | ed25519
algorithm = "hmac-sha256"
key_hex = "6672616d65776972652d6465762d6b6579"
# key_file = "/etc/framewire/id_ed25519"
# public_key_file = "/etc/framewire/id_ed25519.pub"

[codec]
lenient = false
max_packet_size = 65507
`

const probeTemplate = `name = "probe-a"
collector = "127.0.0.1:9470"
# pcap | facts | heartbeat
mode = "pcap"
device = "eth0"
pcap_file = "capture.pcap"
max_packets = 0
facts_file = "facts.yaml"
discovery = "ohai"
heartbeat_count = 1
heartbeat_interval = "5s"
send_attempts = 4
`

const collectorTemplate = `name = "collector-a"
listen = ":9470"
http_addr = ":9471"
keep = 256
# status_token = "change-me"
# multicast_group = "239.255.70.87"
# multicast_interface = "eth0"
cors_origins = ["http://localhost:3000"]
`

var requiredKeys = map[string][]string{
	"probe":     {"collector", "mode"},
	"collector": {"listen"},
}

// ValidateFile checks an existing config of the given kind. Wire configs get
// full validation; service configs are checked for syntax and required keys.
func ValidateFile(path, kind string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "wire" {
		_, err := LoadWireConfig(path)
		return err
	}
	keys, ok := requiredKeys[kind]
	if !ok {
		return fmt.Errorf("unknown config kind: %s", kind)
	}
	var raw map[string]any
	if err := loadToml(path, &raw); err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			return fmt.Errorf("%s config missing %s", kind, k)
		}
	}
	return nil
}
