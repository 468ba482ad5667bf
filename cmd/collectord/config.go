package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type collectorConfig struct {
	Name        string
	Listen      string
	HTTPAddr    string
	Keep        int
	CorsOrigins []string
	StatusToken string
	Multicast   string
	Interface   string
}

type fileConfig struct {
	Name        string   `toml:"name"`
	Listen      string   `toml:"listen"`
	HTTPAddr    string   `toml:"http_addr"`
	Keep        int      `toml:"keep"`
	CorsOrigins []string `toml:"cors_origins"`
	StatusToken string   `toml:"status_token"`
	Multicast   string   `toml:"multicast_group"`
	Interface   string   `toml:"multicast_interface"`
}

func defaultCollectorConfig() collectorConfig {
	return collectorConfig{
		Name:     "collector",
		Listen:   ":9470",
		HTTPAddr: ":9471",
		Keep:     256,
	}
}

func loadCollectorConfig(path string) (collectorConfig, error) {
	cfg := defaultCollectorConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return collectorConfig{}, fmt.Errorf("load collector config: %w", err)
	}

	if meta.IsDefined("name") {
		if v := strings.TrimSpace(raw.Name); v != "" {
			cfg.Name = v
		}
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("keep") {
		if raw.Keep <= 0 {
			return collectorConfig{}, fmt.Errorf("keep must be positive, got %d", raw.Keep)
		}
		cfg.Keep = raw.Keep
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("multicast_group") {
		cfg.Multicast = strings.TrimSpace(raw.Multicast)
	}
	if meta.IsDefined("multicast_interface") {
		cfg.Interface = strings.TrimSpace(raw.Interface)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if cfg.Listen == "" {
		return collectorConfig{}, fmt.Errorf("collector config missing listen")
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
