package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framewire/internal/retry"
)

const (
	modePcap      = "pcap"
	modeFacts     = "facts"
	modeHeartbeat = "heartbeat"
)

type probeConfig struct {
	Name              string
	Collector         string
	Mode              string
	Device            string
	PcapFile          string
	MaxPackets        int64
	FactsFile         string
	Discovery         string
	Host              string
	HeartbeatCount    int
	HeartbeatInterval time.Duration
	SendAttempts      int
}

type fileConfig struct {
	Name              string `toml:"name"`
	Collector         string `toml:"collector"`
	Mode              string `toml:"mode"`
	Device            string `toml:"device"`
	PcapFile          string `toml:"pcap_file"`
	MaxPackets        int64  `toml:"max_packets"`
	FactsFile         string `toml:"facts_file"`
	Discovery         string `toml:"discovery"`
	Host              string `toml:"host"`
	HeartbeatCount    int    `toml:"heartbeat_count"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	SendAttempts      int    `toml:"send_attempts"`
}

func defaultProbeConfig() probeConfig {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return probeConfig{
		Name:              "probe",
		Collector:         "127.0.0.1:9470",
		Mode:              modePcap,
		Device:            "pcap",
		Discovery:         "framewire",
		Host:              host,
		HeartbeatCount:    1,
		HeartbeatInterval: 5 * time.Second,
		SendAttempts:      retry.DefaultBackoff().MaxAttempts,
	}
}

func loadProbeConfig(path string) (probeConfig, error) {
	cfg := defaultProbeConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return probeConfig{}, fmt.Errorf("load probe config: %w", err)
	}

	setString := func(key, v string, dst *string) {
		if meta.IsDefined(key) {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
	}
	setString("name", raw.Name, &cfg.Name)
	setString("collector", raw.Collector, &cfg.Collector)
	setString("mode", strings.ToLower(raw.Mode), &cfg.Mode)
	setString("device", raw.Device, &cfg.Device)
	setString("pcap_file", raw.PcapFile, &cfg.PcapFile)
	setString("facts_file", raw.FactsFile, &cfg.FactsFile)
	setString("discovery", raw.Discovery, &cfg.Discovery)
	setString("host", raw.Host, &cfg.Host)

	if meta.IsDefined("max_packets") {
		cfg.MaxPackets = raw.MaxPackets
	}
	if meta.IsDefined("heartbeat_count") {
		cfg.HeartbeatCount = raw.HeartbeatCount
	}
	if meta.IsDefined("send_attempts") {
		cfg.SendAttempts = raw.SendAttempts
	}
	if meta.IsDefined("heartbeat_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HeartbeatInterval))
		if err != nil {
			return probeConfig{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	return cfg, nil
}

func (cfg probeConfig) validate() error {
	switch cfg.Mode {
	case modePcap:
		if cfg.PcapFile == "" {
			return fmt.Errorf("probe config: mode pcap requires pcap_file")
		}
	case modeFacts:
		if cfg.FactsFile == "" {
			return fmt.Errorf("probe config: mode facts requires facts_file")
		}
	case modeHeartbeat:
		if cfg.HeartbeatCount < 0 || cfg.HeartbeatInterval < 0 {
			return fmt.Errorf("probe config: heartbeat count and interval must not be negative")
		}
	default:
		return fmt.Errorf("probe config: unknown mode %q", cfg.Mode)
	}
	if cfg.SendAttempts < 1 {
		return fmt.Errorf("probe config: send_attempts must be at least 1")
	}
	if cfg.MaxPackets < 0 {
		return fmt.Errorf("probe config: max_packets must not be negative")
	}
	return nil
}
