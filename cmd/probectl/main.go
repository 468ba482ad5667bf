package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/framewire/internal/capture"
	"github.com/danmuck/framewire/internal/config"
	"github.com/danmuck/framewire/internal/discovery"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/danmuck/framewire/internal/retry"
	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog"
)

func main() {
	wirePath := flag.String("wire", "wire.toml", "shared wire config (signing, codec)")
	configPath := flag.String("config", "", "probe config")
	mode := flag.String("mode", "", "override mode: pcap|facts|heartbeat")
	input := flag.String("input", "", "override pcap_file or facts_file for the selected mode")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("probectl")

	if err := run(*wirePath, *configPath, *mode, *input, logger); err != nil {
		fmt.Fprintf(os.Stderr, "probectl: %v\n", err)
		os.Exit(1)
	}
}

func run(wirePath, configPath, mode, input string, logger zerolog.Logger) error {
	cfg, err := loadProbeConfig(configPath)
	if err != nil {
		return err
	}
	if mode != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(mode))
	}
	if input != "" {
		switch cfg.Mode {
		case modePcap:
			cfg.PcapFile = input
		case modeFacts:
			cfg.FactsFile = input
		}
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	wire, err := config.LoadWireConfig(wirePath)
	if err != nil {
		return err
	}
	codec, err := wire.Codec()
	if err != nil {
		return err
	}

	conn, err := net.Dial("udp", cfg.Collector)
	if err != nil {
		return fmt.Errorf("dial collector: %w", err)
	}
	defer conn.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A connected UDP socket reports ICMP unreachable on the next write.
	backoff := retry.DefaultBackoff()
	backoff.MaxAttempts = cfg.SendAttempts
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	emit := func(pkt []byte) error {
		return backoff.Do(ctx, rng, func() error {
			_, err := conn.Write(pkt)
			return err
		})
	}

	logger = logger.With().Str("probe", cfg.Name).Str("mode", cfg.Mode).Logger()
	logger.Info().Str("collector", cfg.Collector).Str("algorithm", string(codec.Signer().Algorithm())).Msg("probe starting")

	switch cfg.Mode {
	case modePcap:
		return runPcap(ctx, cfg, codec, emit, logger)
	case modeFacts:
		return runFacts(cfg, codec, emit, logger)
	default:
		return runHeartbeat(ctx, cfg, codec, emit, logger)
	}
}

func runPcap(ctx context.Context, cfg probeConfig, codec *frameset.Codec, emit func([]byte) error, logger zerolog.Logger) error {
	f, err := os.Open(cfg.PcapFile)
	if err != nil {
		return fmt.Errorf("open pcap: %w", err)
	}
	defer f.Close()

	var src gopacket.PacketDataSource
	if strings.EqualFold(filepath.Ext(cfg.PcapFile), ".pcapng") {
		src, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(f)
	}
	if err != nil {
		return fmt.Errorf("read pcap header: %w", err)
	}

	loop := &capture.Loop{
		Node:       cfg.Name,
		Device:     cfg.Device,
		MaxPackets: cfg.MaxPackets,
		Codec:      codec,
		Logger:     logger,
	}
	stats, err := loop.Run(ctx, src, emit)
	logger.Info().
		Int64("packets", stats.Packets).
		Int64("lldp", stats.LLDP).
		Int64("cdp", stats.CDP).
		Int64("other", stats.Other).
		Int64("skipped", stats.Skipped).
		Int64("bytes", stats.Bytes).
		Msg("capture finished")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runFacts(cfg probeConfig, codec *frameset.Codec, emit func([]byte) error, logger zerolog.Logger) error {
	f, err := os.Open(cfg.FactsFile)
	if err != nil {
		return fmt.Errorf("open facts: %w", err)
	}
	defer f.Close()

	values, err := discovery.ParseDocument(f)
	if err != nil {
		return err
	}
	fs, err := discovery.Encode(discovery.Facts{
		Discovery: cfg.Discovery,
		Host:      cfg.Host,
		Collected: time.Now(),
		Values:    values,
	})
	if err != nil {
		return err
	}
	if err := send(cfg.Name, codec, fs, emit); err != nil {
		return err
	}
	logger.Info().Int("facts", len(values)).Msg("facts sent")
	return nil
}

func runHeartbeat(ctx context.Context, cfg probeConfig, codec *frameset.Codec, emit func([]byte) error, logger zerolog.Logger) error {
	ticker := time.NewTicker(max(cfg.HeartbeatInterval, time.Millisecond))
	defer ticker.Stop()
	for seq := uint32(1); ; seq++ {
		fs, err := discovery.EncodeHeartbeat(discovery.Heartbeat{Host: cfg.Host, Sent: time.Now(), Sequence: seq})
		if err != nil {
			return err
		}
		if err := send(cfg.Name, codec, fs, emit); err != nil {
			return err
		}
		logger.Debug().Uint32("sequence", seq).Msg("heartbeat sent")
		if cfg.HeartbeatCount > 0 && int(seq) >= cfg.HeartbeatCount {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func send(node string, codec *frameset.Codec, fs *frameset.Frameset, emit func([]byte) error) error {
	pkt, err := codec.Serialize(fs)
	if err != nil {
		return err
	}
	if err := emit(pkt); err != nil {
		return fmt.Errorf("send %s: %w", schema.Name(fs.MessageType()), err)
	}
	observability.RecordEncoded(node, schema.Name(fs.MessageType()), len(pkt))
	return nil
}
