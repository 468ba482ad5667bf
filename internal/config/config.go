package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/sign"
	"github.com/pelletier/go-toml/v2"
)

// DefaultMaxPacketSize is the largest UDP payload over IPv4.
const DefaultMaxPacketSize = 65507

// WireConfig is shared by every process that serializes or parses framesets.
// Probes and collectors must agree on it.
type WireConfig struct {
	Signing SigningConfig `toml:"signing"`
	Codec   CodecConfig   `toml:"codec"`
}

type SigningConfig struct {
	Algorithm     string `toml:"algorithm"`
	KeyHex        string `toml:"key_hex"`
	KeyFile       string `toml:"key_file"`
	PublicKeyFile string `toml:"public_key_file"`
}

type CodecConfig struct {
	Lenient       bool `toml:"lenient"`
	MaxPacketSize int  `toml:"max_packet_size"`
}

func LoadWireConfig(path string) (WireConfig, error) {
	var cfg WireConfig
	if err := loadToml(path, &cfg); err != nil {
		return WireConfig{}, err
	}
	if cfg.Signing.Algorithm == "" {
		cfg.Signing.Algorithm = string(sign.SHA256)
	}
	if cfg.Codec.MaxPacketSize == 0 {
		cfg.Codec.MaxPacketSize = DefaultMaxPacketSize
	}
	if err := ValidateWireConfig(cfg); err != nil {
		return WireConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateWireConfig(cfg WireConfig) error {
	alg, err := sign.ParseAlgorithm(cfg.Signing.Algorithm)
	if err != nil {
		return fmt.Errorf("signing config invalid: %w", err)
	}
	s := cfg.Signing
	keyed := strings.TrimSpace(s.KeyHex) != "" || strings.TrimSpace(s.KeyFile) != ""
	if strings.TrimSpace(s.KeyHex) != "" && strings.TrimSpace(s.KeyFile) != "" {
		return fmt.Errorf("signing config sets both key_hex and key_file")
	}
	switch alg {
	case sign.SHA256:
		if keyed {
			return fmt.Errorf("signing config: sha256 is unkeyed, remove key_hex/key_file")
		}
	case sign.HMACSHA256, sign.BLAKE2b256:
		if !keyed {
			return fmt.Errorf("signing config: %s requires key_hex or key_file", alg)
		}
	case sign.Ed25519:
		if strings.TrimSpace(s.KeyHex) != "" {
			return fmt.Errorf("signing config: ed25519 takes key_file (OpenSSH private key), not key_hex")
		}
		if !keyed && strings.TrimSpace(s.PublicKeyFile) == "" {
			return fmt.Errorf("signing config: ed25519 requires key_file or public_key_file")
		}
	}
	if cfg.Codec.MaxPacketSize < 0 {
		return fmt.Errorf("codec config: max_packet_size must not be negative")
	}
	return nil
}

// Signer resolves key material and builds the configured signer.
func (cfg WireConfig) Signer() (sign.Signer, error) {
	alg, err := sign.ParseAlgorithm(cfg.Signing.Algorithm)
	if err != nil {
		return nil, err
	}
	sc := sign.Config{Algorithm: alg}
	switch {
	case strings.TrimSpace(cfg.Signing.KeyHex) != "":
		key, err := hex.DecodeString(strings.TrimSpace(cfg.Signing.KeyHex))
		if err != nil {
			return nil, fmt.Errorf("signing key_hex: %w", err)
		}
		sc.Key = key
	case strings.TrimSpace(cfg.Signing.KeyFile) != "":
		key, err := os.ReadFile(cfg.Signing.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("signing key_file: %w", err)
		}
		if alg != sign.Ed25519 {
			key = []byte(strings.TrimSpace(string(key)))
		}
		sc.Key = key
	}
	if strings.TrimSpace(cfg.Signing.PublicKeyFile) != "" {
		pub, err := os.ReadFile(cfg.Signing.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("signing public_key_file: %w", err)
		}
		sc.PublicKey = pub
	}
	return sign.New(sc)
}

// Codec builds a frameset codec from the signing and codec sections.
func (cfg WireConfig) Codec() (*frameset.Codec, error) {
	signer, err := cfg.Signer()
	if err != nil {
		return nil, err
	}
	opts := []frameset.Option{frameset.WithMaxPacketSize(cfg.Codec.MaxPacketSize)}
	if cfg.Codec.Lenient {
		opts = append(opts, frameset.WithLenient())
	}
	return frameset.NewCodec(signer, opts...)
}
