package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UserConfig is the per-install configuration carried in the addon URL.
type UserConfig struct {
	Service string `json:"service,omitempty"`
	Key     string `json:"key,omitempty"`
	Options string `json:"options,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// ErrInvalidUserConfig means the config path segment could not be decoded.
var ErrInvalidUserConfig = errors.New("invalid user config")

// DecodeUserConfig decodes a base64 JSON config segment. Both the URL-safe
// and the standard alphabet are accepted, with or without padding.
func DecodeUserConfig(segment string) (UserConfig, error) {
	var cfg UserConfig

	segment = strings.TrimSpace(segment)
	if segment == "" {
		return cfg, fmt.Errorf("%w: empty", ErrInvalidUserConfig)
	}

	raw := strings.TrimRight(segment, "=")
	var (
		data []byte
		err  error
	)
	if strings.ContainsAny(raw, "-_") {
		data, err = base64.RawURLEncoding.DecodeString(raw)
	} else {
		data, err = base64.RawStdEncoding.DecodeString(raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidUserConfig, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return UserConfig{}, fmt.Errorf("%w: %w", ErrInvalidUserConfig, err)
	}

	cfg.Service = strings.ToLower(strings.TrimSpace(cfg.Service))
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	return cfg, nil
}

// Encode returns the URL-safe, unpadded config segment.
func (c UserConfig) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}
