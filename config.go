package replcraft

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a ReplCraft client.
type Config struct {
	// Token is the structure token issued by the server. Its payload carries
	// the server host the client should connect to.
	// Fallback: REPLCRAFT_TOKEN environment variable.
	Token string `yaml:"token"`

	// Host overrides the host carried in the token, e.g. "localhost:28080"
	// or a full "ws://..." URL. Mostly useful against development servers.
	// Fallback: REPLCRAFT_HOST environment variable.
	Host string `yaml:"host"`
}

// LoadConfig reads a YAML config file into a Config. Fields left empty in the
// file still fall back to environment variables on NewClient.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// resolveConfig fills empty fields from environment variables and validates
// required fields.
func resolveConfig(cfg Config) (Config, error) {
	if cfg.Token == "" {
		cfg.Token = os.Getenv("REPLCRAFT_TOKEN")
	}
	if cfg.Host == "" {
		cfg.Host = os.Getenv("REPLCRAFT_HOST")
	}

	if cfg.Token == "" {
		return cfg, fmt.Errorf("Token is required (set in Config or REPLCRAFT_TOKEN env)")
	}

	return cfg, nil
}

// tokenPayload is the JSON payload of a structure token. Only the fields the
// client needs are decoded; the signature is verified server-side.
type tokenPayload struct {
	Host  string `json:"host"`
	Scope string `json:"scope"`
}

// parseToken decodes the payload of a JWT-shaped token without verifying it.
func parseToken(token string) (tokenPayload, error) {
	var payload tokenPayload

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return payload, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return payload, fmt.Errorf("decode token payload: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse token payload: %w", err)
	}
	if payload.Host == "" {
		return payload, fmt.Errorf("token payload has no host")
	}
	return payload, nil
}

// endpointURL derives the WebSocket URL for a host. Bare "host:port" values
// get the default scheme and gateway path; explicit URLs pass through.
func endpointURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "ws://" + host + "/gateway"
}
