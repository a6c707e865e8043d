package replcraft

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfig_EnvFallback(t *testing.T) {
	token := makeToken("game.example.com:28080")
	t.Setenv("REPLCRAFT_TOKEN", token)
	t.Setenv("REPLCRAFT_HOST", "override:1234")

	cfg, err := resolveConfig(Config{})
	if err != nil {
		t.Fatalf("resolveConfig() error: %v", err)
	}
	if cfg.Token != token {
		t.Errorf("Token = %q, want env value", cfg.Token)
	}
	if cfg.Host != "override:1234" {
		t.Errorf("Host = %q, want env value", cfg.Host)
	}
}

func TestResolveConfig_ExplicitWinsOverEnv(t *testing.T) {
	t.Setenv("REPLCRAFT_TOKEN", "env-token")

	cfg, err := resolveConfig(Config{Token: "explicit-token"})
	if err != nil {
		t.Fatalf("resolveConfig() error: %v", err)
	}
	if cfg.Token != "explicit-token" {
		t.Errorf("Token = %q, want explicit value", cfg.Token)
	}
}

func TestResolveConfig_MissingToken(t *testing.T) {
	t.Setenv("REPLCRAFT_TOKEN", "")
	if _, err := resolveConfig(Config{}); err == nil {
		t.Fatal("resolveConfig() should error without a token")
	}
}

func TestParseToken(t *testing.T) {
	payload, err := parseToken(makeToken("game.example.com:28080"))
	if err != nil {
		t.Fatalf("parseToken() error: %v", err)
	}
	if payload.Host != "game.example.com:28080" {
		t.Errorf("Host = %q", payload.Host)
	}
	if payload.Scope != "write" {
		t.Errorf("Scope = %q", payload.Scope)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"no dots", "nodots"},
		{"two segments", "a.b"},
		{"bad base64", "a.!!!.c"},
		{"payload not json", "a." + "bm90LWpzb24" + ".c"},
		{"no host", "a." + "e30" + ".c"}, // payload {}
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseToken(tc.token); err == nil {
				t.Errorf("parseToken(%q) should error", tc.token)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"game.example.com:28080", "ws://game.example.com:28080/gateway"},
		{"ws://game.example.com:28080/gateway", "ws://game.example.com:28080/gateway"},
		{"wss://game.example.com/ws", "wss://game.example.com/ws"},
	}
	for _, tc := range cases {
		if got := endpointURL(tc.host); got != tc.want {
			t.Errorf("endpointURL(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replcraft.yaml")
	data := "token: file-token\nhost: filehost:28080\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Token != "file-token" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.Host != "filehost:28080" {
		t.Errorf("Host = %q", cfg.Host)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig() should error for a missing file")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replcraft.yaml")
	if err := os.WriteFile(path, []byte("token: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() should error for invalid YAML")
	}
}
