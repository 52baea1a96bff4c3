package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestDecode(t *testing.T) {
	cfg := Default()
	err := cfg.Decode(`
[renderer]
staff_width = 1000

[layout]
policy = "placeholder"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "72h"

[server]
cors_origins = ["http://localhost:5173"]
`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Renderer.StaffWidth != 1000 {
		t.Errorf("StaffWidth = %v, want 1000", cfg.Renderer.StaffWidth)
	}
	if cfg.Renderer.RowSpacing != staff.DefaultRowSpacing {
		t.Errorf("RowSpacing = %v, want default %v", cfg.Renderer.RowSpacing, staff.DefaultRowSpacing)
	}
	if cfg.Layout.Policy != "placeholder" {
		t.Errorf("Policy = %q, want placeholder", cfg.Layout.Policy)
	}
	if ttl, _ := cfg.Cache.Lifetime(); ttl != 72*time.Hour {
		t.Errorf("Lifetime = %v, want 72h", ttl)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want default :8080", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.Code
	}{
		{"syntax", "[renderer", errors.ErrCodeInvalidFormat},
		{"unknown key", "[renderer]\nstaf_width = 3", errors.ErrCodeInvalidFormat},
		{"negative geometry", "[renderer]\nstem_length = -1", errors.ErrCodeDegenerateConfiguration},
		{"policy", "[layout]\npolicy = \"ignore\"", errors.ErrCodeInvalidPolicy},
		{"cache backend", "[cache]\nbackend = \"memcached\"", errors.ErrCodeInvalidInput},
		{"redis without addr", "[cache]\nbackend = \"redis\"", errors.ErrCodeInvalidInput},
		{"ttl", "[cache]\nttl = \"soon\"", errors.ErrCodeInvalidInput},
		{"mongo without uri", "[store]\nbackend = \"mongo\"", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.Decode(tt.toml)
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engrave.toml")
	if err := os.WriteFile(path, []byte("[render]\nformats = [\"svg\", \"png\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Render.Formats) != 2 {
		t.Errorf("Formats = %v, want svg,png", cfg.Render.Formats)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Load(missing) = %v, want INVALID_PATH", err)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())

	if got := Find(); got != "" {
		t.Errorf("Find() = %q, want none", got)
	}

	global := filepath.Join(dir, "engrave", "config.toml")
	if err := os.MkdirAll(filepath.Dir(global), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(global, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Find(); got != global {
		t.Errorf("Find() = %q, want %q", got, global)
	}

	if err := os.WriteFile(FileName, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Find(); got != FileName {
		t.Errorf("Find() = %q, want %q", got, FileName)
	}
}
