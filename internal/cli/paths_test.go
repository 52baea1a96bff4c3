package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppDirs(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		env  string
		fn   func() (string, error)
		xdg  string
		want string
	}{
		{"cache default", "XDG_CACHE_HOME", cacheDir, "", filepath.Join(home, ".cache", appName)},
		{"cache xdg", "XDG_CACHE_HOME", cacheDir, "/tmp/custom-cache", filepath.Join("/tmp/custom-cache", appName)},
		{"data default", "XDG_DATA_HOME", dataDir, "", filepath.Join(home, ".local", "share", appName)},
		{"data xdg", "XDG_DATA_HOME", dataDir, "/tmp/custom-data", filepath.Join("/tmp/custom-data", appName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.xdg)
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if got != tt.want {
				t.Errorf("dir = %q, want %q", got, tt.want)
			}
		})
	}
}
