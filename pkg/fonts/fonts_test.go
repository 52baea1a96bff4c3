package fonts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/engrave/pkg/errors"
)

func TestParse(t *testing.T) {
	f, err := Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.Family(); got != "Go" {
		t.Errorf("Family() = %q, want %q", got, "Go")
	}
	if got := f.Format(); got != "truetype" {
		t.Errorf("Format() = %q, want truetype", got)
	}
	if len(f.Data()) != len(goregular.TTF) {
		t.Errorf("len(Data()) = %d, want %d", len(f.Data()), len(goregular.TTF))
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code errors.Code
	}{
		{"woff", []byte("wOFF\x00\x01\x00\x00"), errors.ErrCodeUnsupported},
		{"woff2", []byte("wOF2\x00\x01\x00\x00"), errors.ErrCodeUnsupported},
		{"garbage", []byte("not a font"), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.code) {
				t.Errorf("Parse() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.otf")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Load(missing) error = %v, want INVALID_PATH", err)
	}
}

func TestFaceCSS(t *testing.T) {
	f, err := Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	css := f.FaceCSS()
	for _, want := range []string{"@font-face", "font-family: 'Go'", "data:font/ttf;base64,", "format('truetype')"} {
		if !strings.Contains(css, want) {
			t.Errorf("FaceCSS() missing %q", want)
		}
	}
	if f.Base64() != f.Base64() {
		t.Error("Base64() not stable")
	}
}
