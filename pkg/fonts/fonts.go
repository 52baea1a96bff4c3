// Package fonts loads SMuFL music fonts for metrics, outlines and SVG
// embedding.
//
// No font ships with the binary. Without one, layout uses the built-in
// Bravura metrics table and raster output uses geometric fallback
// outlines; SVG output references [FontFamily] and relies on the viewer
// having it installed.
package fonts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/errors"
)

// FontFamily is the CSS font-family name of the reference SMuFL font.
const FontFamily = "Bravura"

// FallbackFontFamily lists SMuFL fonts a viewer may have installed.
const FallbackFontFamily = `'Bravura', 'Leland', 'Petaluma', 'Bravura Text', serif`

// Font is a parsed music font together with its raw data.
type Font struct {
	*glyph.SFNT

	data   []byte
	format string

	b64     string
	b64Once sync.Once
}

// Load reads and parses a font file.
func Load(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read font %s", path)
	}
	return Parse(data)
}

// Parse parses OpenType or TrueType font data. WOFF containers are not
// supported because their tables are compressed.
func Parse(data []byte) (*Font, error) {
	format := sniff(data)
	if format == "woff" || format == "woff2" {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s fonts are not supported, use the OTF file", format)
	}
	s, err := glyph.ParseSFNT(data)
	if err != nil {
		return nil, err
	}
	return &Font{SFNT: s, data: data, format: format}, nil
}

func sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("wOFF")):
		return "woff"
	case bytes.HasPrefix(data, []byte("wOF2")):
		return "woff2"
	case bytes.HasPrefix(data, []byte("OTTO")):
		return "opentype"
	}
	return "truetype"
}

// Data returns the raw font bytes.
func (f *Font) Data() []byte { return f.data }

// Format returns the CSS font format: "opentype" or "truetype".
func (f *Font) Format() string { return f.format }

// Family returns the declared family name, or [FontFamily] if the font has
// none.
func (f *Font) Family() string {
	if name := f.SFNT.Family(); name != "" {
		return name
	}
	return FontFamily
}

// Base64 returns the font data as a base64 string.
// The result is cached after first computation.
func (f *Font) Base64() string {
	f.b64Once.Do(func() {
		f.b64 = base64.StdEncoding.EncodeToString(f.data)
	})
	return f.b64
}

// FaceCSS returns an @font-face rule embedding the font as a data URL.
func (f *Font) FaceCSS() string {
	mime := "font/ttf"
	if f.format == "opentype" {
		mime = "font/otf"
	}
	return fmt.Sprintf("@font-face { font-family: '%s'; src: url(data:%s;base64,%s) format('%s'); }",
		f.Family(), mime, f.Base64(), f.format)
}
