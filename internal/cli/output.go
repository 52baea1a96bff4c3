package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/engrave/pkg/pipeline"
)

// extensions maps output formats to file suffixes.
var extensions = map[string]string{
	pipeline.FormatSVG:      "svg",
	pipeline.FormatPNG:      "png",
	pipeline.FormatPDF:      "pdf",
	pipeline.FormatJSON:     "json",
	pipeline.FormatDocument: "layout.json",
	pipeline.FormatDOT:      "dot",
	pipeline.FormatTree:     "tree.svg",
}

// basePath derives the base output path. Without an output it strips the
// extension from input; otherwise it strips a known format extension from
// output.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	for _, ext := range []string{".layout.json", ".tree.svg"} {
		if strings.HasSuffix(output, ext) {
			return strings.TrimSuffix(output, ext)
		}
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.ValidFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where an artifact of format is written. A single
// format goes to output verbatim when one is given.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	return basePath(output, input) + "." + extensions[format]
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for path, or stdout for "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// artifactWriteParams describes rendered artifacts to write.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string
	output    string
}

// writeArtifacts writes each artifact in format order and returns the
// paths written.
func writeArtifacts(p artifactWriteParams) ([]string, error) {
	single := len(p.formats) == 1
	if p.output == "-" && !single {
		return nil, fmt.Errorf("stdout output needs exactly one format")
	}

	var paths []string
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}
		path := outputPath(p.output, p.input, format, single)
		if err := writeFile(path, data); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
