package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/config"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/pipeline"
)

const tune = `\title "Scale" c'4 d' e' f' | g' a' b' c''`

// newTestCLI returns a CLI that ignores config files on the machine and
// keeps its cache and store under temporary directories.
func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(io.Discard, LogInfo)
	c.ui = newConsole(io.Discard, io.Discard)
	c.Config.Cache.Dir = t.TempDir()
	c.Config.Store.Dir = t.TempDir()
	return c
}

func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeScore(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback []string
		want     []string
	}{
		{"empty defaults to svg", "", nil, []string{"svg"}},
		{"empty keeps configured", "", []string{"png"}, []string{"png"}},
		{"single format", "svg", nil, []string{"svg"}},
		{"multiple formats", "svg,pdf,png", nil, []string{"svg", "pdf", "png"}},
		{"spaces and blanks", " svg , ,json", nil, []string{"svg", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input, tt.fallback)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input string
		want          string
	}{
		{"", "song.ly", "song"},
		{"", "dir/song.mid", "dir/song"},
		{"out.svg", "song.ly", "out"},
		{"out.layout.json", "song.ly", "out"},
		{"out.tree.svg", "song.ly", "out"},
		{"out", "song.ly", "out"},
		{"out.v2", "song.ly", "out.v2"},
	}
	for _, tt := range tests {
		t.Run(tt.output+"|"+tt.input, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		format string
		single bool
		want   string
	}{
		{"derived", "", pipeline.FormatSVG, true, "song.svg"},
		{"single verbatim", "x.img", pipeline.FormatPNG, true, "x.img"},
		{"multiple", "x.svg", pipeline.FormatPNG, false, "x.png"},
		{"document", "", pipeline.FormatDocument, false, "song.layout.json"},
		{"tree", "", pipeline.FormatTree, false, "song.tree.svg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.output, "song.ly", tt.format, tt.single); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{"svg": []byte("<svg/>"), "json": []byte("{}")},
		formats:   []string{"svg", "json", "png"},
		input:     filepath.Join(dir, "song.ly"),
		output:    filepath.Join(dir, "out", "song"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "out", "song.svg"), filepath.Join(dir, "out", "song.json")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if data, _ := os.ReadFile(want[0]); string(data) != "<svg/>" {
		t.Errorf("svg = %q, want <svg/>", data)
	}

	_, err = writeArtifacts(artifactWriteParams{formats: []string{"svg", "png"}, output: "-"})
	if err == nil {
		t.Error("stdout with two formats: want error")
	}
}

func TestOptions(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.Config.Layout.Policy = pipeline.PolicyPlaceholder
	c.Config.Render.Scale = 3

	opts, err := c.options(&layoutFlags{width: 640, key: "2#"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Policy != pipeline.PolicyPlaceholder {
		t.Errorf("Policy = %q, want config value", opts.Policy)
	}
	if opts.Renderer.StaffWidth != 640 {
		t.Errorf("StaffWidth = %v, want flag value 640", opts.Renderer.StaffWidth)
	}
	if opts.Scale != 3 || opts.Key != "2#" {
		t.Errorf("Scale, Key = %v, %q, want 3, 2#", opts.Scale, opts.Key)
	}

	opts, err = c.options(&layoutFlags{policy: pipeline.PolicyFail})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Policy != pipeline.PolicyFail {
		t.Errorf("Policy = %q, want flag to override config", opts.Policy)
	}

	if _, err := c.options(&layoutFlags{font: "missing.otf"}); err == nil {
		t.Error("missing font: want error")
	}
}

func TestRenderCommand(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	input := writeScore(t, dir, "scale.ly", tune)

	if err := run(t, c, "render", input, "-f", "svg,json,document"); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, name := range []string{"scale.svg", "scale.json", "scale.layout.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(dir, "scale.svg"))
	if !strings.Contains(string(data), "<title>Scale</title>") {
		t.Errorf("svg missing title")
	}

	doc, err := document.ReadFile(filepath.Join(dir, "scale.layout.json"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Scale" || doc.Staff == nil {
		t.Errorf("document = %q staff=%v, want laid out Scale", doc.Title, doc.Staff != nil)
	}
}

func TestLayoutThenVisualize(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	input := writeScore(t, dir, "scale.ly", tune)

	if err := run(t, c, "layout", input); err != nil {
		t.Fatalf("layout: %v", err)
	}
	layout := filepath.Join(dir, "scale.layout.json")
	if err := run(t, c, "visualize", layout, "-f", "dot", "-o", filepath.Join(dir, "viz")); err != nil {
		t.Fatalf("visualize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "viz"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("dot output = %.20q, want digraph", data)
	}
}

func TestRenderPolicyFail(t *testing.T) {
	c := newTestCLI(t)
	input := writeScore(t, t.TempDir(), "broken.ly", `c'4 d' e' f' | <>4 g' g' g' |`)

	if err := run(t, c, "render", input, "--policy", "fail"); err == nil {
		t.Error("render with empty chord and --policy fail: want error")
	}
	if err := run(t, c, "render", input, "--policy", "skip"); err != nil {
		t.Errorf("render with --policy skip: %v", err)
	}
}

func TestLayoutReport(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	input := writeScore(t, dir, "broken.ly", `c'4 d' e' f' | <>4 g' g' g' |`)

	var out bytes.Buffer
	root := c.RootCommand()
	root.SetArgs([]string{"layout", input, "--policy", "skip"})
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("layout: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Layout complete",
		filepath.Join(dir, "broken.layout.json"),
		"1 event(s) could not be laid out",
		"measure 2, event 1:",
		"engrave visualize",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestImportAndScores(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	input := writeScore(t, dir, "scale.ly", tune)

	if err := run(t, c, "import", input, "--title", "Imported"); err != nil {
		t.Fatalf("import: %v", err)
	}

	ctx := context.Background()
	store, err := c.newStore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx, 0)
	store.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "Imported" {
		t.Fatalf("stored = %+v, want one Imported score", list)
	}
	id := list[0].ID

	out := filepath.Join(dir, "export.layout.json")
	if err := run(t, c, "scores", "export", id, "-o", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := document.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != id || doc.Staff == nil {
		t.Errorf("exported %s staff=%v, want %s with layout", doc.ID, doc.Staff != nil, id)
	}

	if err := run(t, c, "scores", "rm", id); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if err := run(t, c, "scores", "show", id); err == nil {
		t.Error("show after rm: want error")
	}
}

func TestCacheClear(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	fc, err := cache.NewFileCache(c.Config.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b"} {
		if err := fc.Set(ctx, k, []byte("x"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if err := run(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, "a"); hit {
		t.Error("entry survived cache clear")
	}

	c.Config.Cache.Backend = config.BackendNone
	if err := run(t, c, "cache", "clear"); err != nil {
		t.Errorf("cache clear with caching disabled: %v", err)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
