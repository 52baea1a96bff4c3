package server

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/engrave/pkg/buildinfo"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/storage"
)

// contentTypes maps output formats to media types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatDocument: "application/json",
	pipeline.FormatDOT:      "text/vnd.graphviz",
	pipeline.FormatTree:     "image/svg+xml",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

// handleRender lays out and renders the score in the request body without
// storing it.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.sourceOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := formatParam(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(failedHeader, strconv.Itoa(result.Stats.Failed))
	writeArtifact(w, format, result.Artifacts[format])
}

// handleCreateScore parses and lays out the request body, then stores the
// document.
func (s *Server) handleCreateScore(w http.ResponseWriter, r *http.Request) {
	opts, err := s.sourceOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.ValidateForParse(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.ValidateForLayout(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sc, err := s.runner.Parse(ctx, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.runner.Layout(ctx, sc, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc := pipeline.NewDocument(sc, opts)
	doc.Staff = l.Staff
	doc.Diagnostics = l.Diagnostics

	if err := s.store.Put(ctx, doc); err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.Info("stored score", "id", doc.ID, "measures", len(sc.Measures), "failed", len(doc.Diagnostics))

	w.Header().Set("Location", "/scores/"+doc.ID)
	writeJSON(w, http.StatusCreated, struct {
		storage.Summary
		Diagnostics []document.Diagnostic `json:"diagnostics,omitempty"`
	}{storage.Summarize(doc), doc.Diagnostics})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	doc, _, err := s.storedDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := document.Marshal(doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArtifact(w, pipeline.FormatDocument, data)
}

func (s *Server) handleRenderScore(w http.ResponseWriter, r *http.Request) {
	doc, opts, err := s.storedDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}

	artifacts, err := s.runner.Render(r.Context(), doc, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(failedHeader, strconv.Itoa(len(doc.Diagnostics)))
	writeArtifact(w, format, artifacts[format])
}

func (s *Server) handleDeleteScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateScoreID(id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

// storedDocument loads the score named by the id parameter and lays it out
// with its stored renderer, overridden by the query.
func (s *Server) storedDocument(r *http.Request) (*document.Document, pipeline.Options, error) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateScoreID(id); err != nil {
		return nil, pipeline.Options{}, err
	}
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, pipeline.Options{}, err
	}

	opts := s.defaults
	opts.Renderer = doc.Renderer
	if err := applyQuery(&opts, r.URL.Query()); err != nil {
		return nil, opts, err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return nil, opts, err
	}
	if err := doc.Relayout(opts.Renderer, opts.Metrics(), pipeline.Substitute(opts.Policy, opts.Renderer)); err != nil {
		return nil, opts, err
	}
	return doc, opts, nil
}

// sourceOptions reads the request body as a score.
func (s *Server) sourceOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Logger = s.logger
	if err := applyQuery(&opts, r.URL.Query()); err != nil {
		return opts, err
	}
	if err := errors.ValidateTitle(opts.Title); err != nil {
		return opts, err
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	opts.Source = data
	if opts.SourceFormat == "" && isMIDIContentType(r.Header.Get("Content-Type")) {
		opts.SourceFormat = pipeline.SourceMIDI
	}
	return opts, nil
}

func isMIDIContentType(ct string) bool {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.TrimSpace(ct) {
	case "audio/midi", "audio/x-midi", "audio/mid":
		return true
	}
	return false
}

// applyQuery overrides opts with query parameters.
func applyQuery(opts *pipeline.Options, q url.Values) error {
	if v := q.Get("from"); v != "" {
		opts.SourceFormat = v
	}
	if v := q.Get("filename"); v != "" {
		if err := errors.ValidatePath(v); err != nil {
			return err
		}
		opts.Filename = path.Base(v)
	}
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}
	if v := q.Get("policy"); v != "" {
		opts.Policy = v
	}
	opts.Grid = q.Get("grid")
	opts.Clef = q.Get("clef")
	opts.Key = q.Get("key")
	if v := q.Get("background"); v != "" {
		opts.Background = v
	}

	ints := []struct {
		name string
		dst  *int
	}{{"track", &opts.Track}}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", p.name, v)
			}
			*p.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"width", &opts.Renderer.StaffWidth},
		{"row_spacing", &opts.Renderer.RowSpacing},
		{"scale", &opts.Scale},
	}
	for _, p := range floats {
		if v := q.Get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", p.name, v)
			}
			*p.dst = f
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"outlines", &opts.Outlines},
		{"transparent", &opts.Transparent},
		{"detailed", &opts.Detailed},
	}
	for _, p := range bools {
		if v := q.Get(p.name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", p.name, v)
			}
			*p.dst = b
		}
	}
	return nil
}

// formatParam returns the single output format requested, svg by default.
func formatParam(q url.Values) (string, error) {
	format := q.Get("format")
	if format == "" {
		return pipeline.FormatSVG, nil
	}
	return format, pipeline.ValidateFormat(format)
}

func writeArtifact(w http.ResponseWriter, format string, data []byte) {
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
