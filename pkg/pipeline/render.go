package pipeline

import (
	"context"

	"github.com/matzehuels/engrave/pkg/core/render/sink"
	"github.com/matzehuels/engrave/pkg/core/render/tree"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
)

// Render generates output artifacts for every format in opts.Formats.
// The document must have been laid out.
func Render(ctx context.Context, doc *document.Document, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if doc == nil || doc.Staff == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document has no layout")
	}
	if opts.Title == "" {
		opts.Title = doc.Title
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := renderFormat(ctx, doc, format, opts)
		if err != nil {
			return nil, errors.Wrap(codeOf(err), err, "render %s", format)
		}
		artifacts[format] = data
		opts.Logger.Debug("rendered", "format", format, "bytes", len(data))
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, doc *document.Document, format string, opts Options) ([]byte, error) {
	s := doc.Staff
	switch format {
	case FormatSVG:
		return sink.RenderSVG(s, svgOptions(opts)...)
	case FormatPNG:
		po := []sink.PNGOption{sink.WithScale(opts.Scale), sink.WithPNGOutliner(opts.Outliner())}
		if opts.Transparent {
			po = append(po, sink.WithTransparent())
		}
		return sink.RenderPNG(s, po...)
	case FormatPDF:
		so := svgOptions(opts)
		if opts.Font != nil {
			so = append(so, sink.WithOutliner(opts.Font))
		}
		return sink.RenderPDF(ctx, s, sink.WithPDFSVGOptions(so...))
	case FormatJSON:
		return sink.RenderJSON(s, sink.WithJSONTitle(opts.Title), sink.WithJSONRenderer())
	case FormatDocument:
		return document.Marshal(doc)
	case FormatDOT:
		return []byte(tree.ToDOT(s, treeOptions(opts))), nil
	case FormatTree:
		return tree.RenderSVG(ctx, tree.ToDOT(s, treeOptions(opts)))
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
	}
}

func svgOptions(opts Options) []sink.SVGOption {
	so := []sink.SVGOption{sink.WithTitle(opts.Title)}
	if opts.Background != "" {
		so = append(so, sink.WithBackground(opts.Background))
	}
	if opts.Font != nil {
		so = append(so, sink.WithFont(opts.Font))
	}
	if opts.Outlines {
		so = append(so, sink.WithOutliner(opts.Outliner()))
	}
	return so
}

func treeOptions(opts Options) tree.Options {
	if opts.Detailed {
		return tree.Options{Detailed: true}
	}
	return tree.Options{MaxItems: 12}
}

// codeOf keeps the code of a wrapped error, defaulting to INTERNAL.
func codeOf(err error) errors.Code {
	if c := errors.GetCode(err); c != "" {
		return c
	}
	return errors.ErrCodeInternal
}
