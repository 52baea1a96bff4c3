// Package tree draws a staff layout as a Graphviz diagram for debugging.
//
// The diagram mirrors the layout hierarchy:
//
//	staff → rows → measures → items
//
// Each node is labelled with its computed width; detailed mode adds the
// vertical extents, stem direction and ledger count of every item. This
// makes wrapping and justification decisions visible without reading
// coordinates out of a rendered score.
//
// # Usage
//
//	dot := tree.ToDOT(s, tree.Options{Detailed: true})
//	svg, err := tree.RenderSVG(ctx, dot)
//
// # Placeholders
//
// Items that replaced failed events are rendered with dashed outlines and
// grey fill.
package tree
