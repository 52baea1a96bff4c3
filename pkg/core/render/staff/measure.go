package staff

// Measure is an ordered run of items between two barlines.
type Measure struct {
	Items  []Item  `json:"items"`
	Width  float64 `json:"width"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`

	InkTop    float64 `json:"ink_top,omitempty"`
	InkBottom float64 `json:"ink_bottom,omitempty"`
}

// NewMeasure aggregates items. Width is the sum of item widths plus
// padding and a barline stroke on each side; Top and Bottom are the
// largest extents of any item.
func NewMeasure(items []Item, r Renderer) Measure {
	m := Measure{Items: items}
	var sum float64
	for _, it := range items {
		sum += it.Width
		m.Top = max(m.Top, it.Top)
		m.Bottom = max(m.Bottom, it.Bottom)
		m.InkTop = max(m.InkTop, it.InkTop)
		m.InkBottom = max(m.InkBottom, it.InkBottom)
	}
	m.Width = sum + 2*r.Padding + 2*r.StrokeWidth
	return m
}

// Draw emits the measure with its left edge at x and the top staff line at
// y. extra is the justification width handed down by the row; it widens
// the measure and is shared equally by its items. first adds a left
// barline.
func (m Measure) Draw(x, y, extra float64, first bool, r Renderer, sink Sink) {
	w := m.Width + extra
	sw := r.StrokeWidth
	for k := TopLine; k >= BottomLine; k -= 2 {
		ly := y + r.IndexY(k)
		sink.Emit(Line{X1: x, Y1: ly, X2: x + w, Y2: ly, StrokeWidth: sw})
	}
	if first {
		sink.Emit(Line{X1: x, Y1: y, X2: x, Y2: y + r.StaffHeight(), StrokeWidth: sw})
	}

	share := 0.0
	if len(m.Items) > 0 {
		share = extra / float64(len(m.Items))
	}
	cx := x + sw + r.Padding
	for _, it := range m.Items {
		it.Draw(cx, y, r, sink)
		cx += it.Width + share
	}

	sink.Emit(Line{X1: x + w, Y1: y, X2: x + w, Y2: y + r.StaffHeight(), StrokeWidth: sw})
}
