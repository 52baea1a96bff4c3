package staff

// Row is a line of measures that fits the staff width.
type Row struct {
	Measures []Measure `json:"measures"`
	Width    float64   `json:"width"`
	Top      float64   `json:"top"`
	Bottom   float64   `json:"bottom"`

	InkTop    float64 `json:"ink_top,omitempty"`
	InkBottom float64 `json:"ink_bottom,omitempty"`
}

// Staff packs measures into rows. Construct with [NewStaff] and add
// measures in order with [Staff.Push].
type Staff struct {
	Renderer Renderer `json:"renderer"`
	Rows     []Row    `json:"rows"`
}

// NewStaff returns an empty staff.
func NewStaff(r Renderer) *Staff {
	return &Staff{Renderer: r}
}

// Fits reports whether a measure of width w can join a row of width
// rowWidth without exceeding the staff width.
func Fits(rowWidth, w, staffWidth float64) bool {
	return rowWidth+w <= staffWidth
}

// Push appends m to the last row if it fits, otherwise starts a new row.
// Packing is next-fit: earlier rows are never revisited.
func (s *Staff) Push(m Measure) {
	if n := len(s.Rows); n > 0 && Fits(s.Rows[n-1].Width, m.Width, s.Renderer.StaffWidth) {
		row := &s.Rows[n-1]
		row.Measures = append(row.Measures, m)
		row.Width += m.Width
		row.Top = max(row.Top, m.Top)
		row.Bottom = max(row.Bottom, m.Bottom)
		row.InkTop = max(row.InkTop, m.InkTop)
		row.InkBottom = max(row.InkBottom, m.InkBottom)
		return
	}
	s.Rows = append(s.Rows, Row{
		Measures:  []Measure{m},
		Width:     m.Width,
		Top:       m.Top,
		Bottom:    m.Bottom,
		InkTop:    m.InkTop,
		InkBottom: m.InkBottom,
	})
}

// Measures returns the number of measures across all rows.
func (s *Staff) Measures() int {
	n := 0
	for _, row := range s.Rows {
		n += len(row.Measures)
	}
	return n
}

// Extra returns the justification width each measure of row receives.
// It is never negative: a row wider than the padded staff is drawn at its
// natural width.
func (s *Staff) Extra(row Row) float64 {
	if len(row.Measures) == 0 {
		return 0
	}
	r := s.Renderer
	return max(0, (r.StaffWidth-row.Width-2*r.DocumentPadding)/float64(len(row.Measures)))
}

// RowY returns the y of row i's top staff line for a staff drawn at y.
func (s *Staff) RowY(y float64, i int) float64 {
	return s.rowY(y, i, s.Inset())
}

func (s *Staff) rowY(y float64, i int, inset float64) float64 {
	r := s.Renderer
	return y + r.DocumentPadding + inset + float64(i)*r.RowSpacing + s.Rows[i].Top
}

// Inset returns the space added above the first row so that stems and
// flags reaching past a row's Top stay inside the document. It is zero
// unless some row's ink would cross the top padding.
func (s *Staff) Inset() float64 {
	inset := 0.0
	for i, row := range s.Rows {
		inset = max(inset, row.InkTop-row.Top-float64(i)*s.Renderer.RowSpacing)
	}
	return inset
}

// Width returns the document width.
func (s *Staff) Width() float64 {
	w := s.Renderer.StaffWidth
	for _, row := range s.Rows {
		w = max(w, row.Width+2*s.Renderer.DocumentPadding)
	}
	return w
}

// Height returns the document height including padding.
func (s *Staff) Height() float64 {
	r := s.Renderer
	if len(s.Rows) == 0 {
		return 2 * r.DocumentPadding
	}
	inset := s.Inset()
	h := 0.0
	for i, row := range s.Rows {
		below := max(row.Bottom, row.InkBottom)
		h = max(h, s.rowY(0, i, inset)+r.StaffHeight()+below+r.DocumentPadding)
	}
	return h
}

// Draw emits every row top to bottom with the document's top-left corner
// at (x, y).
func (s *Staff) Draw(x, y float64, sink Sink) {
	r := s.Renderer
	inset := s.Inset()
	for i, row := range s.Rows {
		extra := s.Extra(row)
		ry := s.rowY(y, i, inset)
		mx := x + r.DocumentPadding
		for j, m := range row.Measures {
			m.Draw(mx, ry, extra, j == 0, r, sink)
			mx += m.Width + extra
		}
	}
}
