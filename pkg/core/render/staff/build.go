package staff

import (
	"fmt"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/score"
)

// ItemError reports an event that could not be laid out.
type ItemError struct {
	Measure int         // measure index in the input
	Item    int         // event index within the measure
	Event   score.Event // the rejected event
	Err     error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("measure %d, item %d (%s): %v", e.Measure+1, e.Item+1, e.Event, e.Err)
}

// Unwrap returns the underlying layout error.
func (e *ItemError) Unwrap() error { return e.Err }

// Substitute decides what replaces an event that failed to lay out. It
// returns the replacement item and whether to keep it.
type Substitute func(e *ItemError) (Item, bool)

// Skip drops failed events.
func Skip(*ItemError) (Item, bool) { return Item{}, false }

// UsePlaceholder replaces failed events with a [Placeholder] item.
func UsePlaceholder(r Renderer) Substitute {
	return func(*ItemError) (Item, bool) { return Placeholder(r), true }
}

// Build lays out measures of events and packs them onto a staff. Events
// that fail are reported and handed to sub; the rest of the document is
// laid out regardless. A nil sub skips failed events. The returned error
// is non-nil only when the renderer itself is degenerate.
func Build(measures [][]score.Event, r Renderer, gm glyph.Metrics, sub Substitute) (*Staff, []*ItemError, error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	if sub == nil {
		sub = Skip
	}

	s := NewStaff(r)
	var failed []*ItemError
	clef := score.Treble
	for mi, events := range measures {
		items := make([]Item, 0, len(events))
		for ei, ev := range events {
			it, err := NewItem(ev, r, gm, InClef(clef))
			if err != nil {
				ie := &ItemError{Measure: mi, Item: ei, Event: ev, Err: err}
				failed = append(failed, ie)
				if rep, keep := sub(ie); keep {
					items = append(items, rep)
				}
				continue
			}
			if ev.Kind == score.EventClef {
				clef = ev.Clef
			}
			items = append(items, it)
		}
		s.Push(NewMeasure(items, r))
	}
	return s, failed, nil
}
