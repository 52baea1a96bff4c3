package cli

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a pipeline stage on the console's error stream. The
// animation ends when stop is called or the command context is done.
type spinner struct {
	ui      *console
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// startSpinner begins animating message until stop or ctx cancellation.
func startSpinner(ctx context.Context, ui *console, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		ui:      ui,
		message: message,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.ui.clear(utf8.RuneCountInString(s.message) + 2)
			return
		case <-ticker.C:
			s.ui.frame(spinnerFrames[i%len(spinnerFrames)], s.message)
		}
	}
}

// stop ends the animation and clears its line. It may be called more
// than once.
func (s *spinner) stop() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// fail stops the animation and reports which stage failed.
func (s *spinner) fail(stage string) {
	s.stop()
	s.ui.failure("%s failed", stage)
}
