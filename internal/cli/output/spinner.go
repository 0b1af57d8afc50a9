package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Spinner shows progress for a long running CLI step.
type Spinner struct {
	mu       sync.Mutex
	w        io.Writer
	message  string
	noColor  bool
	animate  bool
	started  bool
	frames   []string
	interval time.Duration
	styles   *Styles
	stop     chan struct{}
	done     chan struct{}
}

// SpinnerOption configures a Spinner.
type SpinnerOption func(*Spinner)

// WithMessage sets the spinner message.
func WithMessage(msg string) SpinnerOption {
	return func(s *Spinner) { s.message = msg }
}

// WithNoColor disables colour.
func WithNoColor(noColor bool) SpinnerOption {
	return func(s *Spinner) { s.noColor = noColor }
}

// WithWriter sets the destination. Animation is disabled unless w is a terminal.
func WithWriter(w io.Writer) SpinnerOption {
	return func(s *Spinner) { s.w = w }
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(opts ...SpinnerOption) *Spinner {
	s := &Spinner{
		w:        os.Stderr,
		frames:   spinner.Dot.Frames,
		interval: spinner.Dot.FPS,
	}
	for _, opt := range opts {
		opt(s)
	}
	if f, ok := s.w.(*os.File); ok {
		s.animate = isatty.IsTerminal(f.Fd())
	}
	r := lipgloss.NewRenderer(s.w)
	if s.noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	s.styles = NewStyles(r)
	return s
}

// Start begins animating. It prints the message once on non-terminals.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	if !s.animate {
		fmt.Fprintln(s.w, s.message+"...")
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

func (s *Spinner) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		frame := s.styles.Info.Render(s.frames[i%len(s.frames)])
		fmt.Fprintf(s.w, "\r%s %s", frame, s.message)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
	fmt.Fprint(s.w, "\r\033[K")
}

// Success stops the spinner and prints msg as a success.
func (s *Spinner) Success(msg string) {
	s.Stop()
	fmt.Fprintln(s.w, s.styles.Success.Render("✓ "+msg))
}

// Error stops the spinner and prints msg as a failure.
func (s *Spinner) Error(msg string) {
	s.Stop()
	fmt.Fprintln(s.w, s.styles.Error.Render("✗ "+msg))
}
