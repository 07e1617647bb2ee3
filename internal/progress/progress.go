package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives progress for one pipeline stage at a time
type Reporter interface {
	Start(description string, total int64)
	Add(n int64)
	Finish()
}

type nopReporter struct{}

func (nopReporter) Start(string, int64) {}
func (nopReporter) Add(int64)           {}
func (nopReporter) Finish()             {}

// Nop returns a Reporter that draws nothing
func Nop() Reporter {
	return nopReporter{}
}

// Options configures progress bar behavior
type Options struct {
	Quiet   bool
	Verbose bool
	// Writer defaults to stderr. Bars are only drawn on a terminal unless
	// Force is set.
	Writer io.Writer
	Force  bool
}

// Manager handles progress bars and cancellation
type Manager struct {
	options    Options
	writer     io.Writer
	enabled    bool
	stageBar   *progressbar.ProgressBar
	barMux     sync.Mutex
	cancelFunc context.CancelFunc
	cancelled  bool
	cancelMux  sync.Mutex
	signalChan chan os.Signal
}

// NewManager creates a new progress manager
func NewManager(options Options) *Manager {
	writer := options.Writer
	if writer == nil {
		writer = os.Stderr
	}
	return &Manager{
		options:    options,
		writer:     writer,
		enabled:    !options.Quiet && (options.Force || isTerminal(writer)),
		signalChan: make(chan os.Signal, 1),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether bars are drawn
func (pm *Manager) Enabled() bool {
	return pm.enabled
}

// SetupCancellation sets up signal handling for cancellation
func (pm *Manager) SetupCancellation(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	pm.cancelFunc = cancel

	signal.Notify(pm.signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-pm.signalChan:
			pm.cancelMux.Lock()
			pm.cancelled = true
			pm.cancelMux.Unlock()
			// #nosec G104 - cancellation message is not critical for functionality
			fmt.Fprintln(pm.writer, "\nCancelling, finishing the current files...")
			cancel()
		case <-ctx.Done():
			// Context already cancelled
		}
	}()

	return ctx
}

// IsCancelled checks if the operation was cancelled by a signal
func (pm *Manager) IsCancelled() bool {
	pm.cancelMux.Lock()
	defer pm.cancelMux.Unlock()
	return pm.cancelled
}

// Cleanup removes signal handlers
func (pm *Manager) Cleanup() {
	signal.Stop(pm.signalChan)
	if pm.cancelFunc != nil {
		pm.cancelFunc()
	}
	pm.Finish()
}

// Start replaces the current bar with one for a new stage
func (pm *Manager) Start(description string, total int64) {
	if !pm.enabled {
		return
	}

	pm.barMux.Lock()
	defer pm.barMux.Unlock()
	if pm.stageBar != nil {
		// #nosec G104 - progress bar errors are not critical for functionality
		pm.stageBar.Finish()
	}

	pm.stageBar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(pm.writer),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(65),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			// #nosec G104 - progress bar completion message is not critical
			fmt.Fprint(pm.writer, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
}

// Add advances the current bar. Safe to call from several workers.
func (pm *Manager) Add(n int64) {
	if !pm.enabled {
		return
	}
	pm.barMux.Lock()
	defer pm.barMux.Unlock()
	if pm.stageBar == nil {
		return
	}
	// #nosec G104 - progress bar errors are not critical for functionality
	pm.stageBar.Add64(n)
}

// Finish completes the current bar
func (pm *Manager) Finish() {
	if !pm.enabled {
		return
	}
	pm.barMux.Lock()
	defer pm.barMux.Unlock()
	if pm.stageBar == nil {
		return
	}
	// #nosec G104 - progress bar errors are not critical for functionality
	pm.stageBar.Finish()
	pm.stageBar = nil
}

// Clear wipes the current bar so a message can be printed on a clean line
func (pm *Manager) Clear() {
	if !pm.enabled {
		return
	}
	pm.barMux.Lock()
	defer pm.barMux.Unlock()
	if pm.stageBar != nil {
		// #nosec G104 - progress bar clear is not critical for functionality
		pm.stageBar.Clear()
	}
}
