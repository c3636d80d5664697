package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/stt"
	"github.com/lexiqai/transcript-gateway/internal/transcript"
)

// DefaultFilename is the name downloads are saved under
const DefaultFilename = "transcript.txt"

// Options configures a Controller
type Options struct {
	// Source recognizes speech. A nil Source makes recognition unavailable.
	Source stt.Source

	// UnavailableReason is logged when Start is refused
	UnavailableReason string

	Presenter Presenter
	Clipboard Clipboard
	Exporter  Exporter

	// Filename for downloads, DefaultFilename when empty
	Filename string

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

type command struct {
	run   func() error
	reply chan error
}

// Controller owns the State of one transcript session. Every mutation
// happens on the goroutine running Run; the exported operations hand work
// to that goroutine and wait for it.
type Controller struct {
	source    stt.Source
	reason    string
	presenter Presenter
	clipboard Clipboard
	exporter  Exporter
	filename  string
	logger    zerolog.Logger
	metrics   *observability.Metrics

	listening bool
	acc       transcript.Accumulator

	commands chan command
	done     chan struct{}
}

// NewController creates a controller; call Run to start its loop
func NewController(opts Options) *Controller {
	filename := opts.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	presenter := opts.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}

	return &Controller{
		source:    opts.Source,
		reason:    opts.UnavailableReason,
		presenter: presenter,
		clipboard: opts.Clipboard,
		exporter:  opts.Exporter,
		filename:  filename,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		commands:  make(chan command),
		done:      make(chan struct{}),
	}
}

// Available reports whether a recognition source is configured
func (c *Controller) Available() bool {
	return c.source != nil
}

// Done is closed once Run has returned
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run processes commands and recognition output until ctx is done. The
// source is closed on return. It first publishes the initial state and,
// when recognition is unavailable, a notice saying so.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	var (
		results <-chan transcript.Event
		errs    <-chan *stt.SourceError
	)
	if c.source != nil {
		results = c.source.Results()
		errs = c.source.Errors()
	}

	c.publish()
	if c.source == nil {
		c.notify(LevelError, MsgUnavailable)
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case cmd := <-c.commands:
			cmd.reply <- cmd.run()
		case ev := <-results:
			c.handleEvent(ev)
		case serr := <-errs:
			c.handleSourceError(ctx, serr)
		}
	}
}

func (c *Controller) shutdown() {
	if c.source == nil {
		return
	}
	if err := c.source.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close recognition source")
	}
	if c.listening {
		c.listening = false
		c.metrics.RecordListening(false)
	}
}

// do runs fn on the loop goroutine and returns its error
func (c *Controller) do(ctx context.Context, fn func() error) error {
	cmd := command{run: fn, reply: make(chan error, 1)}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins listening with an empty transcript. It does nothing when
// already listening.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.listening {
			return nil
		}
		if c.source == nil {
			c.logger.Warn().Str("reason", c.reason).Msg("Start refused, speech recognition unavailable")
			c.notify(LevelError, MsgUnavailable)
			return ErrUnavailable
		}

		c.acc.Reset()
		if err := c.source.Start(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Failed to start recognition")
			c.metrics.RecordError("start_failed", "session")
			c.notify(LevelError, "Could not start speech recognition.")
			c.publish()
			return fmt.Errorf("start recognition: %w", err)
		}

		c.listening = true
		c.metrics.RecordListening(true)
		c.logger.Info().Msg("Listening started")
		c.publish()
		return nil
	})
}

// Stop ends listening and clears the interim text. It does nothing when
// not listening.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, func() error {
		if !c.listening {
			return nil
		}
		c.stopListening()
		c.logger.Info().Int("committed_len", len(c.acc.Committed)).Msg("Listening stopped")
		c.publish()
		return nil
	})
}

func (c *Controller) stopListening() {
	if err := c.source.Stop(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to stop recognition source")
	}
	c.listening = false
	c.acc.Interim = ""
	c.metrics.RecordListening(false)
}

// Clear empties the transcript without changing Listening
func (c *Controller) Clear(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.acc.Reset()
		c.publish()
		return nil
	})
}

// Snapshot returns the current state
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	var state State
	err := c.do(ctx, func() error {
		state = c.state()
		return nil
	})
	return state, err
}

// Copy writes the committed transcript to the clipboard
func (c *Controller) Copy(ctx context.Context) error {
	return c.do(ctx, func() error {
		text := c.acc.Committed
		if text == "" {
			c.metrics.RecordExport("copy", "empty")
			c.notify(LevelInfo, MsgNothingToCopy)
			return ErrNothingToCopy
		}
		if c.clipboard == nil {
			c.metrics.RecordExport("copy", "error")
			c.notify(LevelError, "Clipboard is not available.")
			return fmt.Errorf("copy transcript: no clipboard")
		}
		if err := c.clipboard.WriteText(ctx, text); err != nil {
			c.logger.Error().Err(err).Msg("Failed to copy transcript")
			c.metrics.RecordExport("copy", "error")
			c.notify(LevelError, "Failed to copy transcript.")
			return fmt.Errorf("copy transcript: %w", err)
		}
		c.metrics.RecordExport("copy", "ok")
		c.notify(LevelInfo, MsgCopied)
		return nil
	})
}

// Download exports the committed transcript as a file
func (c *Controller) Download(ctx context.Context) error {
	return c.do(ctx, func() error {
		text := c.acc.Committed
		if text == "" {
			c.metrics.RecordExport("download", "empty")
			c.notify(LevelInfo, MsgNothingToExport)
			return ErrNothingToDownload
		}
		if c.exporter == nil {
			c.metrics.RecordExport("download", "error")
			c.notify(LevelError, "Download is not available.")
			return fmt.Errorf("download transcript: no exporter")
		}
		if err := c.exporter.Export(ctx, c.filename, text); err != nil {
			c.logger.Error().Err(err).Msg("Failed to export transcript")
			c.metrics.RecordExport("download", "error")
			c.notify(LevelError, "Failed to download transcript.")
			return fmt.Errorf("download transcript: %w", err)
		}
		c.metrics.RecordExport("download", "ok")
		return nil
	})
}

// handleEvent applies one recognition event. Events that arrive after a
// stop may still carry final text the source flushed; that text is kept
// but interim text is not shown while idle.
func (c *Controller) handleEvent(ev transcript.Event) {
	appended := c.acc.Apply(ev)
	if !c.listening {
		c.acc.Interim = ""
	}
	c.metrics.RecordEvent(transcript.HasFinal(ev), appended)
	if appended {
		c.logger.Debug().Int("committed_len", len(c.acc.Committed)).Msg("Final segment appended")
	}
	c.publish()
}

// handleSourceError reports a recognition error. Only fatal errors end
// listening.
func (c *Controller) handleSourceError(ctx context.Context, serr *stt.SourceError) {
	if serr == nil {
		return
	}
	c.metrics.RecordSourceError(serr.Code, serr.Fatal)

	event := c.logger.Warn()
	if serr.Fatal {
		event = c.logger.Error()
	}
	event.Err(serr).Str("code", serr.Code).Bool("fatal", serr.Fatal).Msg("Recognition error")

	c.notify(LevelError, "Speech recognition error: "+serr.Message)

	if serr.Fatal && c.listening && ctx.Err() == nil {
		c.stopListening()
		c.publish()
	}
}

func (c *Controller) state() State {
	return State{
		Listening: c.listening,
		Committed: c.acc.Committed,
		Interim:   c.acc.Interim,
	}
}

func (c *Controller) publish() {
	c.presenter.Publish(c.state())
}

func (c *Controller) notify(level, message string) {
	c.metrics.RecordNotice(level)
	c.presenter.Notify(Notice{Level: level, Message: message})
}

type nopPresenter struct{}

func (nopPresenter) Publish(State) {}
func (nopPresenter) Notify(Notice) {}
