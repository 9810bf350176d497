package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/unitydialog/internal/config"
	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/match"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// ErrStopped is returned for requests made after the event loop exited.
var ErrStopped = errors.New("daemon is not running")

// EventLoop is the source of window system events. Callbacks run between a
// receive on before and a receive on after.
type EventLoop interface {
	MainPing() (before, after, quit <-chan struct{})
	Quit()
}

// WindowHost is the part of the window system host the daemon drives.
type WindowHost interface {
	NeedsFrame() bool
	Frame(now time.Time, elapsed time.Duration)
	SetAvoid(expr match.Expr)
	SyncClientList() []platform.WindowID
	Invalidate()
	Close()
}

// Options holds everything a Daemon is built from.
type Options struct {
	ConfigPath string
	Config     *config.Config
	Loop       EventLoop
	Host       WindowHost
	Screen     *dialog.Screen
	Level      *slog.LevelVar
	Logger     *slog.Logger
}

// Daemon serializes window system events, frame ticks and control requests
// onto one goroutine. All Screen and host state is owned by that goroutine.
type Daemon struct {
	cfgPath string
	cfg     *config.Config
	loop    EventLoop
	host    WindowHost
	screen  *dialog.Screen
	level   *slog.LevelVar
	logger  *slog.Logger

	requests chan func()
	done     chan struct{}

	frameTicker *time.Ticker
	lastFrame   time.Time
}

// New creates a daemon and applies opts.Config. The config must be valid.
func New(opts Options) (*Daemon, error) {
	if opts.Loop == nil || opts.Host == nil || opts.Screen == nil {
		return nil, errors.New("daemon needs an event loop, a host and a screen")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	d := &Daemon{
		cfgPath:  opts.ConfigPath,
		loop:     opts.Loop,
		host:     opts.Host,
		screen:   opts.Screen,
		level:    opts.Level,
		logger:   logger,
		requests: make(chan func()),
		done:     make(chan struct{}),
	}
	if err := d.applyConfig(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// OnParentChange registers fn with the screen. It must be called before Run;
// fn runs on the event loop goroutine.
func (d *Daemon) OnParentChange(fn dialog.ParentListener) {
	d.screen.OnParentChange(fn)
}

// Run processes events until ctx is cancelled or the event loop quits.
func (d *Daemon) Run(ctx context.Context) error {
	defer close(d.done)
	defer d.stopFrames()

	before, after, quit := d.loop.MainPing()
	d.logger.Info("event loop started", "frame_interval", d.cfg.FrameDuration())

	for {
		d.updateFrameClock()

		var frames <-chan time.Time
		if d.frameTicker != nil {
			frames = d.frameTicker.C
		}

		select {
		case <-ctx.Done():
			d.shutdown(quit)
			return nil
		case <-quit:
			d.logger.Warn("event loop quit")
			d.host.Close()
			return errors.New("event loop quit unexpectedly")
		case <-before:
			// Event callbacks run now; wait until they are done.
			<-after
		case now := <-frames:
			d.frame(now)
		case fn := <-d.requests:
			fn()
		}
	}
}

// shutdown releases host resources and stops the event loop. The loop only
// notices Quit on its next event, so quit is not waited on for long.
func (d *Daemon) shutdown(quit <-chan struct{}) {
	d.logger.Info("shutting down")
	d.host.Close()
	if shade := d.screen.Shade(); shade != nil {
		shade.Release()
	}
	d.loop.Quit()

	timer := time.NewTimer(500 * time.Millisecond)
	defer timer.Stop()
	select {
	case <-quit:
	case <-timer.C:
		d.logger.Debug("event loop did not stop in time")
	}
}

// updateFrameClock starts the frame ticker when the host has per-frame work
// and stops it when it goes idle.
func (d *Daemon) updateFrameClock() {
	needs := d.host.NeedsFrame()
	switch {
	case needs && d.frameTicker == nil:
		d.frameTicker = time.NewTicker(d.cfg.FrameDuration())
		d.lastFrame = time.Now()
	case !needs && d.frameTicker != nil:
		d.stopFrames()
	}
}

func (d *Daemon) stopFrames() {
	if d.frameTicker != nil {
		d.frameTicker.Stop()
		d.frameTicker = nil
	}
}

func (d *Daemon) frame(now time.Time) {
	elapsed := now.Sub(d.lastFrame)
	d.lastFrame = now
	d.host.Frame(now, elapsed)
}

// do runs fn on the event loop goroutine and waits for it.
func (d *Daemon) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case d.requests <- func() { defer close(ran); fn() }:
	case <-d.done:
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-d.done:
		return ErrStopped
	}
}

// Snapshot returns the current relationship state. It is safe to call from
// any goroutine.
func (d *Daemon) Snapshot() dialog.Snapshot {
	var snap dialog.Snapshot
	if err := d.do(func() { snap = d.screen.Snapshot() }); err != nil {
		return dialog.Snapshot{}
	}
	return snap
}

// Check verifies the relationship graph. It is safe to call from any
// goroutine.
func (d *Daemon) Check() []error {
	var problems []error
	if err := d.do(func() { problems = d.screen.Check() }); err != nil {
		return []error{err}
	}
	return problems
}

// SyncClients re-reads the managed window list and returns the windows that
// were dropped.
func (d *Daemon) SyncClients() []platform.WindowID {
	var removed []platform.WindowID
	if err := d.do(func() { removed = d.host.SyncClientList() }); err != nil {
		return nil
	}
	return removed
}

// Reload re-reads the config file and applies it. The running config is
// kept when the file does not load or validate.
func (d *Daemon) Reload() error {
	if d.cfgPath == "" {
		return errors.New("no config path to reload from")
	}
	res, err := config.LoadFromPath(d.cfgPath)
	if err != nil {
		return err
	}

	var applyErr error
	if err := d.do(func() { applyErr = d.applyConfig(res.Config) }); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}
	d.logger.Info("config reloaded", "path", d.cfgPath, "files", len(res.Files))
	return nil
}

// applyConfig pushes cfg into the screen, the shade texture and the host.
// Nothing is changed when cfg is rejected.
func (d *Daemon) applyConfig(cfg *config.Config) error {
	shadeColor, err := cfg.Color()
	if err != nil {
		return fmt.Errorf("invalid shade_color: %w", err)
	}
	avoid, err := d.compileAvoid(cfg.AvoidMatch)
	if err != nil {
		return fmt.Errorf("invalid avoid_match: %w", err)
	}

	prev := d.cfg
	d.cfg = cfg
	if d.level != nil {
		d.level.Set(cfg.SlogLevel())
	}
	d.screen.SetFadeTime(cfg.FadeDuration())
	if shade := d.screen.Shade(); shade != nil {
		shade.Render(shadeColor, cfg.Alpha)
	}
	d.host.SetAvoid(avoid)
	d.host.Invalidate()

	if prev != nil && prev.FrameInterval != cfg.FrameInterval {
		d.stopFrames()
	}
	return nil
}

// compileAvoid parses an avoid_match expression with the transient-dialog
// key bound to this screen. The empty expression yields nil.
func (d *Daemon) compileAvoid(expr string) (match.Expr, error) {
	if expr == "" {
		return nil, nil
	}
	p := match.NewParser()
	p.Register("transient-dialog", func(value string) (match.Predicate, error) {
		fn, err := d.screen.MatchInitExp(value)
		if err != nil {
			return nil, err
		}
		return func(w match.Window) bool { return fn(w.ID()) }, nil
	})
	return p.Parse(expr)
}
