package daemon

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/1broseidon/unitydialog/internal/config"
	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/x11"
)

// NewX11 connects to the display named by cfg, adopts the windows already
// managed there and returns a daemon ready to Run.
func NewX11(cfgPath string, cfg *config.Config, level *slog.LevelVar, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	target, err := resolveDisplay(os.Getenv, cfg)
	if err != nil {
		return nil, err
	}
	if target.XAuthority != "" && os.Getenv("XAUTHORITY") != target.XAuthority {
		os.Setenv("XAUTHORITY", target.XAuthority)
	}
	logger.Debug("connecting to X display", "display", target.Display, "xauthority", target.XAuthority)

	conn, err := x11.NewConnection(target.Display)
	if err != nil {
		return nil, err
	}

	host := x11.NewHost(conn, logger)
	if err := dialog.CheckABI(host.ABI()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("host capabilities: %w", err)
	}

	shade := paint.NewShadeTexture(x11.NewTextureFactory(conn.XUtil), logger)
	screen := dialog.NewScreen(host, shade, dialog.Options{
		FadeTime: cfg.FadeDuration(),
		Logger:   logger,
	})
	host.Attach(screen)

	d, err := New(Options{
		ConfigPath: cfgPath,
		Config:     cfg,
		Loop:       conn,
		Host:       host,
		Screen:     screen,
		Level:      level,
		Logger:     logger,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := host.Start(); err != nil {
		host.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to watch the root window: %w", err)
	}
	logger.Info("adopted managed windows", "parents", len(screen.Parents()))
	return d, nil
}
