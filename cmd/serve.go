package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/wayportal/internal/backend"
	"github.com/bnema/wayportal/internal/config"
	"github.com/bnema/wayportal/internal/core"
	dbusadapter "github.com/bnema/wayportal/internal/dbus"
	"github.com/bnema/wayportal/internal/logger"
	"github.com/bnema/wayportal/internal/metrics"
	"github.com/bnema/wayportal/internal/portal"
	"github.com/bnema/wayportal/internal/ratelimit"
	"github.com/bnema/wayportal/internal/session"
)

var (
	serveBackend string
	serveBusName string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal service",
	Long: `Run the portal service: discover a compositor backend, claim the
portal bus name and serve the RemoteDesktop interface until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "Backend to use (wlroots, uinput, x11; default auto)")
	serveCmd.Flags().StringVar(&serveBusName, "bus-name", "", "Well-known D-Bus name to claim")

	_ = viper.BindPFlag("portal.backend", serveCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("portal.bus_name", serveCmd.Flags().Lookup("bus-name"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if cfg.Log.Level != "" {
		logger.SetLevel(cfg.Log.Level)
	}
	if cfg.Log.File != "" {
		if err := logger.SetLogFile(cfg.Log.File); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("display server: %s (%s)", backend.DetectDisplayServer(), backend.CompositorName())

	providers, err := backend.SelectProvider(backend.DefaultProviders(), cfg.Portal.Backend)
	if err != nil {
		return err
	}
	b, err := backend.Discover(ctx, providers)
	if err != nil {
		return fmt.Errorf("backend discovery: %w", err)
	}

	caps := b.Capabilities()
	logger.Infof("backend: %s", caps.BackendName)
	logger.Infof("  keyboard injection: %v", caps.CanInjectKeyboard)
	logger.Infof("  pointer injection: %v", caps.CanInjectPointer)
	logger.Infof("  touch injection: %v", caps.CanInjectTouch)
	logger.Infof("  screen capture: %v", caps.CanCaptureScreen)

	manager := session.NewManager(session.Config{
		MaxSessions:  cfg.Portal.MaxSessions,
		EventBacklog: cfg.Portal.EventBacklog,
	})
	limiter := ratelimit.New(ratelimit.Config{
		MaxEventsPerSec: cfg.RateLimit.MaxEventsPerSec,
		BurstLimit:      cfg.RateLimit.BurstLimit,
		Window:          time.Duration(cfg.RateLimit.WindowMs) * time.Millisecond,
	})
	p := portal.New(manager, limiter, b)
	defer p.Shutdown(context.Background())

	adapter := dbusadapter.New(p, cfg.Portal.BusName)
	if err := adapter.Connect(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return adapter.Run(ctx)
	})

	// Lifecycle log tail: diagnostic only, losing events is fine.
	g.Go(func() error {
		events, cancel := manager.Subscribe()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if ev.Event.Kind == core.LifecycleInputDispatched {
					logger.Debugf("session %s: %s (%s)", ev.Session, ev.Event.Kind, ev.Event.Input)
				} else {
					logger.Infof("session %s: %s", ev.Session, ev.Event.Kind)
				}
			}
		}
	})

	if cfg.Metrics.ListenAddress != "" {
		addr := cfg.Metrics.ListenAddress
		g.Go(func() error {
			logger.Infof("metrics on %s/metrics", addr)
			return metrics.Serve(addr)
		})
	}

	logger.Info("portal service ready")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
