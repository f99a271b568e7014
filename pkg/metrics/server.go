package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/daehee87/fuzzing-bot/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Lc        fx.Lifecycle
	Config    *config.AppConfig
	Collector *Collector
	Logger    *zap.Logger
}

// RegisterServer exposes /metrics on METRICS_ADDR. Nothing listens when the
// address is empty.
func RegisterServer(p ServerParams) {
	if p.Config.MetricsAddr == "" {
		return
	}
	logger := p.Logger.Named("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.Collector.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              p.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("Starting metrics server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
