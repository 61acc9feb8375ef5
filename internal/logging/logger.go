package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"

	"broadcastmotion_payments/internal/config"
)

const serviceName = "broadcastmotion-payments"

// GetLogger returns a JSON stdout logger, or a Loki logger when cfg.URL is set.
// The returned close function flushes the Loki client and is a no-op locally.
func GetLogger(cfg config.Logs) (*slog.Logger, func()) {
	if cfg.URL == "" {
		return localLogger(os.Stdout), func() {}
	}

	logger, client, err := remoteLogger(cfg.URL)
	if err != nil {
		fallback := localLogger(os.Stdout)
		fallback.Error("Failed to initialise Loki client, logging to stdout", "error", err)
		return fallback, func() {}
	}
	return logger, client.Stop
}

func localLogger(w io.Writer) *slog.Logger {
	return slog.New(&ContextHandler{Handler: slog.NewJSONHandler(w, nil)}).With("service", serviceName)
}

func remoteLogger(url string) (*slog.Logger, *loki.Client, error) {
	lokiConfig, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil, nil, err
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slogloki.Option{
		Level:  slog.LevelInfo,
		Client: client,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{
			attrsFromContext,
		},
	}.NewLokiHandler()).With("service", serviceName)

	return logger, client, nil
}
