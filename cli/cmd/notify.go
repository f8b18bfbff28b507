package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/cli/config"
	"github.com/pithecene-io/narrator/log"
	"github.com/pithecene-io/narrator/notify"
	"github.com/pithecene-io/narrator/notify/redis"
	"github.com/pithecene-io/narrator/notify/webhook"
	"github.com/pithecene-io/narrator/runtime"
)

// NotifyFlags returns the flags selecting a run completion notifier.
// Each overrides the matching notify.* config value.
func NotifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "notify", Usage: "Publish a run_completed event: webhook or redis"},
		&cli.StringFlag{Name: "notify-url", Usage: "Webhook endpoint or redis:// URL"},
		&cli.StringFlag{Name: "notify-channel", Usage: "Redis pub/sub channel"},
		&cli.StringSliceFlag{Name: "notify-header", Usage: "Webhook header as Key=Value (repeatable)"},
		&cli.DurationFlag{Name: "notify-timeout", Usage: "Per-attempt timeout"},
		&cli.IntFlag{Name: "notify-retries", Usage: "Retries after the first attempt"},
	}
}

// applyNotifyFlags overlays the notify flags on the config section.
func applyNotifyFlags(c *cli.Context, nc *config.NotifyConfig) error {
	if c.IsSet("notify") {
		nc.Type = c.String("notify")
	}
	if c.IsSet("notify-url") {
		nc.URL = c.String("notify-url")
	}
	if c.IsSet("notify-channel") {
		nc.Channel = c.String("notify-channel")
	}
	if c.IsSet("notify-timeout") {
		nc.Timeout = config.Duration{Duration: c.Duration("notify-timeout")}
	}
	if c.IsSet("notify-retries") {
		retries := c.Int("notify-retries")
		nc.Retries = &retries
	}
	for _, h := range c.StringSlice("notify-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("invalid --notify-header %q: expected Key=Value", h)
		}
		if nc.Headers == nil {
			nc.Headers = map[string]string{}
		}
		nc.Headers[strings.TrimSpace(k)] = v
	}
	return nil
}

// publishRunCompleted announces the finished run. Failures are logged and
// never change the exit code.
func publishRunCompleted(ctx context.Context, n notify.Notifier, summary *runtime.RunReport, storagePath string, logger *log.Logger) {
	event := notify.NewRunCompletedEvent(summary, storagePath, time.Now())
	if err := n.Notify(ctx, event); err != nil {
		logger.Warn("run notification failed", map[string]any{"error": err.Error()})
		return
	}
	logger.Debug("run notification sent", map[string]any{"outcome": event.Outcome})
}

// buildNotifier creates the configured notifier, or nil when none is set.
func buildNotifier(nc config.NotifyConfig) (notify.Notifier, error) {
	switch nc.Type {
	case "":
		return nil, nil

	case config.NotifyWebhook:
		cfg := webhook.Config{
			URL:     nc.URL,
			Headers: nc.Headers,
			Timeout: nc.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if nc.Retries != nil {
			cfg.Retries = *nc.Retries
		}
		n, err := webhook.New(cfg)
		if err != nil {
			return nil, err
		}
		return n, nil

	case config.NotifyRedis:
		cfg := redis.Config{
			URL:     nc.URL,
			Channel: nc.Channel,
			Timeout: nc.Timeout.Duration,
			Retries: redis.DefaultRetries,
		}
		if nc.Retries != nil {
			cfg.Retries = *nc.Retries
		}
		n, err := redis.New(cfg)
		if err != nil {
			return nil, err
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unknown notifier type %q (must be webhook or redis)", nc.Type)
	}
}
