package registry

import (
	"context"
	"time"

	"rulemerge/internal/backoff"
	"rulemerge/internal/logging"
)

// Builder produces a fresh snapshot from the configured categories.
type Builder interface {
	Build(ctx context.Context) (*Snapshot, error)
}

type Config struct {
	Interval       time.Duration // base rebuild interval
	BuildTimeout   time.Duration // upper bound for one build
	InitialBackoff time.Duration // initial backoff delay
	MaxBackoff     time.Duration // maximum backoff delay
}

// Start rebuilds snapshots until the context stops: once immediately, then
// every Interval and whenever trigger fires. trigger may be nil.
func Start(ctx context.Context, cfg Config, b Builder, holder *Holder, trigger <-chan struct{}) error {
	log := logging.GetLogger("updater")

	if cfg.Interval <= 0 {
		return nil // config should already be validated
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 5 * time.Minute
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Minute
	}

	if err := updateOnce(ctx, cfg.BuildTimeout, b, holder); err != nil {
		log.Error().Err(err).Msg("initial build failed")
	} else {
		log.Info().Str("snapshot", holder.Get().ID).Msg("initial build succeeded")
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var consecutiveFailures int

	for {
		var reason string
		select {
		case <-ctx.Done():
			log.Info().Err(ctx.Err()).Msg("updater stopped")
			return ctx.Err()
		case <-ticker.C:
			reason = "interval"
		case <-trigger:
			reason = "change"
		}

		if err := updateOnce(ctx, cfg.BuildTimeout, b, holder); err != nil {
			consecutiveFailures++
			delay := backoff.Exponential(cfg.InitialBackoff, cfg.MaxBackoff, consecutiveFailures)

			log.Warn().
				Err(err).
				Str("trigger", reason).
				Int("attempt", consecutiveFailures).
				Dur("backoff", delay).
				Msg("rebuild failed")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info().Err(ctx.Err()).Msg("updater stopped during backoff")
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}

		if consecutiveFailures > 0 {
			log.Info().Int("failures", consecutiveFailures).Msg("rebuild recovered")
		}
		consecutiveFailures = 0
		log.Info().Str("trigger", reason).Str("snapshot", holder.Get().ID).Msg("rebuild succeeded")
	}
}

// updateOnce builds a snapshot and publishes it.
func updateOnce(ctx context.Context, timeout time.Duration, b Builder, holder *Holder) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := b.Build(ctx)
	if err != nil {
		return err
	}

	holder.Set(s)
	return nil
}
