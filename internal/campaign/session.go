package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/daehee87/fuzzing-bot/internal/coordinator"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrDeclined     = errors.New("continuing without authentication was declined")
	ErrUnauthorized = errors.New("bot identity rejected by coordinator")
)

// Init derives the bot identity and authenticates it. A rejected identity
// needs the operator's confirmation to continue; an unreachable coordinator
// only degrades the session.
func (c *Campaign) Init(ctx context.Context) error {
	raw := c.settings.BotID
	if raw == "" {
		answer, err := c.prompter.Ask("Input ID: ")
		if err != nil {
			return fmt.Errorf("read bot id: %w", err)
		}
		raw = answer
	}
	c.identity = types.NewBotIdentity(raw)

	err := c.coordinator.Authenticate(ctx, c.identity)
	switch {
	case err == nil:
		c.authenticated = true
		c.logger.Info("Authenticated with coordinator", zap.String("botid", c.identity.String()))
		return nil

	case coordinator.IsRejection(err):
		c.logger.Warn("Authentication rejected", zap.Error(err))
		if !c.settings.AllowUnauthenticated {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		ok, promptErr := c.prompter.Confirm("Authentication failed. Continue without authentication?")
		if promptErr != nil {
			return fmt.Errorf("confirm unauthenticated session: %w", promptErr)
		}
		if !ok {
			return ErrDeclined
		}
		c.logger.Warn("Continuing without authentication")
		return nil

	default:
		c.logger.Warn("Error in session setup, continuing in degraded mode. If this problem repeats, please tell admin.",
			zap.Error(err))
		return nil
	}
}

func (c *Campaign) Identity() types.BotIdentity {
	return c.identity
}

func (c *Campaign) Authenticated() bool {
	return c.authenticated
}

func (c *Campaign) Session() types.SessionConfig {
	return c.session
}

// syncConfig refreshes the session config. On failure the current values
// stay in effect and the warning says which ones those are.
func (c *Campaign) syncConfig(ctx context.Context) types.SessionConfig {
	tracer := telemetry.FromContext(ctx).Spawn("syncing config").WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Syncing),
	)
	tracer.Start()
	defer tracer.End()

	next, err := c.coordinator.SyncConfig(ctx, c.identity, c.session)
	if err != nil {
		c.metrics.RecordConfigSyncFailure()
		c.session = c.session.Stale()
		tracer.SetStatus(codes.Error, "config sync failed")
		if c.session.Source == types.SourceDefault {
			c.logger.Warn("Config sync failed, using default configuration",
				zap.Duration("session_time", c.session.SessionDuration),
				zap.Duration("build_cache_timeout", c.session.BuildCacheTTL),
				zap.Error(err))
		} else {
			c.logger.Warn("Config sync failed, using previously synced configuration",
				zap.Duration("session_time", c.session.SessionDuration),
				zap.Duration("build_cache_timeout", c.session.BuildCacheTTL),
				zap.Error(err))
		}
		return c.session
	}

	c.session = next
	tracer.SetStatus(codes.Ok, "synced")
	c.logger.Debug("Config synced",
		zap.Duration("session_time", next.SessionDuration),
		zap.Duration("build_cache_timeout", next.BuildCacheTTL))
	return c.session
}
