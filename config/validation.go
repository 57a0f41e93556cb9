package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/feed/errors"
)

// MaxMaxAttempts bounds channel.max_attempts.
const MaxMaxAttempts = 32

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Channel.URL != "" {
		if err := validateChannelURL(c.Channel.URL); err != nil {
			return err
		}
	}
	if c.Channel.MaxAttempts < 1 {
		return invalid("channel.max_attempts", "must be at least 1")
	}
	if c.Channel.MaxAttempts > MaxMaxAttempts {
		return invalid("channel.max_attempts", fmt.Sprintf("must be at most %d", MaxMaxAttempts))
	}

	durations := map[string]Duration{
		"channel.retry_base":       c.Channel.RetryBase,
		"channel.ping_interval":    c.Channel.PingInterval,
		"notifications.ttl":        c.Notifications.TTL,
		"notifications.transition": c.Notifications.Transition,
		"remote.latency":           c.Remote.Latency,
		"remote.jitter":            c.Remote.Jitter,
		"session.typing_idle":      c.Session.TypingIdle,
	}
	for field, d := range durations {
		if d < 0 {
			return invalid(field, "must not be negative")
		}
	}

	if rate := c.Remote.SuccessRate; rate != nil && (*rate < 0 || *rate > 1) {
		return invalid("remote.success_rate", fmt.Sprintf("%v is outside [0, 1]", *rate))
	}

	if c.Media.MaxSize < 0 {
		return invalid("media.max_size", "must not be negative")
	}
	for _, t := range c.Media.AllowedTypes {
		if !strings.Contains(t, "/") {
			return invalid("media.allowed_types", fmt.Sprintf("%q is not a media type", t))
		}
	}
	if c.Media.MaxPostLength < 0 || c.Media.MaxCommentLength < 0 {
		return invalid("media", "length limits must not be negative")
	}

	return nil
}

func validateChannelURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid channel.url").
			WithDetail("field", "channel.url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return invalid("channel.url", fmt.Sprintf("scheme must be ws or wss, got %q", u.Scheme))
	}
	if u.Host == "" {
		return invalid("channel.url", "missing host")
	}
	return nil
}

func invalid(field, reason string) error {
	return errors.ConfigInvalid(fmt.Sprintf("%s %s", field, reason)).
		WithDetail("field", field)
}
