package config

import (
	"testing"

	"github.com/grovetools/feed/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	rate := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"http url", func(c *Config) { c.Channel.URL = "http://host/ws" }, "channel.url"},
		{"url without host", func(c *Config) { c.Channel.URL = "ws:///ws" }, "channel.url"},
		{"zero attempts", func(c *Config) { c.Channel.MaxAttempts = -1 }, "channel.max_attempts"},
		{"too many attempts", func(c *Config) { c.Channel.MaxAttempts = MaxMaxAttempts + 1 }, "channel.max_attempts"},
		{"attempt limit", func(c *Config) { c.Channel.MaxAttempts = MaxMaxAttempts }, ""},
		{"negative ttl", func(c *Config) { c.Notifications.TTL = -1 }, "notifications.ttl"},
		{"success rate above one", func(c *Config) { c.Remote.SuccessRate = rate(1.5) }, "remote.success_rate"},
		{"bad media type", func(c *Config) { c.Media.AllowedTypes = []string{"png"} }, "media.allowed_types"},
		{"negative media size", func(c *Config) { c.Media.MaxSize = -5 }, "media.max_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.SetDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid), "got %v", err)
			fe, ok := errors.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, tt.field, fe.Details["field"])
			}
		})
	}
}
