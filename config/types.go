package config

import (
	"fmt"
	"time"

	"github.com/grovetools/feed/util/sanitize"
	"github.com/mitchellh/mapstructure"
)

// Config is the feed configuration loaded from feed.yml or feed.toml.
type Config struct {
	Version       string              `yaml:"version" toml:"version"`
	User          UserConfig          `yaml:"user" toml:"user"`
	Channel       ChannelConfig       `yaml:"channel" toml:"channel"`
	Notifications NotificationsConfig `yaml:"notifications" toml:"notifications"`
	Remote        RemoteConfig        `yaml:"remote" toml:"remote"`
	Media         MediaConfig         `yaml:"media" toml:"media"`
	Session       SessionConfig       `yaml:"session" toml:"session"`

	// Extensions captures all other top-level keys for extensibility, such as
	// the logging section.
	Extensions map[string]interface{} `yaml:",inline" toml:"-"`
}

// UserConfig identifies the local user.
type UserConfig struct {
	ID     string `yaml:"id" toml:"id" env:"FEED_USER_ID"`
	Name   string `yaml:"name" toml:"name" env:"FEED_USER_NAME"`
	Handle string `yaml:"handle,omitempty" toml:"handle,omitempty" env:"FEED_USER_HANDLE"`
}

// ChannelConfig configures the live channel connection.
type ChannelConfig struct {
	// URL is the websocket endpoint. Empty runs the session offline.
	URL          string   `yaml:"url" toml:"url" env:"FEED_CHANNEL_URL"`
	RetryBase    Duration `yaml:"retry_base" toml:"retry_base" env:"FEED_CHANNEL_RETRY_BASE"`
	MaxAttempts  int      `yaml:"max_attempts" toml:"max_attempts" env:"FEED_CHANNEL_MAX_ATTEMPTS"`
	PingInterval Duration `yaml:"ping_interval" toml:"ping_interval" env:"FEED_CHANNEL_PING_INTERVAL"`
}

// NotificationsConfig configures the notification queue.
type NotificationsConfig struct {
	TTL        Duration `yaml:"ttl" toml:"ttl" env:"FEED_NOTIFICATIONS_TTL"`
	Transition Duration `yaml:"transition" toml:"transition" env:"FEED_NOTIFICATIONS_TRANSITION"`
}

// RemoteConfig configures the simulated remote.
type RemoteConfig struct {
	Latency     Duration `yaml:"latency" toml:"latency" env:"FEED_REMOTE_LATENCY"`
	Jitter      Duration `yaml:"jitter" toml:"jitter" env:"FEED_REMOTE_JITTER"`
	SuccessRate *float64 `yaml:"success_rate,omitempty" toml:"success_rate,omitempty" env:"FEED_REMOTE_SUCCESS_RATE"`
}

// MediaConfig bounds attachments and text input.
type MediaConfig struct {
	MaxSize          int64    `yaml:"max_size" toml:"max_size" env:"FEED_MEDIA_MAX_SIZE"`
	AllowedTypes     []string `yaml:"allowed_types,omitempty" toml:"allowed_types,omitempty" env:"FEED_MEDIA_ALLOWED_TYPES" envSeparator:","`
	MaxPostLength    int      `yaml:"max_post_length" toml:"max_post_length"`
	MaxCommentLength int      `yaml:"max_comment_length" toml:"max_comment_length"`
}

// SessionConfig configures the interactive session.
type SessionConfig struct {
	TypingIdle Duration `yaml:"typing_idle" toml:"typing_idle" env:"FEED_TYPING_IDLE"`
	// StateFile overrides the preference file location.
	StateFile string `yaml:"state_file,omitempty" toml:"state_file,omitempty" env:"FEED_STATE_FILE"`
	// SeedDemo fills the feed with demo posts on start (default: true).
	SeedDemo *bool `yaml:"seed_demo,omitempty" toml:"seed_demo,omitempty" env:"FEED_SEED_DEMO"`
}

// Defaults applied by SetDefaults.
const (
	DefaultVersion      = "1.0"
	DefaultRetryBase    = Duration(time.Second)
	DefaultMaxAttempts  = 5
	DefaultPingInterval = Duration(30 * time.Second)
	DefaultTTL          = Duration(5 * time.Second)
	DefaultTransition   = Duration(300 * time.Millisecond)
	DefaultLatency      = Duration(500 * time.Millisecond)
	DefaultSuccessRate  = 0.9
	DefaultTypingIdle   = Duration(3 * time.Second)
	DefaultMaxMediaSize = 10 << 20
)

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.User.ID == "" {
		c.User.ID = "me"
	}
	if c.User.Name == "" {
		c.User.Name = "You"
	}
	if c.User.Handle == "" {
		c.User.Handle = sanitize.ForHandle(c.User.Name)
	}

	if c.Channel.RetryBase == 0 {
		c.Channel.RetryBase = DefaultRetryBase
	}
	if c.Channel.MaxAttempts == 0 {
		c.Channel.MaxAttempts = DefaultMaxAttempts
	}
	if c.Channel.PingInterval == 0 {
		c.Channel.PingInterval = DefaultPingInterval
	}

	if c.Notifications.TTL == 0 {
		c.Notifications.TTL = DefaultTTL
	}
	if c.Notifications.Transition == 0 {
		c.Notifications.Transition = DefaultTransition
	}

	if c.Remote.Latency == 0 {
		c.Remote.Latency = DefaultLatency
	}
	if c.Remote.SuccessRate == nil {
		rate := DefaultSuccessRate
		c.Remote.SuccessRate = &rate
	}

	if c.Media.MaxSize == 0 {
		c.Media.MaxSize = DefaultMaxMediaSize
	}

	if c.Session.TypingIdle == 0 {
		c.Session.TypingIdle = DefaultTypingIdle
	}
	if c.Session.SeedDemo == nil {
		seed := true
		c.Session.SeedDemo = &seed
	}
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded feed.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
