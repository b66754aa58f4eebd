// Package config loads windbus settings.
//
// Settings are layered: built-in defaults, then the config file (TOML or
// YAML), then WINDBUS_ environment variables. The merged map is validated
// as a whole; a failed reload keeps the previous settings.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dshills/windbus/internal/config/loader"
	"github.com/dshills/windbus/internal/config/notify"
	"github.com/dshills/windbus/internal/config/watcher"
)

// Config holds the merged settings. It is safe for concurrent use.
type Config struct {
	mu   sync.RWMutex
	data map[string]any

	// loadMu serializes Load so commits and notifications stay in order.
	loadMu sync.Mutex

	path      string
	envPrefix string
	environ   []string

	notifier *notify.Notifier
}

// Option configures a Config.
type Option func(*Config)

// WithFile sets the config file. Without one only defaults and the
// environment apply.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnviron replaces the process environment, mostly for tests.
func WithEnviron(environ []string) Option {
	return func(c *Config) {
		c.environ = environ
	}
}

// New creates a Config holding the defaults. Call Load to read sources.
func New(opts ...Option) *Config {
	c := &Config{
		data:      defaultConfig(),
		envPrefix: loader.DefaultEnvPrefix,
		notifier:  notify.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads every source, validates the result and replaces the current
// settings. On error the current settings are kept. Subscribers are told
// about every setting that changed.
func (c *Config) Load() error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	merged := defaultConfig()

	if c.path != "" {
		fl, err := loader.NewFileLoader(c.path)
		if err != nil {
			return err
		}
		data, err := fl.Load()
		if err != nil {
			return err
		}
		merged = loader.DeepMerge(merged, data)
	}

	env := loader.NewEnvLoader(c.envPrefix)
	if c.environ != nil {
		env = loader.NewEnvLoaderFrom(c.envPrefix, c.environ)
	}
	data, err := env.Load()
	if err != nil {
		return err
	}
	merged = loader.DeepMerge(merged, data)

	if err := validate(merged); err != nil {
		return err
	}

	c.mu.Lock()
	old := c.data
	c.data = merged
	c.mu.Unlock()

	c.notifier.NotifyAll(notify.Diff(old, merged))
	return nil
}

// Subscribe calls observer for each changed setting at or below path, and
// once more with a ChangeReload after each Load that changed anything.
// Observers run on the goroutine calling Load and must not call Load.
func (c *Config) Subscribe(path string, observer notify.Observer) *notify.Subscription {
	return c.notifier.SubscribePath(path, observer)
}

// Path returns the config file path, if any.
func (c *Config) Path() string {
	return c.path
}

// Watch reloads the config whenever its file changes and reports each
// reload's outcome to onReload. The caller closes the returned watcher.
func (c *Config) Watch(onReload func(error)) (*watcher.Watcher, error) {
	if c.path == "" {
		return nil, errors.New("config: no file to watch")
	}

	w, err := watcher.New()
	if err != nil {
		return nil, err
	}
	if err := w.Watch(c.path); err != nil {
		_ = w.Close()
		return nil, err
	}

	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			return
		}
		onReload(c.Load())
	})
	return w, nil
}

// Get returns the raw value at a dot-separated path.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.data, path)
}

// GetString returns a string setting.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrSettingNotFound)
	}
	return toString(path, v)
}

// GetInt returns an integer setting. Strings from the environment are
// parsed.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, ErrSettingNotFound)
	}
	return toInt(path, v)
}

// GetDuration returns a duration setting written as "33ms" or "1s".
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, ErrSettingNotFound)
	}
	return toDuration(path, v)
}

func defaultConfig() map[string]any {
	return map[string]any{
		"window": map[string]any{
			"title":  "windbus",
			"width":  0,
			"height": 0,
		},
		"loop": map[string]any{
			"close_policy":   "forward",
			"command_buffer": 64,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
			"file":   "windbus.log",
		},
		"script": map[string]any{
			"path": "",
		},
		"app": map[string]any{
			"frame_interval": "33ms",
			"background":     "#1e1e2e",
			"foreground":     "#89b4fa",
		},
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = cm[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

func toString(path string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

func toInt(path string, v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			break
		}
		return int(val), nil
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
}

func toDuration(path string, v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return d, nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("string %q", val)
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case map[string]any:
		return "table"
	default:
		return fmt.Sprintf("%T", v)
	}
}
