package config

import (
	"errors"
	"time"

	"github.com/gogpu/gg"

	"github.com/dshills/windbus/internal/eventloop"
	"github.com/dshills/windbus/internal/logging"
)

// Section accessors return snapshots. A zero value in a snapshot means the
// setting was already validated as absent or zero; accessors never fail
// after a successful Load.

// WindowConfig holds the [window] section.
type WindowConfig struct {
	Title string
	// Width and Height are in cells. Zero keeps the terminal size.
	Width  int
	Height int
}

// LoopConfig holds the [loop] section.
type LoopConfig struct {
	ClosePolicy   eventloop.ClosePolicy
	CommandBuffer int
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Level  string
	Format logging.Format
	// File receives log output. Empty disables logging.
	File string
}

// ScriptConfig holds the [script] section.
type ScriptConfig struct {
	// Path is a Lua input policy. Empty uses the built-in policy.
	Path string
}

// AppConfig holds the [app] section.
type AppConfig struct {
	FrameInterval time.Duration
	Background    gg.RGBA
	Foreground    gg.RGBA
}

// Window returns the [window] section.
func (c *Config) Window() WindowConfig {
	title, _ := c.GetString("window.title")
	width, _ := c.GetInt("window.width")
	height, _ := c.GetInt("window.height")
	return WindowConfig{Title: title, Width: width, Height: height}
}

// Loop returns the [loop] section.
func (c *Config) Loop() LoopConfig {
	name, _ := c.GetString("loop.close_policy")
	policy, _ := eventloop.ParseClosePolicy(name)
	buffer, _ := c.GetInt("loop.command_buffer")
	return LoopConfig{ClosePolicy: policy, CommandBuffer: buffer}
}

// Log returns the [log] section.
func (c *Config) Log() LogConfig {
	level, _ := c.GetString("log.level")
	format, _ := c.GetString("log.format")
	file, _ := c.GetString("log.file")
	return LogConfig{Level: level, Format: logging.Format(format), File: file}
}

// Script returns the [script] section.
func (c *Config) Script() ScriptConfig {
	path, _ := c.GetString("script.path")
	return ScriptConfig{Path: path}
}

// App returns the [app] section.
func (c *Config) App() AppConfig {
	interval, _ := c.GetDuration("app.frame_interval")
	bg, _ := c.GetString("app.background")
	fg, _ := c.GetString("app.foreground")
	return AppConfig{
		FrameInterval: interval,
		Background:    gg.Hex(bg),
		Foreground:    gg.Hex(fg),
	}
}

// validate checks a merged configuration map. All problems are reported.
func validate(data map[string]any) error {
	var errs []error
	fail := func(path, msg string) {
		errs = append(errs, &ValidationError{Path: path, Message: msg})
	}
	check := func(path string, fn func(any) error) {
		v, ok := getPath(data, path)
		if !ok {
			errs = append(errs, &ValidationError{Path: path, Message: "missing"})
			return
		}
		if err := fn(v); err != nil {
			errs = append(errs, err)
		}
	}

	var width, height int
	check("window.title", func(v any) error { _, err := toString("window.title", v); return err })
	check("window.width", func(v any) (err error) { width, err = toInt("window.width", v); return err })
	check("window.height", func(v any) (err error) { height, err = toInt("window.height", v); return err })
	if width < 0 || height < 0 {
		fail("window", "size must not be negative")
	}
	if (width == 0) != (height == 0) {
		fail("window", "width and height must both be set or both be zero")
	}

	check("loop.close_policy", func(v any) error {
		s, err := toString("loop.close_policy", v)
		if err != nil {
			return err
		}
		if _, err := eventloop.ParseClosePolicy(s); err != nil {
			return &ValidationError{Path: "loop.close_policy", Message: err.Error()}
		}
		return nil
	})
	check("loop.command_buffer", func(v any) error {
		n, err := toInt("loop.command_buffer", v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return &ValidationError{Path: "loop.command_buffer", Message: "must be positive"}
		}
		return nil
	})

	check("log.level", func(v any) error {
		s, err := toString("log.level", v)
		if err != nil {
			return err
		}
		if _, err := logging.ParseLevel(s); err != nil {
			return &ValidationError{Path: "log.level", Message: err.Error()}
		}
		return nil
	})
	check("log.format", func(v any) error {
		s, err := toString("log.format", v)
		if err != nil {
			return err
		}
		switch logging.Format(s) {
		case logging.FormatText, logging.FormatJSON:
			return nil
		}
		return &ValidationError{Path: "log.format", Message: "must be text or json"}
	})
	check("log.file", func(v any) error { _, err := toString("log.file", v); return err })
	check("script.path", func(v any) error { _, err := toString("script.path", v); return err })

	check("app.frame_interval", func(v any) error {
		d, err := toDuration("app.frame_interval", v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return &ValidationError{Path: "app.frame_interval", Message: "must be positive"}
		}
		return nil
	})
	for _, path := range []string{"app.background", "app.foreground"} {
		check(path, func(v any) error {
			s, err := toString(path, v)
			if err != nil {
				return err
			}
			if !validHex(s) {
				return &ValidationError{Path: path, Message: "must be a hex color like #1e1e2e"}
			}
			return nil
		})
	}

	return errors.Join(errs...)
}

func validHex(s string) bool {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
