package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gg"

	"github.com/dshills/windbus/internal/config/notify"
	"github.com/dshills/windbus/internal/eventloop"
	"github.com/dshills/windbus/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := New(WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if w := c.Window(); w.Title != "windbus" || w.Width != 0 || w.Height != 0 {
		t.Errorf("unexpected window defaults %+v", w)
	}
	if l := c.Loop(); l.ClosePolicy != eventloop.CloseForward || l.CommandBuffer != 64 {
		t.Errorf("unexpected loop defaults %+v", l)
	}
	if l := c.Log(); l.Level != "info" || l.Format != logging.FormatText || l.File != "windbus.log" {
		t.Errorf("unexpected log defaults %+v", l)
	}
	if a := c.App(); a.FrameInterval != 33*time.Millisecond || a.Background != gg.Hex("#1e1e2e") {
		t.Errorf("unexpected app defaults %+v", a)
	}
	if s := c.Script(); s.Path != "" {
		t.Errorf("unexpected script default %q", s.Path)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "windbus.toml", `
[window]
title = "from file"
width = 100
height = 30

[loop]
close_policy = "exit-when-unsubscribed"

[log]
level = "debug"
format = "json"

[app]
frame_interval = "50ms"
`)

	c := New(WithFile(path), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if w := c.Window(); w.Title != "from file" || w.Width != 100 || w.Height != 30 {
		t.Errorf("unexpected window %+v", w)
	}
	if l := c.Loop(); l.ClosePolicy != eventloop.CloseExitWhenUnsubscribed || l.CommandBuffer != 64 {
		t.Errorf("unexpected loop %+v", l)
	}
	if l := c.Log(); l.Level != "debug" || l.Format != logging.FormatJSON {
		t.Errorf("unexpected log %+v", l)
	}
	if a := c.App(); a.FrameInterval != 50*time.Millisecond {
		t.Errorf("unexpected frame interval %v", a.FrameInterval)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := writeFile(t, "windbus.yaml", `
window:
  title: from yaml
script:
  path: policy.lua
`)

	c := New(WithFile(path), WithEnviron([]string{
		"WINDBUS_WINDOW_TITLE=from env",
		"WINDBUS_WINDOW_WIDTH=80",
		"WINDBUS_WINDOW_HEIGHT=24",
	}))
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if w := c.Window(); w.Title != "from env" || w.Width != 80 || w.Height != 24 {
		t.Errorf("environment should override the file: %+v", w)
	}
	if s := c.Script(); s.Path != "policy.lua" {
		t.Errorf("script.path = %q", s.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := New(WithFile(filepath.Join(t.TempDir(), "absent.toml")), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Errorf("missing file should fall back to defaults, got %v", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	c := New(WithFile("windbus.ini"))
	if err := c.Load(); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		path string
	}{
		{"negative width", []string{"WINDBUS_WINDOW_WIDTH=-1", "WINDBUS_WINDOW_HEIGHT=10"}, "window"},
		{"half size", []string{"WINDBUS_WINDOW_WIDTH=10"}, "window"},
		{"policy", []string{"WINDBUS_LOOP_CLOSE_POLICY=ignore"}, "loop.close_policy"},
		{"buffer", []string{"WINDBUS_LOOP_COMMAND_BUFFER=0"}, "loop.command_buffer"},
		{"level", []string{"WINDBUS_LOG_LEVEL=loud"}, "log.level"},
		{"format", []string{"WINDBUS_LOG_FORMAT=xml"}, "log.format"},
		{"interval", []string{"WINDBUS_APP_FRAME_INTERVAL=-5ms"}, "app.frame_interval"},
		{"color", []string{"WINDBUS_APP_BACKGROUND=blue"}, "app.background"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithEnviron(tt.env))
			err := c.Load()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Path != tt.path {
				t.Errorf("expected validation error for %s, got %v", tt.path, err)
			}
		})
	}
}

func TestTypeError(t *testing.T) {
	c := New(WithEnviron([]string{"WINDBUS_WINDOW_WIDTH=wide", "WINDBUS_WINDOW_HEIGHT=10"}))
	err := c.Load()
	var te *TypeError
	if !errors.As(err, &te) || te.Path != "window.width" {
		t.Errorf("expected TypeError for window.width, got %v", err)
	}
}

func TestFailedReloadKeepsSettings(t *testing.T) {
	path := writeFile(t, "windbus.toml", "[window]\ntitle = \"first\"\n")
	c := New(WithFile(path), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("[window\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(); err == nil {
		t.Fatal("expected parse error")
	}
	if title := c.Window().Title; title != "first" {
		t.Errorf("title = %q after failed reload, want first", title)
	}
}

func TestGetters(t *testing.T) {
	c := New(WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetString("window.nope"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("expected ErrSettingNotFound, got %v", err)
	}
	if _, err := c.GetInt("window.title"); err == nil {
		t.Error("expected type error reading a string as int")
	}
	if v, ok := c.Get("loop.command_buffer"); !ok || v != 64 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, "windbus.toml", "[window]\ntitle = \"before\"\n")
	c := New(WithFile(path), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan error, 8)
	w, err := c.Watch(func(err error) { reloaded <- err })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[window]\ntitle = \"after\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if title := c.Window().Title; title != "after" {
		t.Errorf("title = %q after reload, want after", title)
	}
}

func TestWatchWithoutFile(t *testing.T) {
	if _, err := New().Watch(func(error) {}); err == nil {
		t.Error("expected error watching without a file")
	}
}

func TestSubscribe(t *testing.T) {
	path := writeFile(t, "windbus.toml", "[window]\ntitle = \"one\"\n")
	c := New(WithFile(path), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	var titles []notify.Change
	var reloads int
	sub := c.Subscribe("window", func(ch notify.Change) {
		if ch.Type == notify.ChangeReload {
			reloads++
			return
		}
		titles = append(titles, ch)
	})

	// Unchanged file: nothing to report.
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	if len(titles) != 0 || reloads != 0 {
		t.Fatalf("unchanged reload notified %v, %d", titles, reloads)
	}

	if err := os.WriteFile(path, []byte("[window]\ntitle = \"two\"\n[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 || titles[0].Path != "window.title" || titles[0].OldValue != "one" || titles[0].NewValue != "two" {
		t.Errorf("unexpected changes %+v", titles)
	}
	if reloads != 1 {
		t.Errorf("expected 1 reload event, got %d", reloads)
	}

	sub.Unsubscribe()
	if err := os.WriteFile(path, []byte("[window]\ntitle = \"three\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 {
		t.Error("unsubscribed observer was called")
	}
}

func TestConcurrentLoadsNotifyInCommitOrder(t *testing.T) {
	path := writeFile(t, "windbus.toml", "[window]\ntitle = \"t0\"\n")
	c := New(WithFile(path), WithEnviron([]string{}))
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	last := "t0"
	c.Subscribe("window.title", func(ch notify.Change) {
		if ch.Type != notify.ChangeSet {
			return
		}
		mu.Lock()
		last = ch.NewValue.(string)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				content := fmt.Sprintf("[window]\ntitle = \"t%d-%d\"\n", i, j)
				// Write to a temp file and rename so readers never see a partial file.
				tmp := fmt.Sprintf("%s.%d.tmp", path, i)
				if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
					t.Error(err)
					return
				}
				if err := os.Rename(tmp, path); err != nil {
					t.Error(err)
					return
				}
				if err := c.Load(); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if title := c.Window().Title; title != last {
		t.Errorf("stored title %q, last notified %q", title, last)
	}
}
