package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/randommarket/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WorkingListSize, convey.ShouldEqual, 24)
				convey.So(cfg.NotificationQueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RANDOMMARKET_ADDR", ":8080")
			_ = os.Setenv("RANDOMMARKET_BASE_DELAY_MS", "40")
			_ = os.Setenv("RANDOMMARKET_WORKING_LIST_SIZE", "12")
			_ = os.Setenv("RANDOMMARKET_EVENTS_FILE", "/data/events.json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BaseDelayMS, convey.ShouldEqual, 40)
				convey.So(cfg.WorkingListSize, convey.ShouldEqual, 12)
				convey.So(cfg.EventsFile, convey.ShouldEqual, "/data/events.json")
				convey.So(cfg.FinalStepMS, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
events_file: "markets.yaml"
fallback_events_file: "fallback.yaml"
min_passes: 3
log_format: json
`)
			_ = os.Setenv("RANDOMMARKET_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventsFile, convey.ShouldEqual, "markets.yaml")
				convey.So(cfg.FallbackEventsFile, convey.ShouldEqual, "fallback.yaml")
				convey.So(cfg.MinPasses, convey.ShouldEqual, 3)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("RANDOMMARKET_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MinPasses, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("RANDOMMARKET_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("RANDOMMARKET_FINAL_STEP_MS", "1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a number cannot be parsed", func() {
			_ = os.Setenv("RANDOMMARKET_MIN_PASSES", "twice")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "RANDOMMARKET_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
