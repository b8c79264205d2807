package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/lifespan/internal/config"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
)

const cautiousRules = `
active: cautious
rulesets:
  - name: cautious
    description: lower base
    base: 74
    clamp:
      min: 50
      max: 95
    rules:
      - name: smoker
        field: smoker
        kind: flag
        when_true: -9
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.BcryptCost = 4
	cfg.WorkerCount = 2
	return cfg
}

func TestSetup(t *testing.T) {
	convey.Convey("Given LIFESPAN_* environment overrides", t, func() {
		t.Setenv("LIFESPAN_ADDR", ":8080")
		t.Setenv("LIFESPAN_QUEUE_SIZE", "1000")
		t.Setenv("LIFESPAN_WORKER_COUNT", "4")
		t.Setenv("LIFESPAN_LOG_LEVEL", "loud")
		configPath = ""

		convey.Convey("Then setup loads them and tolerates a bad log level", func() {
			cfg, err := setup(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})

		convey.Convey("Then an empty addr is rejected", func() {
			t.Setenv("LIFESPAN_ADDR", "")
			_, err := setup(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewRegistry(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		cfg := testConfig()

		convey.Convey("When no rules file is set", func() {
			reg, err := newRegistry(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(reg.ActiveName(), convey.ShouldEqual, "standard")
		})

		convey.Convey("When another built-in is configured", func() {
			cfg.RuleSet = "simple"
			reg, err := newRegistry(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(reg.ActiveName(), convey.ShouldEqual, "simple")
		})

		convey.Convey("When the configured rule set is unknown", func() {
			cfg.RuleSet = "nope"
			_, err := newRegistry(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a rules file names its own active rule set", func() {
			cfg.RulesFile = filepath.Join(t.TempDir(), "rules.yaml")
			convey.So(os.WriteFile(cfg.RulesFile, []byte(cautiousRules), 0o600), convey.ShouldBeNil)
			reg, err := newRegistry(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(reg.ActiveName(), convey.ShouldEqual, "cautious")
			convey.So(reg.Names(), convey.ShouldContain, "standard")
		})

		convey.Convey("When the rules file is missing", func() {
			cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := newRegistry(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestBuild(t *testing.T) {
	convey.Convey("Given an in-memory configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		log := logger.Get()

		svc, cleanup, err := build(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(func() {
			_ = svc.Stop(ctx)
			cleanup()
		})

		convey.Convey("Then no admin is created without credentials", func() {
			convey.So(ensureAdmin(ctx, svc, cfg, log), convey.ShouldBeNil)
			stats, err := svc.Stats(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.Users, convey.ShouldEqual, 0)
		})

		convey.Convey("Then configured admin credentials are provisioned once", func() {
			cfg.AdminEmail, cfg.AdminPassword = "root@example.com", "correct-horse"
			convey.So(ensureAdmin(ctx, svc, cfg, log), convey.ShouldBeNil)
			convey.So(ensureAdmin(ctx, svc, cfg, log), convey.ShouldBeNil)
			stats, _ := svc.Stats(ctx)
			convey.So(stats.Users, convey.ShouldEqual, 1)

			login, err := svc.Login(ctx, "root@example.com", "correct-horse", "test")
			convey.So(err, convey.ShouldBeNil)
			convey.So(login.User.Role, convey.ShouldEqual, "admin")
		})

		convey.Convey("Then an admin email owned by a user is refused", func() {
			_, err := svc.Register(ctx, "Someone", "taken@example.com", "password-1")
			convey.So(err, convey.ShouldBeNil)
			cfg.AdminEmail, cfg.AdminPassword = "taken@example.com", "correct-horse"
			convey.So(ensureAdmin(ctx, svc, cfg, log), convey.ShouldNotBeNil)
		})

		convey.Convey("Then the handler serves docs and metrics", func() {
			h := newHandler(ctx, svc)
			for _, path := range []string{"/healthz", "/metrics", "/api-docs", "/openapi.yaml", "/rulesets", "/stats"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})

	convey.Convey("Given an unreachable redis", t, func() {
		cfg := testConfig()
		cfg.RedisAddr = "127.0.0.1:1"
		_, _, err := build(context.Background(), cfg, logger.Get())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a server on a free port", t, func() {
		cfg := testConfig()
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- serve(ctx, cfg) }()

		convey.Convey("Then cancelling the context shuts it down cleanly", func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("serve did not return")
			}
		})
	})
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		configPath = ""

		convey.Convey("Then a profile is scored and explained", func() {
			out, err := execute("score", "--age", "45", "--smoker", "true", "--bmi", "27")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "life expectancy")
			convey.So(out, convey.ShouldContainSubstring, "smoker")
			convey.So(out, convey.ShouldContainSubstring, "not medical advice")
		})

		convey.Convey("Then --json prints a preview", func() {
			out, err := execute("score", "--age", "30", "--ruleset", "simple", "--json")
			convey.So(err, convey.ShouldBeNil)
			var p types.Preview
			convey.So(json.Unmarshal([]byte(out), &p), convey.ShouldBeNil)
			convey.So(p.RuleSet, convey.ShouldEqual, "simple")
			convey.So(p.Result.PredictedLifeExpectancy, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("Then age is required", func() {
			_, err := execute("score", "--bmi", "22")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then an unknown rule set fails", func() {
			_, err := execute("score", "--age", "30", "--ruleset", "nope")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRulesCommand(t *testing.T) {
	convey.Convey("Given the rules command", t, func() {
		configPath = ""
		out, err := execute("rules")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "standard")
		convey.So(out, convey.ShouldContainSubstring, "simple")
		convey.So(out, convey.ShouldContainSubstring, "*")
	})
}

func TestAdminCreateCommand(t *testing.T) {
	convey.Convey("Given the admin create command", t, func() {
		configPath = ""
		t.Setenv("LIFESPAN_BCRYPT_COST", "4")

		convey.Convey("Then it provisions an admin", func() {
			out, err := execute("admin", "create", "--email", "ops@example.com", "--password", "s3cret-pass")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "admin ops@example.com")
		})

		convey.Convey("Then a short password is rejected", func() {
			_, err := execute("admin", "create", "--email", "ops@example.com", "--password", "short")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then email is required", func() {
			_, err := execute("admin", "create", "--password", "s3cret-pass")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then an update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
