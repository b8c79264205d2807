package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/lifespan/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RuleSet, convey.ShouldEqual, "standard")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.LoginWindow(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.LoginMaxAttempts, convey.ShouldEqual, 5)
			convey.So(cfg.LoginAccountMaxAttempts, convey.ShouldEqual, 20)
			convey.So(cfg.TrustProxy, convey.ShouldBeFalse)
			convey.So(cfg.ResetCodeTTL(), convey.ShouldEqual, 15*time.Minute)
			convey.So(cfg.AdminEmail, convey.ShouldBeEmpty)
			convey.So(cfg.AdminPassword, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When only the admin email is set", func() {
			cfg.AdminEmail = "root@example.com"

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "admin_email")
			})
		})

		convey.Convey("When both admin fields are set", func() {
			cfg.AdminEmail = "root@example.com"
			cfg.AdminPassword = "correct horse"

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rule set name is blank", func() {
			cfg.RuleSet = "  "

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker count is zero", func() {
			cfg.WorkerCount = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfig_Brokers(t *testing.T) {
	convey.Convey("Given a comma separated broker list", t, func() {
		cfg := config.New(context.Background())
		cfg.KafkaBrokers = " kafka-1:9092, ,kafka-2:9092 "

		convey.Convey("Then blanks are dropped and addresses trimmed", func() {
			convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"kafka-1:9092", "kafka-2:9092"})
		})

		convey.Convey("Then an empty list yields no brokers", func() {
			cfg.KafkaBrokers = ""
			convey.So(cfg.Brokers(), convey.ShouldBeEmpty)
		})
	})
}
