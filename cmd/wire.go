package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/lifespan/internal/adapters/cache/memstore"
	"github.com/okian/lifespan/internal/adapters/cache/redisstore"
	"github.com/okian/lifespan/internal/adapters/notify"
	"github.com/okian/lifespan/internal/adapters/repository/postgres"
	"github.com/okian/lifespan/internal/adapters/security"
	app "github.com/okian/lifespan/internal/app"
	"github.com/okian/lifespan/internal/config"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/internal/domain/scoring/rulesfile"
	"github.com/okian/lifespan/pkg/logger"
)

// newRegistry builds the rule set registry: built-ins, then the rules file,
// then the configured active name unless the file picks one.
func newRegistry(cfg *config.Config) (*scoring.Registry, error) {
	reg, err := scoring.NewRegistry(scoring.RuleSetStandard)
	if err != nil {
		return nil, err
	}
	fileActive := ""
	if cfg.RulesFile != "" {
		doc, err := rulesfile.Load(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if err := rulesfile.Apply(reg, doc); err != nil {
			return nil, fmt.Errorf("apply %s: %w", cfg.RulesFile, err)
		}
		fileActive = doc.Active
	}
	if fileActive == "" {
		if err := reg.Activate(cfg.RuleSet); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// build assembles the service from configuration. The returned cleanup
// releases what the service does not own and must run after Service.Stop.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn(ctx, "cleanup failed", logger.Error(err))
			}
		}
	}
	fail := func(err error) (*app.Service, func(), error) {
		cleanup()
		return nil, nil, err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return fail(err)
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithRegistry(reg),
		app.WithHasher(security.BcryptHasher{Cost: cfg.BcryptCost}),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSessionTTL(cfg.SessionTTL()),
		app.WithResetCodeTTL(cfg.ResetCodeTTL()),
	}

	if cfg.RedisAddr != "" {
		rdb := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rs := redisstore.New(rdb)
		closers = append(closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			return fail(fmt.Errorf("redis: %w", err))
		}
		opts = append(opts,
			app.WithSessions(rs),
			app.WithResetCodes(rs),
			app.WithLimiter(redisstore.NewLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow())),
			app.WithAccountLimiter(redisstore.NewLimiter(rdb, cfg.LoginAccountMaxAttempts, cfg.LoginWindow())),
		)
		log.Info(ctx, "using redis for sessions", logger.String("addr", cfg.RedisAddr))
	} else {
		opts = append(opts,
			app.WithLimiter(memstore.NewLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow())),
			app.WithAccountLimiter(memstore.NewLimiter(cfg.LoginAccountMaxAttempts, cfg.LoginWindow())),
		)
	}

	var mailer notify.Mailer = notify.LogMailer{Log: log.Named("mail")}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	var publisher notify.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			return fail(fmt.Errorf("kafka: %w", err))
		}
		publisher = kp
		log.Info(ctx, "publishing events to kafka", logger.String("topic", cfg.KafkaTopic))
	}
	dispatcher := notify.NewDispatcher(mailer, publisher, log.Named("notify"))
	closers = append(closers, dispatcher.Close)
	opts = append(opts, app.WithNotifier(dispatcher))

	// Opened last: from here on Service.Stop owns the store.
	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		opts = append(opts, app.WithStore(store))
		log.Info(ctx, "using postgres store")
	}

	return app.New(opts...), cleanup, nil
}

// ensureAdmin provisions the configured admin account, if any.
func ensureAdmin(ctx context.Context, svc *app.Service, cfg *config.Config, log logger.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	admin, err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		if errors.Is(err, app.ErrEmailTaken) {
			return fmt.Errorf("admin_email %s belongs to a regular account: %w", cfg.AdminEmail, err)
		}
		return err
	}
	log.Info(ctx, "admin account ready", logger.String("email", admin.Email))
	return nil
}
