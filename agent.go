package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"sysmon/core"
	"sysmon/core/validation"
	"sysmon/db"
	"sysmon/hostinfo"
	"sysmon/logging"
	"sysmon/metrics"
	"sysmon/shutdown"
	"sysmon/stackreg"
	"sysmon/telemetry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	journalCleanupInterval = 6 * time.Hour
	summaryTopThreads      = 5
)

// threadSource is a scheduler that can also tell whether a thread still exists.
type threadSource interface {
	metrics.SchedulerSource
	Alive(id metrics.ThreadIdentity) bool
}

// runAgent loads configuration, starts every component and blocks until a
// signal arrives or stop is closed. It returns the process exit code.
func runAgent(stop <-chan struct{}, interactive bool) int {
	if err := godotenv.Load(); err != nil && interactive {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Note: no .env file loaded: %v\n", err)
	}

	config, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return core.ExitCodeConfig
	}

	logger, err := logging.NewLogger(logging.Config{
		Development: config.DevMode,
		FilePath:    config.LogFile,
		Level:       logging.LevelFor(config.LogLevel, config.DevMode),
		File:        logging.DefaultFileWriterConfig(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	logger.Info("Starting sysmon",
		zap.String("version", core.GetVersionInfo()),
		zap.String("source", config.Source),
		zap.Duration("interval", config.SampleInterval),
		zap.Int("sample_count", config.SampleCount),
		zap.Int("max_tracked", config.MaxTrackedTasks),
		zap.Int("monitor_core", config.MonitorCore),
		zap.String("journal", config.JournalPath),
		zap.String("textfile", config.TextfilePath),
		zap.Bool("dev_mode", config.DevMode),
	)

	manager := shutdown.NewManager(logger.Named("shutdown").Zap())
	manager.Register("logger", shutdown.PriorityLogger, func(ctx context.Context) error {
		return logger.Sync()
	})
	if stop != nil {
		go func() {
			select {
			case <-stop:
				manager.Cancel()
			case <-manager.Context().Done():
			}
		}()
	}
	manager.Start()

	code := startAgent(manager, config, logger, interactive)
	if code != core.ExitCodeSuccess {
		manager.Shutdown()
	} else {
		manager.Wait()
		code = manager.ExitCode(manager.Shutdown())
	}
	logExit(logger, code)
	return code
}

// logExit records how the agent ended. It runs after the logger hook, so it
// syncs again.
func logExit(logger *logging.Logger, code int) {
	fields := []zap.Field{
		zap.Int("exit_code", code),
		zap.String("reason", core.ExitCodeName(code)),
		zap.Bool("signal", core.IsSignalExit(code)),
	}
	switch {
	case code == core.ExitCodeSuccess || core.IsSignalExit(code):
		logger.Info("sysmon stopped", fields...)
	default:
		logger.Error("sysmon stopped", fields...)
	}
	logger.Sync()
}

// startAgent validates the environment and starts the sampler and its
// consumers, registering teardown for each.
func startAgent(manager *shutdown.Manager, config *core.Config, logger *logging.Logger, interactive bool) int {
	ctx := manager.Context()
	stacks := stackreg.New(0, logger.Named("stackreg").Zap())

	sched, host, err := openSource(config, stacks)
	if err != nil {
		logger.Error("Failed to open thread source", zap.Error(err))
		return core.ExitCodeConfig
	}

	result := validation.NewValidationSuite(config).
		WithShowProgress(interactive).
		WithSourceProbe(sourceProbe(config, sched, host)).
		Validate()
	if !result.Success {
		logger.Error("Startup validation failed",
			zap.String("summary", result.Summary()),
			zap.Error(result.GetFirstError()),
			zap.Errors("errors", result.GetErrors()))
		return core.ExitCodeConfig
	}
	logger.Info("Startup validation passed", zap.String("summary", result.Summary()))

	opts := []metrics.SamplerOption{
		metrics.WithLogger(logger.Named("sampler").Sampled(time.Minute, 3, 60).Zap()),
		metrics.WithStackLookup(stacks),
	}

	if config.JournalPath != "" {
		journal, err := openJournal(ctx, manager, config, logger)
		if err != nil {
			logger.Error("Failed to open journal", zap.String("path", config.JournalPath), zap.Error(err))
			return core.ExitCodeError
		}
		opts = append(opts, metrics.WithEventSink(journal))
	}

	reporter := newSummaryReporter(config.SummaryEvery, summaryTopThreads, logger.Named("summary"),
		stacks, sched.Alive, manager.WrapOperation)
	opts = append(opts, metrics.WithTickCallback(reporter.OnTick))

	sampler := metrics.NewSampler(samplerConfig(config), sched, host, opts...)
	manager.Register("sampler", shutdown.PrioritySampler, func(ctx context.Context) error {
		sampler.Stop()
		return nil
	})
	manager.Register("snapshot-store", shutdown.PriorityStorage, func(ctx context.Context) error {
		return sampler.Store().Close()
	})

	go reporter.Run(ctx)

	if config.TextfilePath != "" {
		if err := startTextfileExport(manager, config, logger, sampler.Store()); err != nil {
			logger.Error("Failed to start textfile export", zap.Error(err))
			return core.ExitCodeError
		}
	}

	if err := sampler.Start(); err != nil {
		logger.Error("Failed to start sampler", zap.Error(err))
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

func samplerConfig(c *core.Config) metrics.SamplerConfig {
	return metrics.SamplerConfig{
		Interval:          c.SampleInterval,
		SampleCount:       c.SampleCount,
		InitialCapacity:   c.InitialCapacity,
		MaxCapacity:       c.MaxTrackedTasks,
		EvictionThreshold: c.EvictionThreshold,
		NameLength:        c.NameLength,
		WordSize:          c.WordSize,
		Cores:             c.NumCores,
		MonitorCore:       c.MonitorCore,
	}
}

// openSource returns the scheduler and host providers for the configured
// source. The simulator registers its stacks with stacks; /proc threads have
// no registered stacks.
func openSource(config *core.Config, stacks *stackreg.Registry) (threadSource, metrics.HostSource, error) {
	switch config.Source {
	case core.SourceSim:
		sim := hostinfo.NewSimulator(hostinfo.SimulatorConfig{
			Interval: config.SampleInterval,
			Cores:    config.NumCores,
			PSRAM:    true,
			Seed:     uint64(time.Now().UnixNano()),
		}, stacks)
		return sim, sim, nil
	case core.SourceProc:
		src, err := hostinfo.NewProcSource(config.ResolvedPID())
		if err != nil {
			return nil, nil, core.ErrSourceUnavailable(config.Source, err)
		}
		return src, hostinfo.NewHostReader(config.NumCores), nil
	default:
		return nil, nil, core.ErrInvalidValue("SYSMON_SOURCE", config.Source, "must be proc or sim")
	}
}

// sourceProbe reads each provider once. The simulator's scheduler is left
// alone since reading it advances simulated time.
func sourceProbe(config *core.Config, sched metrics.SchedulerSource, host metrics.HostSource) validation.SourceProbe {
	return func(ctx context.Context) error {
		if config.Source != core.SourceSim {
			if _, err := sched.Snapshot(ctx); err != nil {
				return fmt.Errorf("scheduler: %w", err)
			}
		}
		if _, err := host.ReadHost(ctx); err != nil {
			return fmt.Errorf("host: %w", err)
		}
		return nil
	}
}

// openJournal opens the event database and registers its drain and close.
func openJournal(ctx context.Context, manager *shutdown.Manager, config *core.Config, logger *logging.Logger) (*db.Journal, error) {
	database, err := db.Open(ctx, config.JournalPath)
	if err != nil {
		return nil, err
	}
	jlog := logger.Named("journal")
	journal := db.NewJournal(database, jlog.Zap(), db.DefaultAsyncWriterConfig())
	jlog.Info("Journal opened", zap.String("path", database.Path()), zap.String("session", journal.SessionID()))

	if config.JournalRetentionDays > 0 {
		database.StartCleanupScheduler(ctx, config.JournalRetentionDays, journalCleanupInterval,
			func(result db.CleanupResult, err error) {
				if err != nil {
					jlog.Warn("Journal cleanup failed", zap.Error(err))
					return
				}
				if result.Deleted > 0 {
					jlog.Info("Journal cleanup", zap.Int64("deleted", result.Deleted), zap.Duration("duration", result.Duration))
				}
			})
	}

	manager.Register("journal", shutdown.PriorityJournal, func(ctx context.Context) error {
		err := journal.Close()
		if dropped := journal.Dropped(); dropped > 0 {
			jlog.Warn("Journal dropped events", zap.Uint64("dropped", dropped))
		}
		return err
	})
	manager.Register("journal-db", shutdown.PriorityStorage, func(ctx context.Context) error {
		return database.Close()
	})
	return journal, nil
}

// startTextfileExport runs the exporter until teardown. The sampler hook
// stops the producer first; the exporter's final write then happens before
// storage closes.
func startTextfileExport(manager *shutdown.Manager, config *core.Config, logger *logging.Logger, store *metrics.Store) error {
	reg, err := telemetry.NewRegistry(telemetry.NewCollector(store))
	if err != nil {
		return err
	}

	wrap := func(ctx context.Context, fn func() error) error {
		return manager.WrapOperation(ctx, "textfile", func(context.Context) error { return fn() })
	}
	exporter := telemetry.NewTextfileExporter(config.TextfilePath, reg, config.TextfileInterval,
		logger.Named("textfile").Zap(), wrap)

	done := make(chan struct{})
	go func() {
		defer close(done)
		exporter.Run(manager.Context())
	}()

	manager.Register("textfile", shutdown.PrioritySampler+1, func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	manager.Register("textfile-temps", shutdown.PriorityStorage+1,
		shutdown.RemoveExportTemps(logger.Named("textfile").Zap(), config.TextfilePath))
	return nil
}
