package main

import (
	"github.com/flynn-ai/hybridcall/internal/audit"
	"github.com/flynn-ai/hybridcall/internal/config"
	"github.com/flynn-ai/hybridcall/internal/decompose"
	"github.com/flynn-ai/hybridcall/internal/hybrid"
	"github.com/flynn-ai/hybridcall/internal/logging"
	"github.com/flynn-ai/hybridcall/internal/metrics"
	"github.com/flynn-ai/hybridcall/internal/model"
	"github.com/flynn-ai/hybridcall/internal/resolver"
	"github.com/flynn-ai/hybridcall/internal/stats"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	noCloud    bool

	metricsAddr string // set by serve
}

// app is the wired process: config, logger, models and the orchestrator.
type app struct {
	cfg          *config.Config
	logger       *logging.Logger
	models       *model.Collaborators
	stats        *stats.Collector
	audit        *audit.Store
	orchestrator *hybrid.Orchestrator
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.noCloud {
		cfg.Cloud.Enabled = false
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = opts.metricsAddr
	}
	return cfg, cfg.Validate()
}

func newApp(opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, stats: stats.NewCollector()}

	a.models, err = model.FromConfig(cfg, logger.Component("model"))
	if err != nil {
		a.Close()
		return nil, err
	}

	recorders := []hybrid.Recorder{a.stats}
	if cfg.Metrics.Enabled {
		recorders = append(recorders, metrics.Recorder{})
	}
	if cfg.Audit.Enabled {
		a.audit, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		recorders = append(recorders, a.audit)
	}

	res := resolver.New(a.models.Local, resolver.Config{
		ConfidenceThreshold: cfg.Resolver.ConfidenceThreshold,
		SampleBudget:        cfg.Resolver.SampleBudget,
	}, logger.Component("resolver"))

	a.orchestrator = hybrid.NewOrchestrator(&hybrid.Config{
		Resolver:       res,
		Segmenter:      decompose.NewHeuristic(cfg.Resolver.Verbs...),
		Remote:         a.models.Remote,
		Recorders:      recorders,
		Logger:         logger.Component("hybrid"),
		MaxDepth:       cfg.Resolver.MaxDecompositionDepth,
		ValidateRemote: cfg.Cloud.ValidateOutput,
	})

	log := logger.Component("app")
	log.Debug().
		Str("config", opts.configPath).
		Bool("cloud", a.models.Remote != nil).
		Bool("audit", a.audit != nil).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("initialized")

	return a, nil
}

// Close releases the audit store and the log file.
func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	a.logger.Close()
}
