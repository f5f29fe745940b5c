package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/config"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm/subprocess"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/matcher"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/processor"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/session"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/telemetry"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker/linear"
)

// cleanupInterval is how often the daemon sweeps processed records older
// than cfg.CleanupAfterHours off the durable queue.
const cleanupInterval = time.Hour

func runDaemon() error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.TrackerToken == "" {
		slog.Error("CLAUDE_SYNC_TRACKER_TOKEN is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName, telemetryEndpoint(cfg))
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	trackerClient := linear.New(cfg.TrackerToken, linearOptions(cfg)...)

	var llmTransport llm.LLM
	if cfg.LLM.Command != "" {
		llmTransport = subprocess.New(cfg.LLM.Command, subprocess.WithTimeout(llmTimeout(cfg)))
	}

	branchPattern, err := cfg.CompileBranchPattern()
	if err != nil {
		slog.Error("invalid matcher config", "error", err)
		os.Exit(1)
	}

	hybridMatcher := matcher.New(trackerClient, llmTransport, matcher.Config{
		BranchPattern:       branchPattern,
		KeywordWeight:       cfg.Matcher.KeywordWeight,
		SemanticWeight:      cfg.Matcher.SemanticWeight,
		ConfidenceThreshold: cfg.Matcher.ConfidenceThreshold,
		MaxCandidates:       cfg.Matcher.MaxCandidates,
		EnableSemantic:      cfg.Matcher.EnableSemantic && llmTransport != nil,
		CallsPerMinute:      cfg.Matcher.MaxAPICallsPerMinute,
	}, slog.Default())

	caches, err := processor.Prefetch(ctx, trackerClient, cfg.Tracker.TeamKey, cfg.Tracker.DefaultAssigneeEmail)
	if err != nil {
		slog.Error("failed to prefetch tracker metadata", "error", err)
		os.Exit(1)
	}

	sessionProc := session.New(trackerClient, hybridMatcher, llmTransport, caches, slog.Default(), cfg.Labels)

	q := queue.New(cfg.QueuePath())
	var activeQueue processor.RecordStore = q
	if cfg.PGMirrorEnabled {
		if cfg.PGMirrorDSN == "" {
			slog.Warn("pg_mirror_enabled is set but CLAUDE_SYNC_PG_MIRROR_DSN is empty, mirror disabled")
		} else {
			mirror, merr := queue.OpenPGMirror(ctx, cfg.PGMirrorDSN)
			if merr != nil {
				slog.Warn("pg mirror unavailable, continuing without it", "error", merr)
			} else {
				defer mirror.Close()
				activeQueue = queue.NewMirroringQueue(q, mirror)
				slog.Info("postgres mirror enabled")
			}
		}
	}

	watcher, err := queue.NewWatcher(cfg.QueuePath())
	if err != nil {
		slog.Error("failed to start queue watcher", "error", err)
		os.Exit(1)
	}
	go watcher.Run(ctx)

	proc := processor.New(activeQueue, watcher, sessionProc, cfg.MaxRetries, slog.Default())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		cancel()
	}()

	go runCleanupLoop(ctx, q, cfg.CleanupAfterHours)

	slog.Info("claude-sync-daemon starting", "version", Version, "data_home", cfg.DataHome)
	return proc.Run(ctx)
}

// runCleanupLoop sweeps processed records older than cleanupAfterHours off
// the queue file once per cleanupInterval, until ctx is cancelled.
func runCleanupLoop(ctx context.Context, q *queue.Queue, cleanupAfterHours float64) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := q.CleanupOld(cleanupAfterHours)
			if err != nil {
				slog.Warn("queue cleanup failed", "error", err)
				continue
			}
			if dropped > 0 {
				slog.Info("queue cleanup removed old records", "count", dropped)
			}
		}
	}
}

func linearOptions(cfg *config.Config) []linear.Option {
	var opts []linear.Option
	if cfg.Tracker.BaseURL != "" {
		opts = append(opts, linear.WithBaseURL(cfg.Tracker.BaseURL))
	}
	return opts
}

func llmTimeout(cfg *config.Config) time.Duration {
	if cfg.LLM.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
}

func telemetryEndpoint(cfg *config.Config) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return cfg.Telemetry.OTLPEndpoint
}
