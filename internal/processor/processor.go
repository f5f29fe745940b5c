// Package processor implements the Queue Processor: the single
// long-running consumer that watches the durable queue, drains pending and
// retry-eligible records, and dispatches each by kind to its handler.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/session"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// RecordStore is the subset of *queue.Queue the drain loop depends on.
// Abstracting it lets callers swap in *queue.MirroringQueue without the
// processor knowing mirroring exists.
type RecordStore interface {
	ReadPending() ([]queue.Record, error)
	ReadRetryable(maxRetries int) ([]queue.Record, error)
	UpdateStatus(id string, newStatus queue.Status, errText string) error
}

// Processor drains the durable queue sequentially, never fanning records
// out in parallel: the drain pass processes one record at a time.
type Processor struct {
	Queue      RecordStore
	Watcher    *queue.Watcher
	Session    *session.Processor
	MaxRetries int
	Log        *slog.Logger

	draining atomic.Bool
	mu       sync.Mutex // not used by drain: the draining CAS alone is the reentrancy guard
}

// New builds a Processor.
func New(q RecordStore, w *queue.Watcher, sessionProc *session.Processor, maxRetries int, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = queue.DefaultMaxRetries
	}
	return &Processor{Queue: q, Watcher: w, Session: sessionProc, MaxRetries: maxRetries, Log: log}
}

// Run does an initial drain, then drains again on every queue-file change
// notification until ctx is cancelled. Shutdown is best effort: on a
// termination signal, the in-flight drain is allowed to finish its current
// record before Run returns.
func (p *Processor) Run(ctx context.Context) error {
	p.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Log.Info("processor: shutting down")
			return nil
		case _, ok := <-p.Watcher.Changes:
			if !ok {
				return nil
			}
			p.drain(ctx)
		}
	}
}

// drain is non-reentrant: if a drain is already in flight it is skipped.
func (p *Processor) drain(ctx context.Context) {
	if !p.draining.CompareAndSwap(false, true) {
		return
	}
	defer p.draining.Store(false)

	pending, err := p.Queue.ReadPending()
	if err != nil {
		p.Log.Error("processor: read pending failed", "error", err)
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return
		}
		p.processRecord(ctx, rec)
	}

	retryable, err := p.Queue.ReadRetryable(p.MaxRetries)
	if err != nil {
		p.Log.Error("processor: read retryable failed", "error", err)
	}
	for _, rec := range retryable {
		if ctx.Err() != nil {
			return
		}
		p.processRecord(ctx, rec)
	}
}

// processRecord runs the per-record state machine: mark processing,
// dispatch by kind, mark processed on success or failed (with error text,
// incrementing retry_count) on any error.
func (p *Processor) processRecord(ctx context.Context, rec queue.Record) {
	ctx, span := telemetry.StartSpan(ctx, "processor.process_record")
	span.SetAttributes(attribute.String("record.id", rec.ID), attribute.String("record.kind", string(rec.Kind)))
	defer span.End()

	if err := p.Queue.UpdateStatus(rec.ID, queue.StatusProcessing, ""); err != nil {
		p.Log.Error("processor: mark processing failed", "record_id", rec.ID, "error", err)
		return
	}

	if err := p.dispatch(ctx, rec); err != nil {
		p.Log.Error("processor: record failed", "record_id", rec.ID, "kind", rec.Kind, "error", err)
		if uerr := p.Queue.UpdateStatus(rec.ID, queue.StatusFailed, err.Error()); uerr != nil {
			p.Log.Error("processor: mark failed failed", "record_id", rec.ID, "error", uerr)
		}
		return
	}

	if err := p.Queue.UpdateStatus(rec.ID, queue.StatusProcessed, ""); err != nil {
		p.Log.Error("processor: mark processed failed", "record_id", rec.ID, "error", err)
	}
}

func (p *Processor) dispatch(ctx context.Context, rec queue.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor: handler panicked: %v", r)
		}
	}()

	switch rec.Kind {
	case queue.KindSessionStop:
		return p.Session.HandleSessionStop(ctx, rec.SessionID, rec.TranscriptPath)
	case queue.KindPRCreated:
		return p.Session.HandlePRCreated(ctx, rec.SessionID, "", rec.PRURL)
	default:
		return fmt.Errorf("processor: unknown record kind %q", rec.Kind)
	}
}
