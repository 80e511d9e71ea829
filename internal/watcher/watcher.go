package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/notifier"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is the time between two cycles
const DefaultInterval = 30 * time.Minute

// Extractor produces the current schedule
type Extractor interface {
	FetchRecords(ctx context.Context) ([]schedule.Record, error)
}

// SnapshotStore persists the last notified snapshot
type SnapshotStore interface {
	Load() (schedule.Snapshot, error)
	Save(records schedule.Snapshot) error
}

// ErrNoData is reported when extraction succeeded but returned no records
var ErrNoData = errors.New("no schedule records extracted")

// Options configures a Watcher
type Options struct {
	// Interval between cycles; DefaultInterval when zero
	Interval time.Duration
	// RunOnStart runs a cycle as soon as Start is called
	RunOnStart bool
	// CycleTimeout bounds one cycle; none when zero
	CycleTimeout time.Duration
	// Metrics receives cycle metrics; the package default when nil
	Metrics *logger.Metrics
}

// CycleResult describes what one cycle did
type CycleResult struct {
	StartedAt  time.Time
	Duration   time.Duration
	Records    int
	NewEntries []schedule.Record
	Bootstrap  bool
	// Aborted is set when extraction failed or returned nothing
	Aborted bool
	// AbortErr is the extraction error behind Aborted
	AbortErr error
	// Report is the notification outcome; nil when nothing was sent
	Report *notifier.Report
	// NotifyErr is set when the notification as a whole failed
	NotifyErr error
	Saved     bool
}

// Watcher drives the extract, diff, notify, persist cycle
type Watcher struct {
	extractor Extractor
	store     SnapshotStore
	notifier  notifier.Notifier
	opts      Options
	metrics   *logger.Metrics

	mu      sync.Mutex
	running sync.Mutex
	startup sync.WaitGroup
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Watcher
func New(extractor Extractor, store SnapshotStore, n notifier.Notifier, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = logger.DefaultMetrics()
	}

	return &Watcher{
		extractor: extractor,
		store:     store,
		notifier:  n,
		opts:      opts,
		metrics:   metrics,
	}
}

// RunOnce executes one cycle. The returned error is non-nil only when the
// snapshot could not be read or written; an aborted extraction is reported in
// the result, not as an error.
func (w *Watcher) RunOnce(ctx context.Context) (*CycleResult, error) {
	w.running.Lock()
	defer w.running.Unlock()

	if w.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.CycleTimeout)
		defer cancel()
	}

	result := &CycleResult{StartedAt: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		w.metrics.RecordTiming("cycle.duration", result.Duration)
	}()
	w.metrics.IncrCounter("cycles.total")

	current, err := w.extractor.FetchRecords(ctx)
	if err == nil && len(current) == 0 {
		err = ErrNoData
	}
	if err != nil {
		result.Aborted = true
		result.AbortErr = err
		w.metrics.IncrCounter("cycles.aborted")
		logger.Error("Extraction failed, skipping cycle", nil, err)
		return result, nil
	}
	result.Records = len(current)
	w.metrics.SetGauge("scrape.records", float64(len(current)))

	previous, err := w.store.Load()
	if err != nil {
		return result, fmt.Errorf("loading snapshot: %w", err)
	}

	result.Bootstrap = schedule.IsBootstrap(previous)
	result.NewEntries = schedule.NewEntries(current, previous)

	if len(result.NewEntries) == 0 {
		logger.Debug("No new entries", logger.Fields{
			"records":  len(current),
			"previous": len(previous),
		})
		return result, nil
	}

	if result.Bootstrap {
		logger.Warn("No previous snapshot, every record counts as new", logger.Fields{
			"new_entries": len(result.NewEntries),
		})
	}
	logger.Info("New entries found, notifying", logger.Fields{
		"new_entries": len(result.NewEntries),
		"records":     len(current),
	})

	result.Report, result.NotifyErr = w.notifier.Notify(ctx, result.NewEntries)
	if result.NotifyErr != nil {
		w.metrics.IncrCounter("notify.failed")
		logger.Error("Notification failed", logger.Fields{"new_entries": len(result.NewEntries)}, result.NotifyErr)
	} else {
		w.metrics.IncrCounter("cycles.notified")
	}

	// Saved even when notification failed: the next cycle must not re-announce.
	if err := w.store.Save(current); err != nil {
		return result, fmt.Errorf("saving snapshot: %w", err)
	}
	result.Saved = true
	w.metrics.SetGauge("snapshot.records", float64(len(current)))

	return result, nil
}

// Start schedules a cycle every Interval. Cycles that would overlap a running
// one are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return errors.New("watcher already started")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.opts.Interval), w.tick); err != nil {
		w.cancel()
		return fmt.Errorf("scheduling cycle: %w", err)
	}

	w.cron = c
	c.Start()

	logger.Info("Watcher started", logger.Fields{"interval": w.opts.Interval.String()})

	if w.opts.RunOnStart {
		w.startup.Add(1)
		go func() {
			defer w.startup.Done()
			w.tick()
		}()
	}
	return nil
}

// Stop cancels scheduling and waits for a running cycle to finish or ctx to end
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	c := w.cron
	cancel := w.cancel
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	// the RunOnStart cycle runs outside cron
	waited := make(chan struct{})
	go func() {
		w.startup.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	cancel()
	logger.Info("Watcher stopped", nil)
	return nil
}

func (w *Watcher) tick() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	result, err := w.RunOnce(ctx)
	if err != nil {
		logger.Error("Cycle failed", nil, err)
		return
	}

	fields := logger.Fields{
		"duration":    result.Duration.String(),
		"records":     result.Records,
		"new_entries": len(result.NewEntries),
		"aborted":     result.Aborted,
	}
	if result.Report != nil {
		fields["sent"] = result.Report.Sent()
		fields["recipients"] = result.Report.Total()
	}
	logger.Info("Cycle finished", fields)
}

// cronLogger routes robfig/cron's logging through the package logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, kvFields(keysAndValues), err)
}

func kvFields(keysAndValues []interface{}) logger.Fields {
	fields := logger.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
