package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"docpipe/internal/appetite"
	"docpipe/internal/classify"
	"docpipe/internal/config"
	"docpipe/internal/extract"
	"docpipe/internal/ingest"
	"docpipe/internal/logging"
	"docpipe/internal/notifications"
	"docpipe/internal/queue"
	"docpipe/internal/recognize"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

// Queue directory names, one per consuming stage plus the terminal report
// queue.
const (
	QueueIngestion      = "ingestion"
	QueueRecognition    = "recognition"
	QueueClassification = "classification"
	QueueExtraction     = "extraction"
	QueueMatching       = "matching"
)

// Manager owns the five stage workers and the inbox watcher. It wires each
// worker between its input queue and the next stage's queue, preflights
// every handler before consuming, and shuts the whole pipeline down
// together.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	ingestionStore      *store.IngestionStore
	recognitionStore    *store.RecognitionStore
	classificationStore *store.ClassificationStore
	submissionStore     *store.SubmissionStore

	queues   []*queue.Queue
	handlers []stage.Handler
	workers  []*stage.Worker
	watcher  *ingest.Watcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds the full pipeline from configuration. The returned manager
// holds open database handles; call Close when done.
func New(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	return NewWithNotifier(cfg, logger, notifications.NewService(cfg))
}

// NewWithNotifier builds the pipeline with a custom notifier (used in tests).
func NewWithNotifier(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg, logger: logger, notifier: notifier}

	maxAttempts := cfg.Workflow.MaxAttempts
	openQueue := func(name string) (*queue.Queue, error) {
		q, err := queue.Open(cfg.QueuePath(name), maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("open %s queue: %w", name, err)
		}
		m.queues = append(m.queues, q)
		return q, nil
	}

	var err error
	queues := make(map[string]*queue.Queue, 5)
	for _, name := range []string{QueueIngestion, QueueRecognition, QueueClassification, QueueExtraction, QueueMatching} {
		if queues[name], err = openQueue(name); err != nil {
			return nil, err
		}
	}
	reportQueue, err := queue.Open(cfg.Paths.ReportDir, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("open report queue: %w", err)
	}
	m.queues = append(m.queues, reportQueue)

	if m.ingestionStore, err = store.OpenIngestionStore(cfg.DatabasePath("ingestion")); err != nil {
		m.Close()
		return nil, err
	}
	if m.recognitionStore, err = store.OpenRecognitionStore(cfg.DatabasePath("recognition")); err != nil {
		m.Close()
		return nil, err
	}
	if m.classificationStore, err = store.OpenClassificationStore(cfg.DatabasePath("classification")); err != nil {
		m.Close()
		return nil, err
	}
	if m.submissionStore, err = store.OpenSubmissionStore(cfg.DatabasePath("submission")); err != nil {
		m.Close()
		return nil, err
	}

	rules, err := appetite.LoadRules(cfg.Rules.Path)
	if err != nil {
		m.Close()
		return nil, err
	}

	matchingHandler := appetite.NewHandler(appetite.NewEvaluator(rules), m.submissionStore, logger)
	matchingHandler.SetNotifier(notifier)

	workerCfg := stage.WorkerConfig{
		PollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		ErrorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	wire := func(handler stage.Handler, input, output *queue.Queue, inPrefix, outPrefix string) {
		cfg := workerCfg
		cfg.InputPrefix = inPrefix
		cfg.OutputPrefix = outPrefix
		worker := stage.NewWorker(handler, input, output, cfg, logger)
		worker.SetNotifier(notifier)
		m.handlers = append(m.handlers, handler)
		m.workers = append(m.workers, worker)
	}

	wire(ingest.NewHandler(m.ingestionStore, cfg.Paths.LakeDir, cfg.Paths.InboxDir),
		queues[QueueIngestion], queues[QueueRecognition], queue.PrefixRequest, queue.PrefixIngested)
	wire(recognize.NewHandler(recognize.NewPlainTextEngine(), m.recognitionStore),
		queues[QueueRecognition], queues[QueueClassification], queue.PrefixIngested, queue.PrefixRecognized)
	wire(classify.NewHandler(classify.New(classify.DefaultRules()), m.classificationStore),
		queues[QueueClassification], queues[QueueExtraction], queue.PrefixRecognized, queue.PrefixClassified)
	wire(extract.NewHandler(extract.New(extract.DefaultTemplates()), m.submissionStore),
		queues[QueueExtraction], queues[QueueMatching], queue.PrefixClassified, queue.PrefixExtracted)
	wire(matchingHandler,
		queues[QueueMatching], reportQueue, queue.PrefixExtracted, queue.PrefixProcessed)

	submitter := ingest.NewSubmitter(queues[QueueIngestion], "watcher")
	m.watcher = ingest.NewWatcher(cfg.Paths.InboxDir,
		time.Duration(cfg.Workflow.WatchInterval)*time.Second, submitter, logger)

	return m, nil
}

// Preflight runs every handler's health check and reports all failures at
// once, so an operator fixes one restart's worth of problems, not one per
// restart.
func (m *Manager) Preflight(ctx context.Context) error {
	var failures []string
	for _, handler := range m.handlers {
		health := handler.HealthCheck(ctx)
		if health.Ready {
			m.logger.Info("preflight check passed", logging.Args(
				logging.String("check", health.Name),
				logging.String(logging.FieldEventType, "preflight_passed"))...)
			continue
		}
		m.logger.Error("preflight check failed", logging.Args(
			logging.String("check", health.Name),
			logging.String("detail", health.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"))...)
		failures = append(failures, fmt.Sprintf("%s: %s", health.Name, health.Detail))
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Start preflights every stage and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}
	if err := m.Preflight(ctx); err != nil {
		if notifyErr := m.notifier.NotifyError(ctx, err, "pipeline startup"); notifyErr != nil {
			m.logger.Warn("startup notification failed", logging.Args(logging.Error(notifyErr))...)
		}
		return err
	}

	// Claims left behind by a crashed predecessor are safe to reclaim here:
	// the instance lock is held, so no other process owns them.
	for _, q := range m.queues {
		if err := q.RecoverOrphans(); err != nil {
			return fmt.Errorf("recover orphaned claims in %s: %w", q.Dir(), err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(len(m.workers) + 1)
	for _, worker := range m.workers {
		worker := worker
		go func() {
			defer m.wg.Done()
			if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("stage worker stopped", logging.Args(logging.Error(err))...)
				if notifyErr := m.notifier.NotifyError(context.Background(), err, "stage worker"); notifyErr != nil {
					m.logger.Warn("worker failure notification failed", logging.Args(logging.Error(notifyErr))...)
				}
			}
		}()
	}
	go func() {
		defer m.wg.Done()
		if err := m.watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("inbox watcher stopped", logging.Args(logging.Error(err))...)
			if notifyErr := m.notifier.NotifyError(context.Background(), err, "inbox watcher"); notifyErr != nil {
				m.logger.Warn("watcher failure notification failed", logging.Args(logging.Error(notifyErr))...)
			}
		}
	}()

	m.logger.Info("pipeline started", logging.Args(
		logging.String(logging.FieldEventType, "pipeline_started"),
		logging.Int("stages", len(m.workers)))...)
	return nil
}

// Stop terminates background processing and waits for in-flight units to
// settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("pipeline stopped", logging.Args(
		logging.String(logging.FieldEventType, "pipeline_stopped"))...)
}

// ProcessAvailable drains every stage once in pipeline order. Used by tests
// and one-shot runs; the daemon path uses Start/Stop instead.
func (m *Manager) ProcessAvailable(ctx context.Context) (int, error) {
	total := 0
	for _, worker := range m.workers {
		n, err := worker.ProcessAvailable(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ScanInbox runs one watcher pass. Exposed for tests and one-shot runs.
func (m *Manager) ScanInbox(ctx context.Context) error {
	return m.watcher.Scan(ctx)
}

// SubmissionStore exposes the shared submission store for reporting.
func (m *Manager) SubmissionStore() *store.SubmissionStore {
	return m.submissionStore
}

// Close releases the database handles. The pipeline must be stopped first.
func (m *Manager) Close() {
	if m.ingestionStore != nil {
		_ = m.ingestionStore.Close()
	}
	if m.recognitionStore != nil {
		_ = m.recognitionStore.Close()
	}
	if m.classificationStore != nil {
		_ = m.classificationStore.Close()
	}
	if m.submissionStore != nil {
		_ = m.submissionStore.Close()
	}
}
