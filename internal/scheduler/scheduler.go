package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/inbox"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/metrics"
	"campaign-inbox-go/internal/model"
)

// FetcherFactory builds a fetcher for one monitored mailbox. Tests
// substitute fakes here.
type FetcherFactory func(mailbox model.Mailbox) mail.Fetcher

// Scheduler polls every active mailbox on a cron interval and feeds the
// fetched messages to the pipeline under a bounded worker pool. Messages
// of one mailbox may process in parallel; the pipeline's dedup key guard
// keeps redeliveries safe.
type Scheduler struct {
	cron       *cron.Cron
	entryID    cron.EntryID
	config     *config.SchedulerConfig
	pipeline   *inbox.Pipeline
	store      inbox.Store
	newFetcher FetcherFactory
	metrics    *metrics.Metrics
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	isRunning  bool
	mu         sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, pipeline *inbox.Pipeline, store inbox.Store, newFetcher FetcherFactory, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		config:     cfg,
		pipeline:   pipeline,
		store:      store,
		newFetcher: newFetcher,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// A fresh context per start so the scheduler survives a restart.
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.entryID == 0 {
		schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)
		entryID, err := s.cron.AddFunc(schedule, s.pollMailboxes)
		if err != nil {
			return fmt.Errorf("failed to add cron job: %w", err)
		}
		s.entryID = entryID
	}
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// pollMailboxes is the main processing function that runs periodically
func (s *Scheduler) pollMailboxes() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping polling cycle")
		return
	}
	s.mu.RUnlock()

	logrus.Info("Starting mailbox polling cycle")
	startTime := time.Now()

	mailboxes, err := s.store.ListActiveMailboxes(s.ctx)
	if err != nil {
		logrus.Errorf("Failed to list active mailboxes: %v", err)
		if s.metrics != nil {
			s.metrics.FetchErrors.Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveMailboxes.Set(float64(len(mailboxes)))
	}

	for _, mailbox := range mailboxes {
		if err := s.pollMailbox(mailbox); err != nil {
			logrus.Errorf("Failed to poll mailbox %s: %v", mailbox.Email, err)
			if s.metrics != nil {
				s.metrics.FetchErrors.Inc()
			}
		}
	}

	logrus.Infof("Mailbox polling cycle completed in %v", time.Since(startTime))
}

// pollMailbox fetches one mailbox and processes its messages under a
// bounded worker pool. A failed message is logged and left unprocessed;
// the next cycle retries it safely by dedup key.
func (s *Scheduler) pollMailbox(mailbox model.Mailbox) error {
	fetcher := s.newFetcher(mailbox)
	defer fetcher.Close()

	messages, err := fetcher.FetchNewMessages(s.ctx)
	if err != nil {
		return fmt.Errorf("fetch from %s: %w", mailbox.Email, err)
	}
	logrus.Infof("Fetched %d new messages from %s", len(messages), mailbox.Email)

	g, ctx := errgroup.WithContext(s.ctx)
	g.SetLimit(s.config.MaxConcurrent)
	for _, msg := range messages {
		msg := msg
		if msg.To == "" {
			msg.To = mailbox.Email
		}
		g.Go(func() error {
			if _, err := s.pipeline.Process(ctx, msg); err != nil {
				logrus.Errorf("Failed to process message %s: %v", msg.MessageID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunOnce runs one polling cycle immediately (manual trigger).
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running mailbox polling once")
	s.pollMailboxes()
	return nil
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for in-flight polling cycles to finish.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
