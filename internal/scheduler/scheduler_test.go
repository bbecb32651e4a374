package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/inbox"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/model"
)

// stubStore overrides only what a polling cycle touches. Calls to anything
// else panic on the nil embedded interface, which is what we want in a
// lifecycle test.
type stubStore struct {
	inbox.Store
	mailboxes []model.Mailbox
	err       error
}

func (s *stubStore) ListActiveMailboxes(_ context.Context) ([]model.Mailbox, error) {
	return s.mailboxes, s.err
}

type stubFetcher struct {
	mailbox  model.Mailbox
	messages []mail.InboundMessage
	err      error
	fetched  int
	closed   bool
}

func (f *stubFetcher) Mailbox() string { return f.mailbox.Email }

func (f *stubFetcher) FetchNewMessages(_ context.Context) ([]mail.InboundMessage, error) {
	f.fetched++
	return f.messages, f.err
}

func (f *stubFetcher) Close() error {
	f.closed = true
	return nil
}

func testConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{IntervalMinutes: 5, MaxConcurrent: 2}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(testConfig(), nil, &stubStore{}, nil, nil)

	assert.False(t, s.IsRunning())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Error(t, s.Start(), "second start must be rejected")

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	assert.NoError(t, s.Stop(), "stopping a stopped scheduler is a no-op")
}

func TestSchedulerRestart(t *testing.T) {
	s := NewScheduler(testConfig(), nil, &stubStore{}, nil, nil)

	require.NoError(t, s.Start())
	first := s.GetNextRun()
	assert.False(t, first.IsZero())

	require.NoError(t, s.Stop())
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Stop())
}

func TestRunOncePollsEachActiveMailbox(t *testing.T) {
	store := &stubStore{mailboxes: []model.Mailbox{
		{ID: 1, Email: "a@ourco.pl", IsActive: true},
		{ID: 2, Email: "b@ourco.pl", IsActive: true},
	}}

	fetchers := make(map[string]*stubFetcher)
	factory := func(mb model.Mailbox) mail.Fetcher {
		f := &stubFetcher{mailbox: mb}
		fetchers[mb.Email] = f
		return f
	}

	s := NewScheduler(testConfig(), nil, store, factory, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.NoError(t, s.RunOnce())
	s.Wait()

	require.Len(t, fetchers, 2)
	for email, f := range fetchers {
		assert.Equal(t, 1, f.fetched, "mailbox %s must be fetched once", email)
		assert.True(t, f.closed, "fetcher for %s must be closed", email)
	}
}

func TestRunOnceSurvivesFetchError(t *testing.T) {
	store := &stubStore{mailboxes: []model.Mailbox{
		{ID: 1, Email: "broken@ourco.pl", IsActive: true},
		{ID: 2, Email: "ok@ourco.pl", IsActive: true},
	}}

	fetchers := make(map[string]*stubFetcher)
	factory := func(mb model.Mailbox) mail.Fetcher {
		f := &stubFetcher{mailbox: mb}
		if mb.Email == "broken@ourco.pl" {
			f.err = errors.New("imap connection refused")
		}
		fetchers[mb.Email] = f
		return f
	}

	s := NewScheduler(testConfig(), nil, store, factory, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.NoError(t, s.RunOnce())
	s.Wait()

	assert.Equal(t, 1, fetchers["ok@ourco.pl"].fetched, "one broken mailbox must not stop the others")
}

// Status reads may race the lifecycle; run under -race.
func TestStatusReadsDuringLifecycle(t *testing.T) {
	s := NewScheduler(testConfig(), nil, &stubStore{}, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			s.GetNextRun()
			s.GetLastRun()
			s.IsRunning()
		}
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Start())
		require.NoError(t, s.Stop())
	}
	<-done

	assert.False(t, s.IsRunning())
}

func TestRunOnceSkippedWhenStopped(t *testing.T) {
	store := &stubStore{mailboxes: []model.Mailbox{{ID: 1, Email: "a@ourco.pl", IsActive: true}}}
	called := false
	factory := func(mb model.Mailbox) mail.Fetcher {
		called = true
		return &stubFetcher{mailbox: mb}
	}

	s := NewScheduler(testConfig(), nil, store, factory, nil)
	require.NoError(t, s.RunOnce())
	s.Wait()

	assert.False(t, called, "a stopped scheduler must not poll")
}
