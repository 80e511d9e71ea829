package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSubscribers struct {
	emails []string
	err    error
}

func (s staticSubscribers) List(ctx context.Context) ([]string, error) {
	return s.emails, s.err
}

type fakeTokens struct{}

func (fakeTokens) Issue(email string) string { return "tok-" + strings.ReplaceAll(email, "@", "_at_") }

type sentMessage struct {
	from string
	to   []string
	raw  string
}

type fakeTransport struct {
	mu       sync.Mutex
	openErr  error
	failFor  map[string]error
	sent     []sentMessage
	opened   int
	closed   int
	sessions int
}

func (f *fakeTransport) Open(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.sessions++
	return &fakeSession{t: f}, nil
}

type fakeSession struct {
	t *fakeTransport
}

func (s *fakeSession) Send(from string, to []string, msg []byte) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if err, ok := s.t.failFor[to[0]]; ok {
		return err
	}
	s.t.sent = append(s.t.sent, sentMessage{from: from, to: to, raw: string(msg)})
	return nil
}

func (s *fakeSession) Close() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.closed++
	return nil
}

func testComposer() *Composer {
	return &Composer{
		SenderName:  "SILAT Watch",
		SenderEmail: "noreply@example.com",
		BaseURL:     "https://watch.example.com/",
		SourceURL:   "https://silat.example.com/",
		Tokens:      fakeTokens{},
	}
}

func testEntries() []schedule.Record {
	return []schedule.Record{
		{Date: "2024-01-02", Name: "Siti", StudentID: "A2", Examiners: "Dr. X<br>Dr. Y", StartTime: "10:00", EndTime: "11:00", Room: "R2"},
		{Date: "2024-01-03", Name: "Joko", StudentID: "A3", Examiners: "Dr. Z", StartTime: "13:00", EndTime: "14:00", Room: "R3"},
	}
}

func TestEmailNotifier_FansOut(t *testing.T) {
	transport := &fakeTransport{}
	subs := staticSubscribers{emails: []string{"a@example.com", "b@example.com", "c@example.com"}}
	n := NewEmailNotifier(subs, transport, testComposer())

	report, err := n.Notify(context.Background(), testEntries())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 3, report.Sent())
	assert.Empty(t, report.Failed())
	assert.Equal(t, 1, transport.sessions, "one session for the whole fan-out")
	assert.Equal(t, 1, transport.closed)
	require.Len(t, transport.sent, 3)

	for i, to := range subs.emails {
		msg := transport.sent[i]
		assert.Equal(t, "noreply@example.com", msg.from)
		assert.Equal(t, []string{to}, msg.to)
		assert.Contains(t, msg.raw, "tok-"+strings.ReplaceAll(to, "@", "_at_"), "unsubscribe link must be per recipient")
	}
}

func TestEmailNotifier_IsolatesRecipientFailures(t *testing.T) {
	transport := &fakeTransport{
		failFor: map[string]error{"b@example.com": errors.New("550 mailbox unavailable")},
	}
	subs := staticSubscribers{emails: []string{"a@example.com", "b@example.com", "c@example.com"}}
	n := NewEmailNotifier(subs, transport, testComposer())

	report, err := n.Notify(context.Background(), testEntries())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Sent())
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b@example.com", failed[0].Email)
	assert.EqualError(t, failed[0].Err, "550 mailbox unavailable")

	require.Len(t, transport.sent, 2)
	assert.Equal(t, []string{"c@example.com"}, transport.sent[1].to)
}

func TestEmailNotifier_SessionFailure(t *testing.T) {
	transport := &fakeTransport{openErr: errors.New("535 authentication failed")}
	n := NewEmailNotifier(staticSubscribers{emails: []string{"a@example.com"}}, transport, testComposer())

	report, err := n.Notify(context.Background(), testEntries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Equal(t, 0, report.Sent())
	assert.Empty(t, transport.sent)
}

func TestEmailNotifier_NoSubscribers(t *testing.T) {
	transport := &fakeTransport{}
	n := NewEmailNotifier(staticSubscribers{}, transport, testComposer())

	report, err := n.Notify(context.Background(), testEntries())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, 0, transport.opened, "no session without recipients")
}

func TestEmailNotifier_ListFailure(t *testing.T) {
	transport := &fakeTransport{}
	n := NewEmailNotifier(staticSubscribers{err: errors.New("database is locked")}, transport, testComposer())

	_, err := n.Notify(context.Background(), testEntries())
	require.Error(t, err)
	assert.Equal(t, 0, transport.opened)
}

func TestEmailNotifier_CancelledContext(t *testing.T) {
	transport := &fakeTransport{}
	n := NewEmailNotifier(staticSubscribers{emails: []string{"a@example.com", "b@example.com"}}, transport, testComposer())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := n.Notify(ctx, testEntries())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total())
	assert.Equal(t, 0, report.Sent())
	assert.Empty(t, transport.sent)
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	assert.Equal(t, 0, r.Total())
	assert.Equal(t, 0, r.Sent())
	assert.Nil(t, r.Failed())
}
