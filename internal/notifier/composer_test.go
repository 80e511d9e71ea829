package notifier

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "Update SILAT UNS: 2 Jadwal Baru", Subject(2))
}

func TestComposer_UnsubscribeLink(t *testing.T) {
	c := testComposer()
	assert.Equal(t, "https://watch.example.com/unsubscribe/tok-a_at_example.com", c.UnsubscribeLink("a@example.com"))
}

func TestComposer_Compose(t *testing.T) {
	c := testComposer()
	entries := testEntries()

	msg, err := c.Compose("a@example.com", entries)
	require.NoError(t, err)

	link := "https://watch.example.com/unsubscribe/tok-a_at_example.com"

	assert.Equal(t, `"SILAT Watch" <noreply@example.com>`, msg.From)
	assert.Equal(t, []string{"a@example.com"}, msg.To)
	assert.Equal(t, "Update SILAT UNS: 2 Jadwal Baru", msg.Subject)

	assert.Equal(t, "<"+link+">", msg.Headers.Get("List-Unsubscribe"))
	assert.Equal(t, "List-Unsubscribe=One-Click", msg.Headers.Get("List-Unsubscribe-Post"))
	assert.Equal(t, "bulk", msg.Headers.Get("Precedence"))
	assert.Equal(t, "OOF, DR, RN, NRN, AutoReply", msg.Headers.Get("X-Auto-Response-Suppress"))

	text := string(msg.Text)
	assert.Contains(t, text, "Ada 2 jadwal baru")
	assert.Contains(t, text, "https://silat.example.com/")
	assert.Contains(t, text, link)

	html := string(msg.HTML)
	for _, want := range []string{"Siti", "A2", "Joko", "10:00 - 11:00", "R3", link} {
		assert.Contains(t, html, want)
	}
	// examiner names are escaped individually and joined by real line breaks
	assert.Contains(t, html, "Dr. X<br>Dr. Y")
	assert.NotContains(t, html, "&lt;br&gt;")

	raw, err := msg.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "multipart/alternative")
	assert.Contains(t, string(raw), "text/plain")
	assert.Contains(t, string(raw), "text/html")
	assert.Contains(t, string(raw), "List-Unsubscribe-Post: List-Unsubscribe=One-Click")
}

func TestComposer_EscapesHTML(t *testing.T) {
	c := testComposer()
	entries := testEntries()
	entries[0].Name = `<script>alert("x")</script>`

	msg, err := c.Compose("a@example.com", entries)
	require.NoError(t, err)
	assert.NotContains(t, string(msg.HTML), "<script>")
}

func TestDryRunNotifier(t *testing.T) {
	var out bytes.Buffer
	n := NewDryRunNotifier(staticSubscribers{emails: []string{"a@example.com", "b@example.com"}}, testComposer(), &out)

	report, err := n.Notify(context.Background(), testEntries())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent())

	got := out.String()
	assert.Equal(t, 2, strings.Count(got, "Subject: Update SILAT UNS: 2 Jadwal Baru"))
	assert.Contains(t, got, "--- Email 2/2 ---")
	assert.Contains(t, got, "To: b@example.com")
}

func TestComposer_CalendarAttachment(t *testing.T) {
	c := testComposer()
	c.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	entries := testEntries()

	// ISO dates are not what SILAT shows, so nothing to put in a calendar
	msg, err := c.Compose("a@example.com", entries)
	require.NoError(t, err)
	assert.Empty(t, msg.Attachments)

	entries[1].Date = "Rabu, 03 Januari 2024"
	msg, err = c.Compose("a@example.com", entries)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 1)

	att := msg.Attachments[0]
	assert.Equal(t, CalendarFile, att.Filename)
	assert.Contains(t, string(att.Content), "SUMMARY:Ujian Joko (A3)")
	assert.Equal(t, 1, strings.Count(string(att.Content), "BEGIN:VEVENT"))

	raw, err := msg.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "multipart/mixed")
	assert.Contains(t, string(raw), "text/calendar")
}
