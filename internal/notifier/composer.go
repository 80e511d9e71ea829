package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/pfrederiksen/silat-watch/internal/calendar"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplate = template.Must(
	template.New("email.html").
		Funcs(template.FuncMap{"splitExaminers": splitExaminers}).
		ParseFS(templateFS, "templates/email.html"),
)

// splitExaminers breaks the "<br>"-joined examiner text back into names
// so the template can escape each one.
func splitExaminers(s string) []string {
	return strings.Split(s, "<br>")
}

// TokenIssuer signs unsubscribe tokens
type TokenIssuer interface {
	Issue(email string) string
}

// CalendarFile is the name of the attachment listing the new sessions
const CalendarFile = "jadwal-baru.ics"

// Composer builds the message sent to one subscriber.
// BaseURL is the public root of the web form; SourceURL is the scraped page.
type Composer struct {
	SenderName  string
	SenderEmail string
	BaseURL     string
	SourceURL   string
	Tokens      TokenIssuer
	// Now stamps calendar attachments; time.Now when nil
	Now func() time.Time
}

// Subject returns the subject line for a notification with n new entries
func Subject(n int) string {
	return fmt.Sprintf("Update SILAT UNS: %d Jadwal Baru", n)
}

// From returns the formatted sender address
func (c *Composer) From() string {
	addr := mail.Address{Name: c.SenderName, Address: c.SenderEmail}
	return addr.String()
}

// UnsubscribeLink returns the per-recipient opt-out URL
func (c *Composer) UnsubscribeLink(to string) string {
	return fmt.Sprintf("%s/unsubscribe/%s", strings.TrimRight(c.BaseURL, "/"), c.Tokens.Issue(to))
}

// Compose builds the message for recipient to
func (c *Composer) Compose(to string, entries []schedule.Record) (*email.Email, error) {
	link := c.UnsubscribeLink(to)

	var html bytes.Buffer
	err := emailTemplate.Execute(&html, struct {
		Entries         []schedule.Record
		UnsubscribeLink string
		AppURL          string
		SourceURL       string
	}{
		Entries:         entries,
		UnsubscribeLink: link,
		AppURL:          c.BaseURL,
		SourceURL:       c.SourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering email: %w", err)
	}

	msg := email.NewEmail()
	msg.From = c.From()
	msg.To = []string{to}
	msg.Subject = Subject(len(entries))
	msg.Text = []byte(fmt.Sprintf("Ada %d jadwal baru. Buka %s. Unsubscribe: %s", len(entries), c.SourceURL, link))
	msg.HTML = html.Bytes()

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if ics, n := calendar.Generate(entries, c.SourceURL, now()); n > 0 {
		if _, err := msg.Attach(strings.NewReader(ics), CalendarFile, calendar.ContentType); err != nil {
			return nil, fmt.Errorf("attaching calendar: %w", err)
		}
	}

	msg.Headers.Set("List-Unsubscribe", "<"+link+">")
	msg.Headers.Set("List-Unsubscribe-Post", "List-Unsubscribe=One-Click")
	msg.Headers.Set("Precedence", "bulk")
	msg.Headers.Set("X-Auto-Response-Suppress", "OOF, DR, RN, NRN, AutoReply")

	return msg, nil
}
