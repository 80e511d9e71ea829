package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
	"golang.org/x/net/html"
)

const (
	TargetURL = "https://silat.fatisda.uns.ac.id/"
	UserAgent = "silat-watch/1.0 (github.com/pfrederiksen/silat-watch)"
	Timeout   = 20 * time.Second

	// examinerSeparator joins the individual examiner names of one cell
	examinerSeparator = "<br>"
	minCells          = 8
)

// ErrNoSchedule is returned when the page does not contain the schedule table
var ErrNoSchedule = errors.New("schedule table not found")

// Scraper handles fetching and parsing the SILAT exam schedule
type Scraper struct {
	client *resty.Client
	url    string
}

// New creates a new Scraper for the given page URL.
// An empty url falls back to TargetURL.
func New(url string) *Scraper {
	if url == "" {
		url = TargetURL
	}

	client := resty.New()
	client.SetTimeout(Timeout)
	client.SetHeader("User-Agent", UserAgent)

	return &Scraper{
		client: client,
		url:    url,
	}
}

// URL returns the page being scraped
func (s *Scraper) URL() string {
	return s.url
}

// FetchRecords fetches the schedule page and parses every exam row
func (s *Scraper) FetchRecords(ctx context.Context) ([]schedule.Record, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	return parseRecords(bytes.NewReader(resp.Body()))
}

// parseRecords extracts schedule records from HTML
func parseRecords(r io.Reader) ([]schedule.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	// The schedule lives in the second tab; its id is the bare digit "2",
	// which is not a valid CSS id selector.
	pane := doc.Find(`div[id="2"]`).First()
	if pane.Length() == 0 {
		return nil, ErrNoSchedule
	}

	body := pane.Find("tbody").First()
	if body.Length() == 0 {
		return nil, ErrNoSchedule
	}

	records := make([]schedule.Record, 0)
	body.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minCells {
			return
		}

		cell := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}

		records = append(records, schedule.Record{
			Date:      cell(1),
			Name:      cell(2),
			StudentID: cell(3),
			Examiners: joinedText(cells.Eq(4), examinerSeparator),
			StartTime: cell(5),
			EndTime:   cell(6),
			Room:      cell(7),
		})
	})

	return records, nil
}

// joinedText returns the trimmed, non-empty text nodes under sel joined by sep
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(parts, sep)
}
