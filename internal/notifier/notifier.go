package notifier

import (
	"context"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// Notifier defines the interface for announcing new schedule entries
type Notifier interface {
	// Notify announces entries to every current subscriber
	Notify(ctx context.Context, entries []schedule.Record) (*Report, error)
}

// SubscriberLister provides the current recipients
type SubscriberLister interface {
	List(ctx context.Context) ([]string, error)
}

// Result is the outcome of sending to one recipient
type Result struct {
	Email string
	Err   error
}

// Report aggregates per-recipient results of one notification
type Report struct {
	Results []Result
}

func (r *Report) add(email string, err error) {
	r.Results = append(r.Results, Result{Email: email, Err: err})
}

// Total returns the number of recipients attempted
func (r *Report) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Results)
}

// Sent returns the number of successful sends
func (r *Report) Sent() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error
func (r *Report) Failed() []Result {
	if r == nil {
		return nil
	}
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
