package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/notifier"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
	"github.com/pfrederiksen/silat-watch/internal/scraper"
	"github.com/pfrederiksen/silat-watch/internal/storage"
	"github.com/pfrederiksen/silat-watch/internal/token"
	"github.com/pfrederiksen/silat-watch/internal/watcher"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	dryRun  bool
	refresh bool
	format  string
	sort    string
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one check now and report new schedule entries",
		Long: `Scrape the schedule once, compare it with the last snapshot, email
subscribers about new entries and save the snapshot.

Exits with status 2 when new entries were found, 0 when there were none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the emails instead of sending them and leave the snapshot untouched")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Save the current schedule as the snapshot without notifying anyone")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.sort, "sort", "page", "Order of reported entries: page, date, nim or name")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "refresh")

	return cmd
}

// readOnlySnapshots loads the real snapshot but never writes it
type readOnlySnapshots struct {
	*storage.Storage
}

func (readOnlySnapshots) Save(schedule.Snapshot) error {
	return nil
}

// runCheck is the check command logic
func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions) error {
	cfg := root.cfg

	// Validate format
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}
	order := SortOrder(strings.ToLower(opts.sort))
	if !validSortOrder(order) {
		return fmt.Errorf("invalid sort order: %s (must be 'page', 'date', 'nim' or 'name')", opts.sort)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	sc := scraper.New(cfg.TargetURL)
	logger.Debug("Checking schedule", logger.Fields{
		"url":      sc.URL(),
		"data_dir": st.snapshots.Dir(),
	})

	if opts.refresh {
		return runRefresh(cmd, sc, st.snapshots, format)
	}

	var (
		n         notifier.Notifier
		snapshots watcher.SnapshotStore = st.snapshots
	)
	if opts.dryRun {
		signer := token.NewSigner(cfg.SecretKey, token.UnsubscribeSalt)
		if signer == nil {
			logger.Warn("SECRET_KEY not set, dry-run unsubscribe links are not valid", nil)
			signer = token.NewSigner("dry-run", token.UnsubscribeSalt)
		}
		n = notifier.NewDryRunNotifier(st.subscribers, newComposer(cfg, signer), cmd.ErrOrStderr())
		snapshots = readOnlySnapshots{st.snapshots}
	} else {
		if err := cfg.ValidateSMTP(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		signer, err := newSigner(cfg)
		if err != nil {
			return err
		}
		n = notifier.NewEmailNotifier(st.subscribers, newSMTPTransport(cfg), newComposer(cfg, signer))
	}

	w := watcher.New(sc, snapshots, n, watcher.Options{Interval: cfg.CheckInterval()})
	cycle, err := w.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	entries := slices.Clone(cycle.NewEntries)
	sortRecords(entries, order)

	result := &OutputResult{
		CheckedAt:  cycle.StartedAt.UTC(),
		Source:     sc.URL(),
		Records:    cycle.Records,
		NewEntries: entries,
		EntryCount: len(entries),
		Bootstrap:  cycle.Bootstrap,
		Aborted:    cycle.Aborted,
		Saved:      cycle.Saved && !opts.dryRun,
	}
	if cycle.AbortErr != nil {
		result.Error = cycle.AbortErr.Error()
	}
	if cycle.Report != nil {
		result.Notified = cycle.Report.Sent()
		result.Failed = len(cycle.Report.Failed())
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, root.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if cycle.Aborted {
		return fmt.Errorf("check aborted: %w", cycle.AbortErr)
	}
	if cycle.NotifyErr != nil {
		return fmt.Errorf("notifying subscribers: %w", cycle.NotifyErr)
	}

	// Set exit code based on whether new entries were found
	if len(entries) > 0 {
		return &exitError{code: ExitNewEntries}
	}
	return nil
}

// runRefresh stores the current schedule as the baseline, e.g. before the
// first serve so subscribers are not sent the whole schedule.
func runRefresh(cmd *cobra.Command, sc *scraper.Scraper, snapshots *storage.Storage, format OutputFormat) error {
	records, err := sc.FetchRecords(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching schedule: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("fetching schedule: %w", watcher.ErrNoData)
	}

	if err := snapshots.Save(records); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logger.Info("Snapshot refreshed", logger.Fields{"records": len(records), "path": snapshots.Path()})

	if format == FormatText {
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot refreshed successfully (%d entries).\n", len(records))
		return nil
	}
	return WriteOutput(cmd.OutOrStdout(), &OutputResult{
		CheckedAt: time.Now().UTC(),
		Source:    sc.URL(),
		Records:   len(records),
		Saved:     true,
	}, format, false)
}
