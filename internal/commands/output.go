package commands

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/core/history"
	"github.com/colonyops/tracksync/internal/core/styles"
	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/internal/printer"
)

func printSyncResult(p *printer.Printer, res app.SyncResult) {
	s := res.Stats
	if res.Entry.DryRun {
		p.Headerf("Dry run (%s)", res.Entry.Duration().Round(time.Millisecond))
		for _, a := range res.Actions {
			p.Printf("  would %s #%d %s", a.Op, a.Number, styles.MutedStyle.Render(a.Title))
		}
	} else {
		p.Headerf("Sync finished (%s)", res.Entry.Duration().Round(time.Millisecond))
	}

	p.Successf("%d created, %d adopted, %d updated", s.Created, s.Adopted, s.Updated)
	p.Infof("%d unchanged", s.Skipped)
	if s.Failed == 0 {
		return
	}

	p.Errorf("%d failed", s.Failed)
	for _, f := range s.Failures {
		p.Printf("  %s %s: %s", styles.ErrorStyle.Render(f.Action), f.Key, f.Error)
	}
	p.Printf("Failed items are retried on the next sync.")
}

func printStatistics(w io.Writer, stats tracking.Statistics) {
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render(fmt.Sprintf("%d tracked item(s)", stats.Total)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range tracking.AllStatuses {
		_, _ = fmt.Fprintf(tw, "  %s\t%d\n", styles.StatusStyle(st).Render(string(st)), stats.ByStatus[st])
	}
	_, _ = fmt.Fprintln(tw, "\t")
	for t, n := range sortedCounts(stats.ByType) {
		_, _ = fmt.Fprintf(tw, "  %s\t%d\n", t, n)
	}
	for sid, n := range sortedCounts(stats.BySession) {
		_, _ = fmt.Fprintf(tw, "  session %s\t%d\n", sid, n)
	}
	_ = tw.Flush()
}

func printRecords(w io.Writer, records []tracking.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSOURCE\tSTATUS\tATTEMPTS\tISSUE")
	for _, r := range records {
		issue := "-"
		if r.GitHub != nil {
			issue = fmt.Sprintf("#%d", r.GitHub.IssueNumber)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Source.Key(), styles.StatusStyle(r.Status).Render(string(r.Status)), r.SyncAttempts, issue)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tSCOPE\tCREATED\tUPDATED\tSKIPPED\tFAILED")
	for _, e := range entries {
		failed := fmt.Sprint(e.FailedN)
		if e.Failed() {
			failed = styles.ErrorStyle.Render(failed)
		}
		id := e.ID
		if e.DryRun {
			id += " (dry)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%d\t%d\t%s\n",
			id, e.StartedAt.Local().Format("2006-01-02 15:04"), e.Scope, e.Created+e.Adopted, e.Updated, e.Skipped, failed)
	}
	_ = tw.Flush()
}

// sortedCounts yields the entries of m in key order.
func sortedCounts[K ~string](m map[K]int) iter.Seq2[K, int] {
	return func(yield func(K, int) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
