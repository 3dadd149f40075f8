package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// LedgerView is the merged, sorted timeline plus the sources that failed to load.
type LedgerView struct {
	Entries         []Entry
	Summary         LedgerSummary
	DegradedSources []SourceKind
}

// Ledger merges every entry source into one timeline, newest first.
// A failing source contributes nothing and is reported in DegradedSources.
func (service *Service) Ledger(ctx context.Context, query LedgerQuery) (LedgerView, error) {
	sources := service.sources
	if len(sources) == 0 {
		sources = DefaultEntrySources()
	}
	results := make([][]Entry, len(sources))
	failures := make([]error, len(sources))

	var group errgroup.Group
	for index, source := range sources {
		index, source := index, source
		group.Go(func() error {
			entries, err := source.Entries(ctx, service.store, query.Window)
			if err != nil {
				failures[index] = WrapError(operationLedger, string(source.Kind()), "load", err)
				return nil
			}
			results[index] = entries
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return LedgerView{}, err
	}

	view := LedgerView{}
	var merged []Entry
	for index, source := range sources {
		if failures[index] != nil {
			view.DegradedSources = append(view.DegradedSources, source.Kind())
			service.recordSourceFailure(source.Kind())
			service.logOperation(ctx, OperationLog{
				Operation: operationLedger,
				Source:    source.Kind(),
				Status:    operationStatusDegraded,
				Error:     failures[index],
			})
			continue
		}
		merged = append(merged, results[index]...)
	}

	merged = filterBySubject(merged, query.Subject)
	SortEntries(merged)
	view.Entries = merged
	view.Summary = Summarize(merged)

	if degraded := multierr.Combine(failures...); degraded != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operationLedger,
			Status:    operationStatusDegraded,
			Error:     degraded,
		})
	}
	return view, nil
}

// SortEntries orders entries newest first by SortTime, ties by ascending id.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(left int, right int) bool {
		leftTime, rightTime := entries[left].SortTime(), entries[right].SortTime()
		if !leftTime.Equal(rightTime) {
			return leftTime.After(rightTime)
		}
		return entries[left].ID < entries[right].ID
	})
}

// Summarize totals incoming and outgoing amounts.
func Summarize(entries []Entry) LedgerSummary {
	summary := LedgerSummary{TotalIn: decimal.Zero, TotalOut: decimal.Zero}
	for _, entry := range entries {
		if entry.Direction == DirectionIn {
			summary.TotalIn = summary.TotalIn.Add(entry.Amount)
		} else {
			summary.TotalOut = summary.TotalOut.Add(entry.Amount)
		}
	}
	summary.Net = summary.TotalIn.Sub(summary.TotalOut)
	return summary
}

func filterBySubject(entries []Entry, subject Subject) []Entry {
	if subject.IsZero() {
		return entries
	}
	filtered := entries[:0]
	for _, entry := range entries {
		if entry.Subject == subject {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
