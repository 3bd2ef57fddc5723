package brokerfeed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/etnz/brokerfeed/date"
	"github.com/etnz/brokerfeed/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoData is returned when a history write has no refreshed account at all.
// Nothing is written in that case.
var ErrNoData = errors.New("no account could be refreshed")

// HistoryLog is the append-only daily history of account values.
//
// Entries are in chronological order. ReplaceRange replaces entries
// [start, end) with rows, appending when start and end are both the log
// length. Update does the same with a range computed from the entries it
// reads, holding the log's lock from the read to the write: two Updates on
// the same log, from the same process or not, never interleave.
type HistoryLog interface {
	Entries(ctx context.Context) ([]HistorySnapshot, error)
	ReplaceRange(ctx context.Context, start, end int, rows []HistorySnapshot) error
	Update(ctx context.Context, edit EditFunc) error
}

// EditFunc decides which range of entries to replace and by what rows.
// Returning an error cancels the update.
type EditFunc func(entries []HistorySnapshot) (start, end int, rows []HistorySnapshot, err error)

// Replace is the EditFunc of a fixed range.
func Replace(start, end int, rows []HistorySnapshot) EditFunc {
	return func([]HistorySnapshot) (int, int, []HistorySnapshot, error) { return start, end, rows, nil }
}

// MemoryLog is an in memory HistoryLog. Its zero value is ready to use.
type MemoryLog struct {
	mu      sync.Mutex
	entries []HistorySnapshot
}

func (l *MemoryLog) Entries(ctx context.Context) ([]HistorySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries), nil
}

func (l *MemoryLog) ReplaceRange(ctx context.Context, start, end int, rows []HistorySnapshot) error {
	return l.Update(ctx, Replace(start, end, rows))
}

func (l *MemoryLog) Update(ctx context.Context, edit EditFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	start, end, rows, err := edit(slices.Clone(l.entries))
	if err != nil {
		return err
	}
	entries, err := ReplaceRange(l.entries, start, end, rows)
	if err != nil {
		return err
	}
	l.entries = entries
	return nil
}

// ReplaceRange returns entries where [start, end) has been replaced by rows.
// It is the reference implementation of HistoryLog.ReplaceRange for slice
// based logs.
func ReplaceRange(entries []HistorySnapshot, start, end int, rows []HistorySnapshot) ([]HistorySnapshot, error) {
	if start < 0 || end < start || end > len(entries) {
		return entries, fmt.Errorf("invalid history range [%d, %d) for %d entries", start, end, len(entries))
	}
	out := make([]HistorySnapshot, 0, len(entries)-(end-start)+len(rows))
	out = append(out, entries[:start]...)
	out = append(out, rows...)
	out = append(out, entries[end:]...)
	return out, nil
}

// State is the state of the history log with respect to today.
type State struct {
	// HasEntryToday is true when today's snapshot already exists.
	HasEntryToday bool
	// Start and End delimit today's entries, End excluded. When there is no
	// entry today, both are the log length.
	Start, End int
}

func (s State) String() string {
	if s.HasEntryToday {
		return fmt.Sprintf("HasEntryToday[%d:%d]", s.Start, s.End)
	}
	return "NoEntryToday"
}

// DetermineState locates the contiguous run of entries dated today.
func DetermineState(entries []HistorySnapshot, today date.Date) State {
	for i, e := range entries {
		if e.Date != today {
			continue
		}
		j := i + 1
		for j < len(entries) && entries[j].Date == today {
			j++
		}
		return State{HasEntryToday: true, Start: i, End: j}
	}
	return State{Start: len(entries), End: len(entries)}
}

// FetchFunc fetches one payload per account, nil for failed accounts.
type FetchFunc func(ctx context.Context, accounts []Account) map[string]Payload

// Upserter writes the daily snapshot of account values into a HistoryLog.
//
// Whatever the number of calls in a day, the log holds a single snapshot for
// that day, the latest one. Entries of previous days are never modified.
// Upserters sharing a log are serialized by the log's Update.
type Upserter struct {
	History HistoryLog
	Fetch   FetchFunc          // used when Write is not given payloads
	Now     func() time.Time   // defaults to time.Now
	Logger  logrus.FieldLogger // defaults to logger.Default()
}

// WriteResult describes what a Write did.
type WriteResult struct {
	Previous State             // state of the log before the write
	Rows     []HistorySnapshot // rows written for today
	Failed   []Account         // accounts without fresh data
}

func (u *Upserter) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u *Upserter) log() logrus.FieldLogger {
	if u.Logger != nil {
		return u.Logger
	}
	return logger.Default()
}

// Write captures today's snapshot of accounts.
//
// payloads may carry already fetched data; when nil, Fetch is called.
// Accounts without a payload keep the rows they had earlier today, if any.
// If no account has a payload, Write returns ErrNoData and leaves the log
// untouched.
func (u *Upserter) Write(ctx context.Context, accounts []Account, payloads map[string]Payload) (WriteResult, error) {
	var res WriteResult
	if len(accounts) == 0 {
		return res, nil
	}
	if payloads == nil {
		if u.Fetch == nil {
			return res, fmt.Errorf("no payloads given and no fetch function configured")
		}
		payloads = u.Fetch(ctx, accounts)
	}
	res.Failed = Failed(accounts, payloads)
	if len(res.Failed) == len(accounts) {
		return res, ErrNoData
	}

	now := u.now()
	today := date.Of(now)
	batch := uuid.New()
	edit := func(entries []HistorySnapshot) (int, int, []HistorySnapshot, error) {
		state := DetermineState(entries, today)
		var rows []HistorySnapshot
		for _, a := range accounts {
			p := payloads[a.ID]
			if p == nil {
				// keep what was captured earlier today for that account
				for _, e := range entries[state.Start:state.End] {
					if e.AccountID == a.ID {
						rows = append(rows, e)
					}
				}
				continue
			}
			for _, row := range Aggregate(a.ID, p) {
				rows = append(rows, HistorySnapshot{
					Date:          today,
					AccountID:     row.AccountID,
					Currency:      row.Currency,
					Cash:          row.Cash,
					HoldingsValue: row.HoldingsValue,
					Total:         row.Total,
					CapturedAt:    now,
					Batch:         batch,
				})
			}
		}
		res.Previous, res.Rows = state, rows
		return state.Start, state.End, rows, nil
	}

	if err := u.History.Update(ctx, edit); err != nil {
		res.Rows = nil
		return res, fmt.Errorf("cannot write history: %w", err)
	}
	u.log().WithFields(logrus.Fields{
		"state":  res.Previous.String(),
		"rows":   len(res.Rows),
		"failed": len(res.Failed),
		"batch":  batch.String(),
	}).Info("history snapshot written")
	return res, nil
}
