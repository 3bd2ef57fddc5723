package brokerfeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/etnz/brokerfeed/date"
	"github.com/etnz/brokerfeed/logger"
)

func snapshot(day date.Date, account, currency string, total string) HistorySnapshot {
	return HistorySnapshot{Date: day, AccountID: account, Currency: currency, Cash: dec(total), HoldingsValue: dec("0"), Total: dec(total)}
}

func TestDetermineState(t *testing.T) {
	today := date.New(2025, 6, 10)
	yesterday := today.Add(-1)
	tests := []struct {
		name    string
		entries []HistorySnapshot
		want    State
	}{
		{"empty log", nil, State{}},
		{"only past entries", []HistorySnapshot{snapshot(yesterday, "a", "USD", "1")}, State{Start: 1, End: 1}},
		{
			"entries today",
			[]HistorySnapshot{
				snapshot(yesterday, "a", "USD", "1"),
				snapshot(today, "a", "USD", "2"),
				snapshot(today, "b", "USD", "3"),
			},
			State{HasEntryToday: true, Start: 1, End: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineState(tt.entries, today); got != tt.want {
				t.Errorf("DetermineState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplaceRange(t *testing.T) {
	d := date.New(2025, 1, 1)
	entries := []HistorySnapshot{snapshot(d, "a", "USD", "1"), snapshot(d, "b", "USD", "2")}
	got, err := ReplaceRange(entries, 1, 2, []HistorySnapshot{snapshot(d, "c", "USD", "3"), snapshot(d, "d", "USD", "4")})
	if err != nil {
		t.Fatalf("ReplaceRange() error = %v", err)
	}
	var ids string
	for _, e := range got {
		ids += e.AccountID
	}
	if ids != "acd" {
		t.Errorf("ReplaceRange() accounts = %q, want %q", ids, "acd")
	}
	if _, err := ReplaceRange(entries, 2, 1, nil); err == nil {
		t.Error("ReplaceRange() with end < start should fail")
	}
	if _, err := ReplaceRange(entries, 0, 3, nil); err == nil {
		t.Error("ReplaceRange() past the end should fail")
	}
}

// newUpserter returns an Upserter on a memory log whose clock is at 'now'.
func newUpserter(now *time.Time) (*Upserter, *MemoryLog) {
	log := new(MemoryLog)
	return &Upserter{
		History: log,
		Now:     func() time.Time { return *now },
		Logger:  logger.Discard(),
	}, log
}

func TestUpserter_Idempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	u, log := newUpserter(&now)

	accounts := []Account{{ID: "a"}, {ID: "b"}}
	payloads := map[string]Payload{
		"a": payload(t, `{"balances": [{"cash": 10, "currency": "USD"}, {"cash": 5, "currency": "CAD"}]}`),
		"b": payload(t, `{}`),
	}

	res, err := u.Write(ctx, accounts, payloads)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if res.Previous.HasEntryToday {
		t.Errorf("first Write() state = %v, want NoEntryToday", res.Previous)
	}

	// later the same day, with new values
	now = now.Add(3 * time.Hour)
	payloads["a"] = payload(t, `{"balances": [{"cash": 20, "currency": "USD"}, {"cash": 5, "currency": "CAD"}]}`)
	res, err = u.Write(ctx, accounts, payloads)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !res.Previous.HasEntryToday {
		t.Errorf("second Write() state = %v, want HasEntryToday", res.Previous)
	}

	entries, _ := log.Entries(ctx)
	if len(entries) != 3 {
		t.Fatalf("log has %d entries, want 3 (one per account-currency): %v", len(entries), entries)
	}
	for _, e := range entries {
		if e.AccountID == "a" && e.Currency == "USD" && !e.Total.Equal(dec("20")) {
			t.Errorf("latest capture should win, got total %v", e.Total)
		}
		if !e.CapturedAt.Equal(now) {
			t.Errorf("entry captured at %v, want %v", e.CapturedAt, now)
		}
	}
}

func TestUpserter_PastIsImmutable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	u, log := newUpserter(&now)
	past := []HistorySnapshot{
		snapshot(date.New(2025, 6, 8), "a", "USD", "1"),
		snapshot(date.New(2025, 6, 9), "a", "USD", "2"),
	}
	if err := log.ReplaceRange(ctx, 0, 0, past); err != nil {
		t.Fatal(err)
	}

	accounts := []Account{{ID: "a"}}
	for i := 0; i < 3; i++ {
		p := payload(t, `{"balances": [{"cash": 99}]}`)
		if _, err := u.Write(ctx, accounts, map[string]Payload{"a": p}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, _ := log.Entries(ctx)
	if len(entries) != 3 {
		t.Fatalf("log has %d entries, want 3: %v", len(entries), entries)
	}
	for i, e := range past {
		if entries[i].Date != e.Date || !entries[i].Total.Equal(e.Total) {
			t.Errorf("past entry %d modified: %+v, want %+v", i, entries[i], e)
		}
	}
	if entries[2].Date != date.New(2025, 6, 10) {
		t.Errorf("today's entry dated %v", entries[2].Date)
	}
}

func TestUpserter_FailedAccountKeepsTodayRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	u, log := newUpserter(&now)
	accounts := []Account{{ID: "a"}, {ID: "b"}}

	first := map[string]Payload{
		"a": payload(t, `{"balances": [{"cash": 1}]}`),
		"b": payload(t, `{"balances": [{"cash": 2}]}`),
	}
	if _, err := u.Write(ctx, accounts, first); err != nil {
		t.Fatal(err)
	}
	second := map[string]Payload{"a": payload(t, `{"balances": [{"cash": 10}]}`), "b": nil}
	res, err := u.Write(ctx, accounts, second)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != "b" {
		t.Errorf("Write().Failed = %v, want account b", res.Failed)
	}

	entries, _ := log.Entries(ctx)
	totals := make(map[string]string)
	for _, e := range entries {
		totals[e.AccountID] = e.Total.String()
	}
	if len(entries) != 2 || totals["a"] != "10" || totals["b"] != "2" {
		t.Errorf("entries = %v, want a=10 and b=2", totals)
	}
}

func TestUpserter_NoData(t *testing.T) {
	now := time.Now()
	u, log := newUpserter(&now)
	_, err := u.Write(context.Background(), []Account{{ID: "a"}}, map[string]Payload{"a": nil})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Write() error = %v, want ErrNoData", err)
	}
	if entries, _ := log.Entries(context.Background()); len(entries) != 0 {
		t.Errorf("log written despite no data: %v", entries)
	}
}

func TestUpserter_Fetch(t *testing.T) {
	now := time.Now()
	u, log := newUpserter(&now)
	var fetched []Account
	u.Fetch = func(ctx context.Context, accounts []Account) map[string]Payload {
		fetched = accounts
		return map[string]Payload{"a": {}}
	}
	if _, err := u.Write(context.Background(), []Account{{ID: "a"}}, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(fetched) != 1 {
		t.Errorf("Fetch called with %v", fetched)
	}
	entries, _ := log.Entries(context.Background())
	if len(entries) != 1 || entries[0].Currency != "USD" {
		t.Errorf("entries = %v, want one USD zero row", entries)
	}
}

func TestUpserter_SharedLog(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	log := new(MemoryLog)
	accounts := []Account{{ID: "a"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		u := &Upserter{History: log, Now: func() time.Time { return now }, Logger: logger.Discard()}
		p := payload(t, `{"balances": [{"cash": 1}]}`)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := u.Write(ctx, accounts, map[string]Payload{"a": p}); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}()
	}
	wg.Wait()

	entries, _ := log.Entries(ctx)
	if len(entries) != 1 {
		t.Errorf("rows for today after concurrent same day snapshots = %d, want 1", len(entries))
	}
}

func TestMemoryLog_UpdateError(t *testing.T) {
	ctx := context.Background()
	log := new(MemoryLog)
	if err := log.ReplaceRange(ctx, 0, 0, []HistorySnapshot{snapshot(date.New(2025, 1, 1), "a", "USD", "1")}); err != nil {
		t.Fatal(err)
	}
	errEdit := errors.New("cancelled")
	err := log.Update(ctx, func(entries []HistorySnapshot) (int, int, []HistorySnapshot, error) {
		return 0, len(entries), nil, errEdit
	})
	if !errors.Is(err, errEdit) {
		t.Errorf("Update() error = %v, want %v", err, errEdit)
	}
	if entries, _ := log.Entries(ctx); len(entries) != 1 {
		t.Errorf("failed Update() changed the log: %v", entries)
	}
}
