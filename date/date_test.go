package date

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestNew_Normalizes(t *testing.T) {
	if got, want := New(2025, 2, 30), New(2025, 3, 2); got != want {
		t.Errorf("New(2025, 2, 30) = %v, want %v", got, want)
	}
}

func TestOf(t *testing.T) {
	loc := time.FixedZone("east", 10*3600)
	saved := time.Local
	time.Local = loc
	defer func() { time.Local = saved }()

	// 20:00 UTC on the 1st is already the 2nd in a UTC+10 zone.
	instant := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	if got, want := Of(instant), New(2025, 3, 2); got != want {
		t.Errorf("Of(%v) = %v, want %v", instant, got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2025-07-01", New(2025, 7, 1), false},
		{"2025-7-1", New(2025, 7, 1), false},
		{"01/07/2025", Date{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	d := New(2024, 12, 31)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-12-31"` {
		t.Errorf("Marshal() = %s, want %q", data, "2024-12-31")
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != d {
		t.Errorf("Unmarshal() = %v, want %v", back, d)
	}
}

func TestJSON_Timestamp(t *testing.T) {
	saved := time.Local
	time.Local = time.UTC
	defer func() { time.Local = saved }()

	var d Date
	if err := json.Unmarshal([]byte(`"2024-05-06T23:30:00Z"`), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if want := New(2024, 5, 6); d != want {
		t.Errorf("Unmarshal() = %v, want %v", d, want)
	}
}

func TestIsZero(t *testing.T) {
	var d Date
	if !d.IsZero() {
		t.Error("zero Date should be zero")
	}
	if Today().IsZero() {
		t.Error("Today() should not be zero")
	}
}

func TestBeforeAfter(t *testing.T) {
	d := New(2025, 7, 31)
	next := New(2025, 8, 1)
	if !d.Before(next) || d.After(next) {
		t.Errorf("%v should be before %v", d, next)
	}
	if !next.After(d) || next.Before(d) {
		t.Errorf("%v should be after %v", next, d)
	}
	if d.Before(d) || d.After(d) {
		t.Errorf("%v is neither before nor after itself", d)
	}
}
