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
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestNewNormalizes(t *testing.T) {
	if got, want := New(2025, 2, 30), New(2025, 3, 2); got != want {
		t.Errorf("New(2025, 2, 30) = %v want %v", got, want)
	}
	if got, want := New(2025, 12, 31).Add(1), New(2026, 1, 1); got != want {
		t.Errorf("Add(1) = %v want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2025-07-01", New(2025, time.July, 1), false},
		{"2025-7-1", New(2025, time.July, 1), false},
		{"01/07/2025", Date{}, true},
		{"", Date{}, true},
	}
	for _, tc := range testCases {
		got, err := Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestJSON(t *testing.T) {
	d := New(2025, 1, 2)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2025-01-02"` {
		t.Errorf("Marshal() = %s want %q", b, "2025-01-02")
	}
	var got Date
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != d {
		t.Errorf("Unmarshal() = %v want %v", got, d)
	}
}

func TestScan(t *testing.T) {
	testCases := []struct {
		name string
		src  any
		want Date
	}{
		{"null", nil, Date{}},
		{"string", "2025-03-04", New(2025, 3, 4)},
		{"bytes", []byte("2025-03-04"), New(2025, 3, 4)},
		{"timestamp string", "2025-03-04T00:00:00Z", New(2025, 3, 4)},
		{"time", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), New(2025, 3, 4)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Date
			if err := got.Scan(tc.src); err != nil {
				t.Fatalf("Scan(%v) error = %v", tc.src, err)
			}
			if got != tc.want {
				t.Errorf("Scan(%v) = %v want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	closed := Range{From: New(2025, 1, 1), To: New(2025, 1, 31)}
	open := Range{From: New(2025, 2, 1)}

	testCases := []struct {
		r    Range
		on   Date
		want bool
	}{
		{closed, New(2024, 12, 31), false},
		{closed, New(2025, 1, 1), true},
		{closed, New(2025, 1, 31), true},
		{closed, New(2025, 2, 1), false},
		{open, New(2025, 1, 31), false},
		{open, New(2030, 1, 1), true},
	}
	for _, tc := range testCases {
		if got := tc.r.Contains(tc.on); got != tc.want {
			t.Errorf("%v.Contains(%v) = %v want %v", tc.r, tc.on, got, tc.want)
		}
	}
}
