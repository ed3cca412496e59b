package scoring

import (
	"testing"
	"time"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    float64
		wantErr bool
	}{
		{"float64", 42.5, 42.5, false},
		{"int", 7, 7, false},
		{"int64", int64(9), 9, false},
		{"numeric string", "88.8", 88.8, false},
		{"padded string", "  12 ", 12, false},
		{"empty string", "", 0, true},
		{"word", "high", 0, true},
		{"nil", nil, 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToNumber(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToNumber(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
		want   time.Time
	}{
		{"2024-03-15", true, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00Z", true, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"03/15/2024", true, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"not-a-date", false, time.Time{}},
		{"15th of March", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
