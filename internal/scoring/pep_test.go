package scoring

import (
	"testing"

	"github.com/opensource-finance/shrike/internal/domain"
)

func TestExtractPEPInfo(t *testing.T) {
	tests := []struct {
		name      string
		attrs     []domain.Attribute
		wantPEP   bool
		wantCodes []string
		wantLevel string
	}{
		{
			name:    "no attributes",
			attrs:   nil,
			wantPEP: false,
		},
		{
			name: "non-pep attributes only",
			attrs: []domain.Attribute{
				{CodeType: "RMK", Value: "some remark"},
			},
			wantPEP: false,
		},
		{
			name: "position with level",
			attrs: []domain.Attribute{
				{CodeType: "PTY", Value: "HOS:L5"},
			},
			wantPEP:   true,
			wantCodes: []string{"HOS"},
			wantLevel: "L5",
		},
		{
			name: "bare position code",
			attrs: []domain.Attribute{
				{CodeType: "PTY", Value: "FAM"},
			},
			wantPEP:   true,
			wantCodes: []string{"FAM"},
			wantLevel: "",
		},
		{
			name: "highest level wins",
			attrs: []domain.Attribute{
				{CodeType: "PTY", Value: "MUN:L2"},
				{CodeType: "PLV", Value: "L4"},
				{CodeType: "PTY", Value: "CAB:L3"},
			},
			wantPEP:   true,
			wantCodes: []string{"MUN", "CAB"},
			wantLevel: "L4",
		},
		{
			name: "rating with date suffix",
			attrs: []domain.Attribute{
				{CodeType: "PRT", Value: "C:01/02/2023"},
			},
			wantPEP: true,
		},
		{
			name: "malformed values skipped",
			attrs: []domain.Attribute{
				{CodeType: "PLV", Value: "L9"}, // no such level
				{CodeType: "PRT", Value: "Z"},  // no such rating
				{CodeType: "PTY", Value: ""},
			},
			wantPEP: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ExtractPEPInfo(tt.attrs)
			if info.IsPEP != tt.wantPEP {
				t.Errorf("IsPEP = %v, want %v", info.IsPEP, tt.wantPEP)
			}
			if info.HighestLevel != tt.wantLevel {
				t.Errorf("HighestLevel = %q, want %q", info.HighestLevel, tt.wantLevel)
			}
			if len(tt.wantCodes) > 0 {
				if len(info.Codes) != len(tt.wantCodes) {
					t.Fatalf("Codes = %v, want %v", info.Codes, tt.wantCodes)
				}
				for i, c := range tt.wantCodes {
					if info.Codes[i] != c {
						t.Errorf("Codes[%d] = %q, want %q", i, info.Codes[i], c)
					}
				}
			}
		})
	}
}

func TestExtractPEPInfoDeduplicates(t *testing.T) {
	attrs := []domain.Attribute{
		{CodeType: "PTY", Value: "HOS:L5"},
		{CodeType: "PTY", Value: "HOS:L5"},
		{CodeType: "PRT", Value: "A:01/01/2024"},
		{CodeType: "PRT", Value: "A:06/01/2024"},
	}

	info := ExtractPEPInfo(attrs)
	if len(info.Codes) != 1 {
		t.Errorf("Codes = %v, want single HOS", info.Codes)
	}
	if len(info.Ratings) != 1 {
		t.Errorf("Ratings = %v, want single A", info.Ratings)
	}
}

func TestPEPRatingScore(t *testing.T) {
	tests := []struct {
		rating string
		want   float64
	}{
		{"A", 90},
		{"B", 75},
		{"C", 60},
		{"D", 45},
		{"a", 90},
		{"Z", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := PEPRatingScore(tt.rating); got != tt.want {
			t.Errorf("PEPRatingScore(%q) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestPEPTypeDescription(t *testing.T) {
	if got := PEPTypeDescription("HOS"); got != "Head of State" {
		t.Errorf("PEPTypeDescription(HOS) = %q", got)
	}
	// Unknown codes come back unchanged.
	if got := PEPTypeDescription("XYZ"); got != "XYZ" {
		t.Errorf("PEPTypeDescription(XYZ) = %q, want XYZ", got)
	}
}
