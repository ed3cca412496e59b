package scoring

import (
	"sort"
	"strings"

	"github.com/opensource-finance/shrike/internal/domain"
)

// PEP indicators arrive as entity attributes in three layouts:
//
//	PTY  "HOS:L5"        position code, optionally with a level suffix
//	PRT  "C:01/02/2023"  rating letter with the rating date
//	PLV  "L3"            bare level
//
// pepTypeDescriptions covers the known position codes.
var pepTypeDescriptions = map[string]string{
	"HOS": "Head of State",
	"CAB": "Cabinet Official",
	"INF": "Senior Infrastructure Official",
	"NIO": "Senior Non-Infrastructure Official",
	"MUN": "Municipal Official",
	"REG": "Regional Official",
	"LEG": "Senior Legislative Official",
	"AMB": "Ambassador",
	"MIL": "Senior Military Figure",
	"JUD": "Senior Judicial Figure",
	"POL": "Political Party Figure",
	"ISO": "International Sporting Official",
	"GOE": "Government Owned Enterprise Official",
	"GCO": "Government Controlled Official",
	"IGO": "International Government Organization Official",
	"FAM": "Family Member",
	"ASC": "Close Associate",
}

// PEPTypeDescription returns the human-readable label for a position code.
func PEPTypeDescription(code string) string {
	if d, ok := pepTypeDescriptions[strings.ToUpper(code)]; ok {
		return d
	}
	return code
}

// pepRatingScores maps PRT rating letters to numeric scores.
var pepRatingScores = map[string]float64{
	"A": 90, "B": 75, "C": 60, "D": 45,
}

// PEPRatingScore returns the numeric score for a PRT rating letter, 0 for
// unknown ratings.
func PEPRatingScore(rating string) float64 {
	return pepRatingScores[strings.ToUpper(strings.TrimSpace(rating))]
}

// levelRank orders PEP levels L1 (lowest) through L6 (highest).
func levelRank(level string) int {
	switch strings.ToUpper(level) {
	case "L1":
		return 1
	case "L2":
		return 2
	case "L3":
		return 3
	case "L4":
		return 4
	case "L5":
		return 5
	case "L6":
		return 6
	default:
		return 0
	}
}

// ExtractPEPInfo parses the PEP indicators out of an entity's attributes.
// Unknown code types and malformed values are skipped, never an error.
func ExtractPEPInfo(attrs []domain.Attribute) *domain.PEPInfo {
	info := &domain.PEPInfo{}
	seenCodes := make(map[string]bool)
	seenLevels := make(map[string]bool)
	seenRatings := make(map[string]bool)

	for _, a := range attrs {
		value := strings.TrimSpace(a.Value)
		if value == "" {
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(a.CodeType)) {
		case "PTY":
			code := value
			level := ""
			if idx := strings.Index(value, ":"); idx >= 0 {
				code = value[:idx]
				level = strings.TrimSpace(value[idx+1:])
			}
			code = strings.ToUpper(strings.TrimSpace(code))
			if code != "" && !seenCodes[code] {
				seenCodes[code] = true
				info.Codes = append(info.Codes, code)
			}
			if levelRank(level) > 0 && !seenLevels[strings.ToUpper(level)] {
				seenLevels[strings.ToUpper(level)] = true
				info.Levels = append(info.Levels, strings.ToUpper(level))
			}
		case "PRT":
			rating := value
			if idx := strings.Index(value, ":"); idx >= 0 {
				rating = value[:idx]
			}
			rating = strings.ToUpper(strings.TrimSpace(rating))
			if _, ok := pepRatingScores[rating]; ok && !seenRatings[rating] {
				seenRatings[rating] = true
				info.Ratings = append(info.Ratings, rating)
			}
		case "PLV":
			level := strings.ToUpper(value)
			if levelRank(level) > 0 && !seenLevels[level] {
				seenLevels[level] = true
				info.Levels = append(info.Levels, level)
			}
		}
	}

	sort.Slice(info.Levels, func(i, j int) bool {
		return levelRank(info.Levels[i]) > levelRank(info.Levels[j])
	})
	if len(info.Levels) > 0 {
		info.HighestLevel = info.Levels[0]
	}
	info.IsPEP = len(info.Codes) > 0 || len(info.Levels) > 0 || len(info.Ratings) > 0

	return info
}
