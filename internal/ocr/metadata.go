package ocr

import (
	"regexp"
	"strings"

	"otogram/pkg/models"
)

// Jacoti footers read like "Made with Jacoti Hearing Center - 2023-06-14 09:41".
// The device name doubles as the location field; separately labelled
// locations never appear in the footers we have seen.
var (
	footerPattern = regexp.MustCompile(`(?i)made with\s+(.+?)\s*[-–]\s*(\d{4}[-/]\d{2}[-/]\d{2})\s+(\d{1,2}:\d{2})`)
	datePattern   = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}`)
	timePattern   = regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`)
)

// ParseFooter pulls test metadata out of OCR'd footer text. It never
// fails: unmatched fields stay nil and the raw text is kept so a reviewer
// can recover whatever the regexes missed.
func ParseFooter(text string) models.Metadata {
	meta := models.Metadata{RawFooterText: text}
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return meta
	}

	if m := footerPattern.FindStringSubmatch(normalized); m != nil {
		device := strings.TrimSpace(m[1])
		date := normalizeDate(m[2])
		testTime := m[3]
		meta.Device = &device
		meta.Location = &device
		meta.TestDate = &date
		meta.Time = &testTime
		return meta
	}

	// Degraded OCR often mangles the "Made with" prefix but leaves the
	// date readable. Grab what we can.
	if d := datePattern.FindString(normalized); d != "" {
		date := normalizeDate(d)
		meta.TestDate = &date
		if t := timePattern.FindString(normalized); t != "" {
			meta.Time = &t
		}
	}
	return meta
}

func normalizeDate(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}
