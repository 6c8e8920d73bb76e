package codec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format identifies a text encoding of observations.
type Format string

const (
	// FormatTabular is the generic comma-delimited spreadsheet format.
	FormatTabular Format = "tabular"
	// FormatASPeCt is the line-oriented, marker-sectioned domain format.
	FormatASPeCt Format = "aspect"
	// FormatReport is the human-readable ASPeCt report. Export only.
	FormatReport Format = "report"
)

// ErrUnrecognizedFormat is returned by ParseFormat for unknown names. Detect
// never returns it; unknown input falls back to FormatTabular.
var ErrUnrecognizedFormat = errors.New("unrecognized format")

// voyageFileRe matches the voyage file naming convention: an 8-digit date, a
// 2-letter vessel code and a sequence number, without extension.
var voyageFileRe = regexp.MustCompile(`^\d{8}[A-Za-z]{2}\d+$`)

// Detect chooses the codec for a file from its name and content:
//  1. voyage file name pattern -> ASPeCt
//  2. ".csv" extension         -> tabular
//  3. content has the marker   -> ASPeCt
//  4. otherwise                -> tabular
func Detect(filename, content string) Format {
	base := baseName(filename)
	if voyageFileRe.MatchString(base) {
		return FormatASPeCt
	}
	if strings.HasSuffix(strings.ToLower(base), ".csv") {
		return FormatTabular
	}
	if strings.Contains(content, SectionMarker) {
		return FormatASPeCt
	}
	return FormatTabular
}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tabular", "csv":
		return FormatTabular, nil
	case "aspect", "domain", "txt":
		return FormatASPeCt, nil
	case "report":
		return FormatReport, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, s)
	}
}

// baseName strips any directory part, accepting both separators since upload
// clients may send Windows paths.
func baseName(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
