package codec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// ImportResult is the output of a decode: accepted observations in file
// order, row-level errors in file order, and voyage metadata when an ASPeCt
// preamble supplied it.
type ImportResult struct {
	Format       Format                 `json:"format"`
	Observations []domain.Observation   `json:"observations"`
	Errors       []domain.RowError      `json:"errors"`
	Voyage       *domain.VoyageMetadata `json:"voyage,omitempty"`
}

// OK reports whether every row was accepted.
func (r ImportResult) OK() bool { return len(r.Errors) == 0 }

func (r *ImportResult) reject(line int, err error) {
	r.Errors = append(r.Errors, domain.NewRowError(line, err))
}

// Decode detects the format of a file and decodes it.
func Decode(filename, content string) ImportResult {
	if Detect(filename, content) == FormatASPeCt {
		return DecodeASPeCt(content)
	}
	return DecodeTabular(content)
}

// Encode renders records in the given format. The voyage is only used by the
// ASPeCt encodings.
func Encode(format Format, voyage *domain.VoyageMetadata, records []domain.Observation) (string, error) {
	switch format {
	case FormatTabular:
		return EncodeTabular(records), nil
	case FormatASPeCt:
		return EncodeASPeCt(voyage, records), nil
	case FormatReport:
		return EncodeASPeCtReport(voyage, records), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, format)
	}
}

var filenameUnsafeRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename derives a download name from the voyage name, e.g.
// "Sea Ice 2026" + tabular -> "sea_ice_2026_observations.csv".
func ExportFilename(voyage *domain.VoyageMetadata, format Format) string {
	stem := "observations"
	if voyage != nil {
		name := filenameUnsafeRe.ReplaceAllString(strings.TrimSpace(voyage.Name), "_")
		if name = strings.ToLower(strings.Trim(name, "_")); name != "" {
			stem = name + "_observations"
		}
	}

	switch format {
	case FormatTabular:
		return stem + ".csv"
	case FormatReport:
		return stem + "_report.txt"
	default:
		return stem + ".txt"
	}
}
