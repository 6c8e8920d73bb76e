package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// EncodeASPeCt renders records in the structured domain form: metadata
// preamble (when voyage has any populated member), marker, the full header and
// one row per record. This is the form DecodeASPeCt round-trips.
func EncodeASPeCt(voyage *domain.VoyageMetadata, records []domain.Observation) string {
	var sb strings.Builder

	if voyage != nil && !voyage.IsZero() {
		sb.WriteString(encodePreamble(voyage))
		sb.WriteByte('\n')
	}
	sb.WriteString(SectionMarker)
	sb.WriteByte('\n')

	names := make([]string, len(aspectFields))
	for i, f := range aspectFields {
		names[i] = f.name
	}
	sb.WriteString(strings.Join(names, aspectSeparator))
	sb.WriteByte('\n')

	row := make([]string, len(aspectFields))
	for i := range records {
		for j, f := range aspectFields {
			row[j] = aspectCell(f.get(&records[i]))
		}
		sb.WriteString(strings.Join(row, aspectSeparator))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// aspectCell keeps a value on one line and out of the separator.
func aspectCell(s string) string {
	s = lineBreakRe.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, aspectSeparator, ",")
}

type preambleOut struct {
	Name      string `json:"name,omitempty"`
	Leader    string `json:"voyage_leader,omitempty"`
	Captain   string `json:"captain_name,omitempty"`
	Vessel    string `json:"voyage_vessel,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

func encodePreamble(v *domain.VoyageMetadata) string {
	b, err := json.Marshal(preambleOut{
		Name:      v.Name,
		Leader:    v.Leader,
		Captain:   v.Captain,
		Vessel:    v.Vessel,
		StartDate: formatMetaDate(v.StartDate),
		EndDate:   formatMetaDate(v.EndDate),
	})
	if err != nil {
		// Only string members; Marshal cannot fail.
		panic(err)
	}
	return string(b)
}

func formatMetaDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// reportMeta lists the metadata block lines in order.
var reportMeta = []struct {
	label string
	get   func(v *domain.VoyageMetadata) string
}{
	{"Voyage", func(v *domain.VoyageMetadata) string { return v.Name }},
	{"Voyage Leader", func(v *domain.VoyageMetadata) string { return v.Leader }},
	{"Captain", func(v *domain.VoyageMetadata) string { return v.Captain }},
	{"Vessel", func(v *domain.VoyageMetadata) string { return v.Vessel }},
	{"Start Date", func(v *domain.VoyageMetadata) string { return formatMetaDate(v.StartDate) }},
	{"End Date", func(v *domain.VoyageMetadata) string { return formatMetaDate(v.EndDate) }},
}

// EncodeASPeCtReport renders a human-readable report: the populated metadata
// lines, the section label, then one block per record listing only populated
// fields. Reports carry no marker or header and do not decode back.
func EncodeASPeCtReport(voyage *domain.VoyageMetadata, records []domain.Observation) string {
	var sb strings.Builder

	if voyage != nil {
		for _, m := range reportMeta {
			if v := m.get(voyage); v != "" {
				fmt.Fprintf(&sb, "%s: %s\n", m.label, aspectCell(v))
			}
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(SectionLabel)
	sb.WriteByte('\n')

	for i := range records {
		fmt.Fprintf(&sb, "\nObservation %d\n", i+1)
		for _, f := range aspectFields {
			if v := f.get(&records[i]); v != "" {
				fmt.Fprintf(&sb, "  %s: %s\n", f.name, lineBreakRe.ReplaceAllString(v, " "))
			}
		}
	}
	return sb.String()
}
