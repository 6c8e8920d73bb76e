package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// SectionMarker is the literal line that opens the data section of an ASPeCt
// file. The header line follows it.
const SectionMarker = "[ASPeCt Observations]"

// SectionLabel heads the observation list in report exports. It deliberately
// differs from SectionMarker so reports are not mistaken for importable files.
const SectionLabel = "ASPeCt Observations"

const aspectSeparator = ";"

// ASPeCt header names for the required fields.
const (
	FieldDate      = "date"
	FieldTime      = "time"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

// scanState is the position of the ASPeCt line scanner.
type scanState int

const (
	statePreamble scanState = iota
	stateAwaitMarker
	stateAwaitHeader
	stateReadingRows
)

func (s scanState) String() string {
	switch s {
	case statePreamble:
		return "preamble"
	case stateAwaitMarker:
		return "await_marker"
	case stateAwaitHeader:
		return "await_header"
	case stateReadingRows:
		return "reading_rows"
	default:
		return "unknown"
	}
}

// aspectScanner decodes one ASPeCt file line by line.
type aspectScanner struct {
	state  scanState
	header []*fieldDescriptor // column position -> descriptor, nil for unknown names
	res    ImportResult
}

// DecodeASPeCt decodes the line-oriented domain format:
//
//	<optional one-line JSON metadata object>
//	[ASPeCt Observations]
//	date;time;latitude;longitude;...
//	2026-01-01;12:00;-66.5;140.2;...
//
// Lines before the marker other than the preamble are ignored. Values are
// matched to fields by header name; unknown header names are ignored. Errors
// carry the 1-based line number in the original text.
func DecodeASPeCt(text string) ImportResult {
	s := &aspectScanner{
		state: statePreamble,
		res: ImportResult{
			Format:       FormatASPeCt,
			Observations: []domain.Observation{},
			Errors:       []domain.RowError{},
		},
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if i == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}
		s.consume(i+1, line)
	}
	return s.res
}

func (s *aspectScanner) consume(lineNo int, line string) {
	switch s.state {
	case statePreamble:
		s.state = stateAwaitMarker
		if strings.HasPrefix(line, "{") {
			s.readPreamble(lineNo, line)
			return
		}
		// Not a metadata object; the line may already be the marker.
		s.consume(lineNo, line)

	case stateAwaitMarker:
		if line == SectionMarker {
			s.state = stateAwaitHeader
		}

	case stateAwaitHeader:
		names := strings.Split(line, aspectSeparator)
		s.header = make([]*fieldDescriptor, len(names))
		for i, name := range names {
			s.header[i] = aspectFieldIndex[strings.ToLower(strings.TrimSpace(name))]
		}
		s.state = stateReadingRows

	case stateReadingRows:
		s.readRow(lineNo, line)
	}
}

func (s *aspectScanner) readPreamble(lineNo int, line string) {
	meta, err := parsePreamble(line)
	if err != nil {
		s.res.reject(lineNo, err)
		return
	}
	s.res.Voyage = meta
}

func (s *aspectScanner) readRow(lineNo int, line string) {
	values := strings.Split(line, aspectSeparator)

	var b rowBuilder
	for i, v := range values {
		if i >= len(s.header) || s.header[i] == nil {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		s.header[i].set(&b, v)
	}

	obs, err := b.build(FieldDate, FieldTime, FieldLatitude, FieldLongitude)
	if err != nil {
		s.res.reject(lineNo, err)
		return
	}
	s.res.Observations = append(s.res.Observations, obs)
}

// preamble is the metadata object at the top of an ASPeCt file. Unknown keys
// are ignored; missing keys leave members unset.
type preamble struct {
	Name      looseString `json:"name"`
	Leader    looseString `json:"voyage_leader"`
	Captain   looseString `json:"captain_name"`
	Vessel    looseString `json:"voyage_vessel"`
	StartDate looseString `json:"start_date"`
	EndDate   looseString `json:"end_date"`
}

func parsePreamble(line string) (*domain.VoyageMetadata, error) {
	var p preamble
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPreamble, err)
	}
	return &domain.VoyageMetadata{
		Name:      string(p.Name),
		Leader:    string(p.Leader),
		Captain:   string(p.Captain),
		Vessel:    string(p.Vessel),
		StartDate: parseMetaDate(string(p.StartDate)),
		EndDate:   parseMetaDate(string(p.EndDate)),
	}, nil
}

// looseString accepts JSON strings, numbers, booleans and null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*s = looseString(data)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("unsupported value %s", data)
		}
		*s = looseString(data)
	}
	return nil
}

// parseMetaDate parses a preamble date leniently; unparsable dates are unset.
func parseMetaDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := domain.RequireTimestamp("date", s)
	if err != nil {
		return nil
	}
	return &t
}
