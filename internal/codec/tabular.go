package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// Tabular column labels for the required fields.
const (
	ColDateTime  = "Date/Time"
	ColLatitude  = "Latitude"
	ColLongitude = "Longitude"
)

// tabularColumn is one column of the tabular schema. Columns with a nil set
// are written on export but ignored on import.
type tabularColumn struct {
	label string
	set   func(b *rowBuilder, raw string)
	get   func(o *domain.Observation) string
}

// tabularColumns is the fixed export order.
var tabularColumns = buildTabularColumns()

// tabularIndex maps a lowercased label to its column.
var tabularIndex = indexColumns(tabularColumns)

// TabularColumns returns the export header labels in order.
func TabularColumns() []string {
	labels := make([]string, len(tabularColumns))
	for i, c := range tabularColumns {
		labels[i] = c.label
	}
	return labels
}

var slotLabels = [domain.IceSlots]string{"Primary", "Secondary", "Tertiary"}

// tabularIceLabels are the per-category columns, matching the first five
// entries of iceAttributes.
var tabularIceLabels = []string{"Concentration", "Ice Type", "Thickness", "Floe Size", "Topography"}

var tabularWeatherLabels = []struct{ label, field string }{
	{"Air Temp", "air_temp"},
	{"Water Temp", "water_temp"},
	{"Wind Speed", "wind_speed"},
	{"Wind Direction", "wind_direction"},
	{"Cloud Cover", "cloud_cover"},
	{"Visibility", "visibility"},
	{"Weather", "weather"},
	{"Observer", "observer"},
	{"Comments", "comments"},
}

func buildTabularColumns() []tabularColumn {
	cols := []tabularColumn{
		{ColDateTime,
			func(b *rowBuilder, v string) { b.date = v },
			func(o *domain.Observation) string {
				if o.ObservedAt.IsZero() {
					return ""
				}
				return o.ObservedAt.UTC().Format(time.RFC3339)
			}},
		{ColLatitude,
			func(b *rowBuilder, v string) { b.lat = v },
			func(o *domain.Observation) string { return formatCoord(o.Latitude) }},
		{ColLongitude,
			func(b *rowBuilder, v string) { b.lon = v },
			func(o *domain.Observation) string { return formatCoord(o.Longitude) }},
		{"Total Ice Concentration",
			func(b *rowBuilder, v string) {
				b.obs.TotalIceConcentration = domain.OptionalBoundedNumber(v, domain.PercentMin, domain.PercentMax)
			},
			func(o *domain.Observation) string { return formatFloat(o.TotalIceConcentration) }},
		{"Open Water Type",
			func(b *rowBuilder, v string) { b.obs.OpenWaterType = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.OpenWaterType }},
	}

	for slot := range domain.IceSlots {
		for i, label := range tabularIceLabels {
			attr := iceAttributes[i]
			cols = append(cols, tabularColumn{
				label: slotLabels[slot] + " " + label,
				get: func(o *domain.Observation) string {
					if o.Ice[slot] == nil {
						return ""
					}
					return attr.get(o.Ice[slot])
				},
			})
		}
	}

	weather := indexFields(weatherFields())
	for _, w := range tabularWeatherLabels {
		f := weather[w.field]
		cols = append(cols, tabularColumn{label: w.label, set: f.set, get: f.get})
	}
	return cols
}

func indexColumns(cols []tabularColumn) map[string]*tabularColumn {
	idx := make(map[string]*tabularColumn, len(cols))
	for i := range cols {
		idx[strings.ToLower(cols[i].label)] = &cols[i]
	}
	return idx
}

// DecodeTabular decodes the comma-delimited format. The first line is the
// header; cells are matched to columns by header name (case-insensitive), so
// column order in the file is free. Line numbers in errors count the header
// as line 1.
func DecodeTabular(text string) ImportResult {
	res := ImportResult{
		Format:       FormatTabular,
		Observations: []domain.Observation{},
		Errors:       []domain.RowError{},
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			res.reject(1, fmt.Errorf("header: %w: %v", domain.ErrMalformedRow, err))
		}
		return res
	}

	cols := make([]*tabularColumn, len(header))
	for i, h := range header {
		key := strings.ToLower(cleanCell(strings.TrimPrefix(h, "\ufeff")))
		cols[i] = tabularIndex[key]
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			res.reject(line, fmt.Errorf("%w: %v", domain.ErrMalformedRow, err))
			continue
		}
		if blankRecord(record) {
			continue
		}

		line, _ := r.FieldPos(0)
		var b rowBuilder
		for i, cell := range record {
			if i < len(cols) && cols[i] != nil && cols[i].set != nil {
				cols[i].set(&b, cleanCell(cell))
			}
		}

		obs, err := b.build(ColDateTime, "", ColLatitude, ColLongitude)
		if err != nil {
			res.reject(line, err)
			continue
		}
		res.Observations = append(res.Observations, obs)
	}

	return res
}

// EncodeTabular renders records with the fixed column set. Every row has the
// same number of cells regardless of which fields are populated.
func EncodeTabular(records []domain.Observation) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, quoteRow(TabularColumns()))

	row := make([]string, len(tabularColumns))
	for i := range records {
		for j, c := range tabularColumns {
			row[j] = c.get(&records[i])
		}
		lines = append(lines, quoteRow(row))
	}
	return strings.Join(lines, "\n")
}

var lineBreakRe = regexp.MustCompile(`(\r\n|\r|\n)+`)

func quoteRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = quoteCell(c)
	}
	return strings.Join(quoted, ",")
}

// quoteCell wraps a value in quotes, doubling embedded quotes. The format has
// no quoted-newline convention, so line breaks become a single space.
func quoteCell(s string) string {
	s = lineBreakRe.ReplaceAllString(s, " ")
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// cleanCell trims whitespace and strips the spreadsheet formula wrapper
// (="value") some tools add to keep values from being reformatted.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
