package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPreamble = `{"name":"SIPEX III","voyage_leader":"A. Leader","captain_name":"B. Captain","voyage_vessel":"Aurora","start_date":"2026-01-01","end_date":"2026-02-15","unused":{"nested":true}}`
	testHeader   = "date;time;latitude;longitude"
	testRow      = "2026-01-05;14:30;-65.25;110.5"
)

func aspectText(lines ...string) string {
	return strings.Join(lines, "\n")
}

func TestDecodeASPeCt_PreambleAndRow(t *testing.T) {
	res := DecodeASPeCt(aspectText(testPreamble, SectionMarker, testHeader, testRow))

	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, FormatASPeCt, res.Format)
	require.Len(t, res.Observations, 1)

	require.NotNil(t, res.Voyage)
	assert.Equal(t, "SIPEX III", res.Voyage.Name)
	assert.Equal(t, "A. Leader", res.Voyage.Leader)
	assert.Equal(t, "B. Captain", res.Voyage.Captain)
	assert.Equal(t, "Aurora", res.Voyage.Vessel)
	require.NotNil(t, res.Voyage.StartDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *res.Voyage.StartDate)
	require.NotNil(t, res.Voyage.EndDate)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), *res.Voyage.EndDate)

	obs := res.Observations[0]
	assert.Equal(t, time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC), obs.ObservedAt)
	assert.Equal(t, -65.25, obs.Latitude)
	assert.Equal(t, 110.5, obs.Longitude)
	assert.Zero(t, obs.Ice.Count())
}

func TestDecodeASPeCt_Preamble(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker, testHeader, testRow))
		require.True(t, res.OK())
		assert.Nil(t, res.Voyage)
		assert.Len(t, res.Observations, 1)
	})

	t.Run("missing keys leave members unset", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(`{"name":"V1"}`, SectionMarker, testHeader, testRow))
		require.True(t, res.OK())
		require.NotNil(t, res.Voyage)
		assert.Equal(t, "V1", res.Voyage.Name)
		assert.Empty(t, res.Voyage.Leader)
		assert.Nil(t, res.Voyage.StartDate)
	})

	t.Run("scalar values are coerced to text", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(`{"name":2026,"voyage_vessel":null,"captain_name":true,"start_date":"soon"}`, SectionMarker))
		require.True(t, res.OK())
		require.NotNil(t, res.Voyage)
		assert.Equal(t, "2026", res.Voyage.Name)
		assert.Empty(t, res.Voyage.Vessel)
		assert.Equal(t, "true", res.Voyage.Captain)
		assert.Nil(t, res.Voyage.StartDate, "unparsable dates are unset")
	})

	t.Run("malformed preamble is one non-fatal error", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(`{"name": "broken"`, SectionMarker, testHeader, testRow))

		assert.Nil(t, res.Voyage)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, domain.KindMalformedPreamble, res.Errors[0].Kind)
		assert.Equal(t, 1, res.Errors[0].Line)
		assert.Len(t, res.Observations, 1, "rows still decode")
	})

	t.Run("object member rejected", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(`{"name":{"first":"x"}}`, SectionMarker, testHeader, testRow))
		assert.Nil(t, res.Voyage)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, domain.KindMalformedPreamble, res.Errors[0].Kind)
	})

	t.Run("only the first non-blank line can be a preamble", func(t *testing.T) {
		res := DecodeASPeCt(aspectText("", "  ", "notes", `{"name":"late"}`, SectionMarker, testHeader, testRow))
		require.True(t, res.OK())
		assert.Nil(t, res.Voyage)
		assert.Len(t, res.Observations, 1)
	})
}

func TestDecodeASPeCt_Scanner(t *testing.T) {
	t.Run("lines before the marker are ignored", func(t *testing.T) {
		res := DecodeASPeCt(aspectText("Cruise notes", "date;time;latitude;longitude", "garbage;row", SectionMarker, testHeader, testRow))
		require.True(t, res.OK())
		assert.Len(t, res.Observations, 1)
	})

	t.Run("no marker yields nothing", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(testHeader, testRow))
		assert.True(t, res.OK())
		assert.Empty(t, res.Observations)
	})

	t.Run("blank lines and CRLF", func(t *testing.T) {
		text := strings.Join([]string{testPreamble, "", SectionMarker, "", testHeader, "", testRow, ""}, "\r\n")
		res := DecodeASPeCt(text)
		require.True(t, res.OK(), "errors: %v", res.Errors)
		assert.Len(t, res.Observations, 1)
	})

	t.Run("header maps values by name", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker,
			"LONGITUDE; Latitude ;mystery_field;time;date;observer",
			"110.5;-65.25;???;0930;20260105;crew"))
		require.True(t, res.OK(), "errors: %v", res.Errors)
		require.Len(t, res.Observations, 1)
		obs := res.Observations[0]
		assert.Equal(t, -65.25, obs.Latitude)
		assert.Equal(t, 110.5, obs.Longitude)
		assert.Equal(t, time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC), obs.ObservedAt)
		assert.Equal(t, "crew", obs.Observer)
	})

	t.Run("missing time means midnight", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker, "date;latitude;longitude", "2026-01-05;-65;110"))
		require.True(t, res.OK())
		assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), res.Observations[0].ObservedAt)
	})

	t.Run("extra values beyond the header are ignored", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker, testHeader, testRow+";extra;values"))
		require.True(t, res.OK())
		assert.Len(t, res.Observations, 1)
	})
}

func TestDecodeASPeCt_RowErrors(t *testing.T) {
	text := aspectText(
		testPreamble,               // 1
		SectionMarker,              // 2
		testHeader,                 // 3
		testRow,                    // 4
		"",                         // 5
		";;-65;110",                // 6
		"2026-01-05;;;110",         // 7
		"2026-01-05;12:00;-65;190", // 8
		"2026-13-45;12:00;-65;110", // 9
		testRow,                    // 10
	)

	res := DecodeASPeCt(text)

	assert.Len(t, res.Observations, 2)
	require.Len(t, res.Errors, 4)

	assert.Equal(t, 6, res.Errors[0].Line)
	assert.Equal(t, FieldDate, res.Errors[0].Field)
	assert.Equal(t, domain.KindMissingRequiredField, res.Errors[0].Kind)

	assert.Equal(t, 7, res.Errors[1].Line)
	assert.Equal(t, FieldLatitude, res.Errors[1].Field)
	assert.Equal(t, domain.KindMissingRequiredField, res.Errors[1].Kind)

	assert.Equal(t, 8, res.Errors[2].Line)
	assert.Equal(t, FieldLongitude, res.Errors[2].Field)
	assert.Equal(t, domain.KindOutOfRange, res.Errors[2].Kind)

	assert.Equal(t, 9, res.Errors[3].Line)
	assert.Equal(t, domain.KindMalformedTimestamp, res.Errors[3].Kind)
}

func TestDecodeASPeCt_IceCategories(t *testing.T) {
	t.Run("concentration alone yields a category", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker,
			testHeader+";ice_observations.1.ice_concentration",
			testRow+";5"))

		require.True(t, res.OK())
		ice := res.Observations[0].Ice

		primary := ice.Primary()
		require.NotNil(t, primary)
		require.NotNil(t, primary.Concentration)
		assert.Equal(t, 5, *primary.Concentration)
		assert.Empty(t, primary.IceType)
		assert.Empty(t, primary.Thickness)
		assert.Nil(t, primary.MeltPondDepth)

		assert.Nil(t, ice.Secondary(), "no secondary fields means no secondary category")
		assert.Nil(t, ice.Tertiary())
	})

	t.Run("slots are independent", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker,
			testHeader+";ice_observations.2.ice_type;ice_observations.2.snow_type;ice_observations.3.floe_size",
			testRow+";NI;S1;big"))

		require.True(t, res.OK())
		ice := res.Observations[0].Ice
		assert.Nil(t, ice.Primary())
		require.NotNil(t, ice.Secondary())
		assert.Equal(t, "NI", ice.Secondary().IceType)
		assert.Equal(t, "S1", ice.Secondary().SnowType)
		assert.Nil(t, ice.Secondary().Concentration)
		assert.Nil(t, ice.Tertiary(), "floe size without concentration or type is not a category")
	})

	t.Run("out of range concentration is dropped", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker,
			testHeader+";ice_observations.1.ice_concentration;ice_observations.1.ice_type;ice_observations.1.melt_pond_areal_coverage",
			testRow+";11;FY;140"))

		require.True(t, res.OK())
		primary := res.Observations[0].Ice.Primary()
		require.NotNil(t, primary)
		assert.Nil(t, primary.Concentration)
		assert.Equal(t, "FY", primary.IceType)
		assert.Nil(t, primary.MeltPondCoverage)
	})

	t.Run("total concentration is in tenths", func(t *testing.T) {
		res := DecodeASPeCt(aspectText(SectionMarker,
			testHeader+";total_ice_concentration",
			testRow+";8",
			testRow+";80"))

		require.True(t, res.OK())
		require.Len(t, res.Observations, 2)
		assert.Equal(t, ptr(8.0), res.Observations[0].TotalIceConcentration)
		assert.Nil(t, res.Observations[1].TotalIceConcentration)
	})
}

func testASPeCtRecords() []domain.Observation {
	conc := 6
	return []domain.Observation{
		{
			ObservedAt: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
			Latitude:   -65.25,
			Longitude:  110.5,
		},
		{
			ObservedAt:            time.Date(2026, 1, 6, 3, 7, 9, 0, time.UTC),
			Latitude:              -66.123456,
			Longitude:             111.000001,
			TotalIceConcentration: ptr(9.0),
			OpenWaterType:         "lead",
			Ice: domain.IceCategories{
				{
					Concentration:    &conc,
					IceType:          "FY",
					Thickness:        "120",
					FloeSize:         "4",
					Topography:       "R3",
					SnowType:         "S2",
					SnowThickness:    "10",
					BrownIce:         "1",
					MeltPondCoverage: ptr(12.5),
					MeltPondDepth:    ptr(0.2),
					MeltPondLength1:  ptr(3.0),
					MeltPondLength2:  ptr(1.5),
				},
				nil,
				{IceType: "NI"},
			},
			AirTemp:       ptr(-8.5),
			WaterTemp:     ptr(-1.8),
			WindSpeed:     ptr(15.0),
			WindDirection: ptr(225.0),
			CloudCover:    ptr(7),
			Visibility:    "moderate",
			Weather:       "light snow",
			Observer:      "K. Smith",
			Comments:      "brash along the lead",
		},
	}
}

func TestASPeCt_StructuredRoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	voyage := &domain.VoyageMetadata{Name: "SIPEX III", Leader: "A. Leader", Vessel: "Aurora", StartDate: &start}
	records := testASPeCtRecords()

	text := EncodeASPeCt(voyage, records)
	assert.Equal(t, FormatASPeCt, Detect("export", text))

	res := DecodeASPeCt(text)

	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, voyage, res.Voyage)
	assert.Equal(t, records, res.Observations)
}

func TestEncodeASPeCt(t *testing.T) {
	t.Run("layout", func(t *testing.T) {
		records := testASPeCtRecords()
		records[0].Comments = "first; second\nthird"

		lines := strings.Split(strings.TrimRight(EncodeASPeCt(nil, records), "\n"), "\n")

		require.Len(t, lines, 4)
		assert.Equal(t, SectionMarker, lines[0], "no preamble without voyage")
		assert.True(t, strings.HasPrefix(lines[1], testHeader+";total_ice_concentration;open_water_type;ice_observations.1.ice_concentration"))
		columns := strings.Count(lines[1], ";")
		assert.Equal(t, columns, strings.Count(lines[2], ";"))
		assert.Equal(t, columns, strings.Count(lines[3], ";"))
		assert.True(t, strings.HasSuffix(lines[2], ";first, second third"))
	})

	t.Run("empty voyage has no preamble", func(t *testing.T) {
		out := EncodeASPeCt(&domain.VoyageMetadata{}, nil)
		assert.True(t, strings.HasPrefix(out, SectionMarker+"\n"))
	})
}

func TestEncodeASPeCtReport(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	voyage := &domain.VoyageMetadata{Name: "SIPEX III", Vessel: "Aurora", StartDate: &start}

	out := EncodeASPeCtReport(voyage, testASPeCtRecords())

	assert.Contains(t, out, "Voyage: SIPEX III\n")
	assert.Contains(t, out, "Vessel: Aurora\n")
	assert.Contains(t, out, "Start Date: 2026-01-01\n")
	assert.NotContains(t, out, "Captain:")
	assert.NotContains(t, out, "End Date:")

	assert.Contains(t, out, "\n"+SectionLabel+"\n")
	assert.NotContains(t, out, SectionMarker)

	first := out[strings.Index(out, "Observation 1"):strings.Index(out, "Observation 2")]
	assert.Contains(t, first, "  date: 2026-01-05\n")
	assert.Contains(t, first, "  time: 14:30\n")
	assert.Contains(t, first, "  latitude: -65.25\n")
	assert.NotContains(t, first, "observer", "absent fields are omitted")
	assert.NotContains(t, first, "ice_observations")

	second := out[strings.Index(out, "Observation 2"):]
	assert.Contains(t, second, "  time: 03:07:09\n")
	assert.Contains(t, second, "  ice_observations.1.ice_concentration: 6\n")
	assert.Contains(t, second, "  ice_observations.3.ice_type: NI\n")
	assert.NotContains(t, second, "ice_observations.2.")
	assert.Contains(t, second, "  comments: brash along the lead\n")

	t.Run("report does not decode as structured", func(t *testing.T) {
		assert.Equal(t, FormatTabular, Detect("report", out))
		res := DecodeASPeCt(out)
		assert.Empty(t, res.Observations)
	})
}

func TestScanState_String(t *testing.T) {
	assert.Equal(t, "preamble", statePreamble.String())
	assert.Equal(t, "await_marker", stateAwaitMarker.String())
	assert.Equal(t, "await_header", stateAwaitHeader.String())
	assert.Equal(t, "reading_rows", stateReadingRows.String())
	assert.Equal(t, "unknown", scanState(42).String())
}
