package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// rowBuilder accumulates one decoded row. Required fields are held raw until
// the whole row has been read so they can be validated in a fixed order.
type rowBuilder struct {
	date, clock string
	lat, lon    string
	obs         domain.Observation
	ice         [domain.IceSlots]domain.RawIceCategory
}

// fieldDescriptor binds a known field name to a typed setter on the row under
// construction and a getter used when encoding. get returns "" for absent
// values.
type fieldDescriptor struct {
	name string
	set  func(b *rowBuilder, raw string)
	get  func(o *domain.Observation) string
}

// iceAttribute is one per-slot attribute of an ice category.
type iceAttribute struct {
	name string
	set  func(r *domain.RawIceCategory, raw string)
	get  func(c *domain.IceCategory) string
}

var iceAttributes = []iceAttribute{
	{"ice_concentration",
		func(r *domain.RawIceCategory, v string) { r.Concentration = v },
		func(c *domain.IceCategory) string { return formatInt(c.Concentration) }},
	{"ice_type",
		func(r *domain.RawIceCategory, v string) { r.IceType = v },
		func(c *domain.IceCategory) string { return c.IceType }},
	{"ice_thickness",
		func(r *domain.RawIceCategory, v string) { r.Thickness = v },
		func(c *domain.IceCategory) string { return c.Thickness }},
	{"floe_size",
		func(r *domain.RawIceCategory, v string) { r.FloeSize = v },
		func(c *domain.IceCategory) string { return c.FloeSize }},
	{"topography",
		func(r *domain.RawIceCategory, v string) { r.Topography = v },
		func(c *domain.IceCategory) string { return c.Topography }},
	{"snow_type",
		func(r *domain.RawIceCategory, v string) { r.SnowType = v },
		func(c *domain.IceCategory) string { return c.SnowType }},
	{"snow_thickness",
		func(r *domain.RawIceCategory, v string) { r.SnowThickness = v },
		func(c *domain.IceCategory) string { return c.SnowThickness }},
	{"brown_ice",
		func(r *domain.RawIceCategory, v string) { r.BrownIce = v },
		func(c *domain.IceCategory) string { return c.BrownIce }},
	{"melt_pond_areal_coverage",
		func(r *domain.RawIceCategory, v string) { r.MeltPondCoverage = v },
		func(c *domain.IceCategory) string { return formatFloat(c.MeltPondCoverage) }},
	{"melt_pond_depth",
		func(r *domain.RawIceCategory, v string) { r.MeltPondDepth = v },
		func(c *domain.IceCategory) string { return formatFloat(c.MeltPondDepth) }},
	{"melt_pond_length_1",
		func(r *domain.RawIceCategory, v string) { r.MeltPondLength1 = v },
		func(c *domain.IceCategory) string { return formatFloat(c.MeltPondLength1) }},
	{"melt_pond_length_2",
		func(r *domain.RawIceCategory, v string) { r.MeltPondLength2 = v },
		func(c *domain.IceCategory) string { return formatFloat(c.MeltPondLength2) }},
}

// aspectFields is the ASPeCt field table in canonical header order.
var aspectFields = buildASPeCtFields()

// aspectFieldIndex maps a field name to its descriptor.
var aspectFieldIndex = indexFields(aspectFields)

func buildASPeCtFields() []fieldDescriptor {
	fields := []fieldDescriptor{
		{"date",
			func(b *rowBuilder, v string) { b.date = v },
			func(o *domain.Observation) string { return formatDate(o) }},
		{"time",
			func(b *rowBuilder, v string) { b.clock = v },
			func(o *domain.Observation) string { return formatClock(o) }},
		{"latitude",
			func(b *rowBuilder, v string) { b.lat = v },
			func(o *domain.Observation) string { return formatCoord(o.Latitude) }},
		{"longitude",
			func(b *rowBuilder, v string) { b.lon = v },
			func(o *domain.Observation) string { return formatCoord(o.Longitude) }},
		{"total_ice_concentration",
			func(b *rowBuilder, v string) {
				b.obs.TotalIceConcentration = domain.OptionalBoundedNumber(v, domain.TenthsMin, domain.TenthsMax)
			},
			func(o *domain.Observation) string { return formatFloat(o.TotalIceConcentration) }},
		{"open_water_type",
			func(b *rowBuilder, v string) { b.obs.OpenWaterType = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.OpenWaterType }},
	}

	for slot := range domain.IceSlots {
		for _, attr := range iceAttributes {
			fields = append(fields, fieldDescriptor{
				name: fmt.Sprintf("ice_observations.%d.%s", slot+1, attr.name),
				set:  func(b *rowBuilder, v string) { attr.set(&b.ice[slot], v) },
				get: func(o *domain.Observation) string {
					if o.Ice[slot] == nil {
						return ""
					}
					return attr.get(o.Ice[slot])
				},
			})
		}
	}

	return append(fields, weatherFields()...)
}

// weatherFields are shared by both codecs; only the column labels differ.
func weatherFields() []fieldDescriptor {
	return []fieldDescriptor{
		{"water_temp",
			func(b *rowBuilder, v string) { b.obs.WaterTemp = domain.OptionalNumber(v) },
			func(o *domain.Observation) string { return formatFloat(o.WaterTemp) }},
		{"air_temp",
			func(b *rowBuilder, v string) { b.obs.AirTemp = domain.OptionalNumber(v) },
			func(o *domain.Observation) string { return formatFloat(o.AirTemp) }},
		{"wind_speed",
			func(b *rowBuilder, v string) { b.obs.WindSpeed = domain.OptionalMinNumber(v, domain.WindSpeedMin) },
			func(o *domain.Observation) string { return formatFloat(o.WindSpeed) }},
		{"wind_direction",
			func(b *rowBuilder, v string) {
				b.obs.WindDirection = domain.OptionalBoundedNumber(v, domain.WindDirectionMin, domain.WindDirectionMax)
			},
			func(o *domain.Observation) string { return formatFloat(o.WindDirection) }},
		{"cloud_cover",
			func(b *rowBuilder, v string) {
				b.obs.CloudCover = domain.OptionalBoundedInt(v, domain.CloudCoverMin, domain.CloudCoverMax)
			},
			func(o *domain.Observation) string { return formatInt(o.CloudCover) }},
		{"visibility",
			func(b *rowBuilder, v string) { b.obs.Visibility = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.Visibility }},
		{"weather",
			func(b *rowBuilder, v string) { b.obs.Weather = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.Weather }},
		{"observer",
			func(b *rowBuilder, v string) { b.obs.Observer = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.Observer }},
		{"comments",
			func(b *rowBuilder, v string) { b.obs.Comments = domain.OptionalText(v) },
			func(o *domain.Observation) string { return o.Comments }},
	}
}

func indexFields(fields []fieldDescriptor) map[string]*fieldDescriptor {
	idx := make(map[string]*fieldDescriptor, len(fields))
	for i := range fields {
		idx[strings.ToLower(fields[i].name)] = &fields[i]
	}
	return idx
}

// build validates the required fields in a fixed order (timestamp, latitude,
// longitude) and returns the first failure.
func (b *rowBuilder) build(dateField, timeField, latField, lonField string) (domain.Observation, error) {
	var err error
	if timeField == "" {
		b.obs.ObservedAt, err = domain.RequireTimestamp(dateField, b.date)
	} else {
		b.obs.ObservedAt, err = domain.RequireDateTime(dateField, b.date, timeField, b.clock)
	}
	if err != nil {
		return domain.Observation{}, err
	}
	if b.obs.Latitude, err = domain.RequireLatitude(latField, b.lat); err != nil {
		return domain.Observation{}, err
	}
	if b.obs.Longitude, err = domain.RequireLongitude(lonField, b.lon); err != nil {
		return domain.Observation{}, err
	}

	b.obs.Ice = domain.AssembleIceCategories(b.ice)
	return b.obs, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(o *domain.Observation) string {
	if o.ObservedAt.IsZero() {
		return ""
	}
	return o.ObservedAt.UTC().Format("2006-01-02")
}

func formatClock(o *domain.Observation) string {
	if o.ObservedAt.IsZero() {
		return ""
	}
	t := o.ObservedAt.UTC()
	if t.Second() == 0 {
		return t.Format("15:04")
	}
	return t.Format("15:04:05")
}
