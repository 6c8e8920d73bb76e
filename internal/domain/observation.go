package domain

import "time"

// Ice category slot positions.
const (
	Primary = iota
	Secondary
	Tertiary

	// IceSlots is the number of ranked ice category slots per observation.
	IceSlots = 3
)

// IceCategory is one ranked ice-type description attached to an observation.
type IceCategory struct {
	Concentration *int   `json:"ice_concentration,omitempty"` // tenths, 0–10
	IceType       string `json:"ice_type,omitempty"`
	Thickness     string `json:"ice_thickness,omitempty"`
	FloeSize      string `json:"floe_size,omitempty"`
	Topography    string `json:"topography,omitempty"` // letter + coverage digit, e.g. "R3"

	SnowType         string   `json:"snow_type,omitempty"`
	SnowThickness    string   `json:"snow_thickness,omitempty"`
	BrownIce         string   `json:"brown_ice,omitempty"`
	MeltPondCoverage *float64 `json:"melt_pond_areal_coverage,omitempty"` // percent
	MeltPondDepth    *float64 `json:"melt_pond_depth,omitempty"`
	MeltPondLength1  *float64 `json:"melt_pond_length_1,omitempty"`
	MeltPondLength2  *float64 `json:"melt_pond_length_2,omitempty"`
}

// IceCategories holds the primary, secondary and tertiary slots. A nil entry
// means the category was not observed.
type IceCategories [IceSlots]*IceCategory

func (c IceCategories) Primary() *IceCategory   { return c[Primary] }
func (c IceCategories) Secondary() *IceCategory { return c[Secondary] }
func (c IceCategories) Tertiary() *IceCategory  { return c[Tertiary] }

// Count returns the number of populated slots.
func (c IceCategories) Count() int {
	n := 0
	for _, cat := range c {
		if cat != nil {
			n++
		}
	}
	return n
}

// Observation is one sea-ice sighting event.
type Observation struct {
	ID       string `json:"id"`
	VoyageID string `json:"voyage_id"`

	ObservedAt time.Time `json:"observed_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`

	TotalIceConcentration *float64      `json:"total_ice_concentration,omitempty"`
	OpenWaterType         string        `json:"open_water_type,omitempty"`
	Ice                   IceCategories `json:"ice_observations"`

	AirTemp       *float64 `json:"air_temp,omitempty"`
	WaterTemp     *float64 `json:"water_temp,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	WindDirection *float64 `json:"wind_direction,omitempty"`
	CloudCover    *int     `json:"cloud_cover,omitempty"`
	Visibility    string   `json:"visibility,omitempty"`
	Weather       string   `json:"weather,omitempty"`

	Observer string `json:"observer,omitempty"`
	Comments string `json:"comments,omitempty"`

	ImportedAt time.Time `json:"imported_at,omitzero"`
}

// VoyageMetadata describes a research voyage. Decoders only produce it from an
// ASPeCt preamble; every member is optional.
type VoyageMetadata struct {
	Name      string     `json:"name,omitempty"`
	Leader    string     `json:"voyage_leader,omitempty"`
	Captain   string     `json:"captain_name,omitempty"`
	Vessel    string     `json:"voyage_vessel,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// IsZero reports whether no member is set.
func (m VoyageMetadata) IsZero() bool {
	return m.Name == "" && m.Leader == "" && m.Captain == "" && m.Vessel == "" &&
		m.StartDate == nil && m.EndDate == nil
}

// Voyage is a stored voyage with its store-assigned identity.
type Voyage struct {
	ID string `json:"id"`
	VoyageMetadata
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers cannot mutate stored values through
// shared pointers.
func (o Observation) Clone() Observation {
	c := o
	c.TotalIceConcentration = clonePtr(o.TotalIceConcentration)
	c.AirTemp = clonePtr(o.AirTemp)
	c.WaterTemp = clonePtr(o.WaterTemp)
	c.WindSpeed = clonePtr(o.WindSpeed)
	c.WindDirection = clonePtr(o.WindDirection)
	c.CloudCover = clonePtr(o.CloudCover)
	for i, cat := range o.Ice {
		if cat == nil {
			continue
		}
		cc := *cat
		cc.Concentration = clonePtr(cat.Concentration)
		cc.MeltPondCoverage = clonePtr(cat.MeltPondCoverage)
		cc.MeltPondDepth = clonePtr(cat.MeltPondDepth)
		cc.MeltPondLength1 = clonePtr(cat.MeltPondLength1)
		cc.MeltPondLength2 = clonePtr(cat.MeltPondLength2)
		c.Ice[i] = &cc
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
