package domain

import "strings"

// RawIceCategory holds the undecoded attribute values of one ice category
// slot, as found in a flat field namespace such as
// "ice_observations.<n>.<attribute>". Empty strings mean "not present".
type RawIceCategory struct {
	Concentration    string
	IceType          string
	Thickness        string
	FloeSize         string
	Topography       string
	SnowType         string
	SnowThickness    string
	BrownIce         string
	MeltPondCoverage string
	MeltPondDepth    string
	MeltPondLength1  string
	MeltPondLength2  string
}

// AssembleIceCategory coerces one slot's raw attributes into an IceCategory.
// It returns nil unless a valid concentration or a non-empty ice type is
// present. Other attributes are copied through when present and dropped
// silently when they fail their range.
func AssembleIceCategory(raw RawIceCategory) *IceCategory {
	concentration := OptionalBoundedInt(raw.Concentration, TenthsMin, TenthsMax)
	iceType := strings.TrimSpace(raw.IceType)
	if concentration == nil && iceType == "" {
		return nil
	}

	return &IceCategory{
		Concentration:    concentration,
		IceType:          iceType,
		Thickness:        OptionalText(raw.Thickness),
		FloeSize:         OptionalText(raw.FloeSize),
		Topography:       OptionalText(raw.Topography),
		SnowType:         OptionalText(raw.SnowType),
		SnowThickness:    OptionalText(raw.SnowThickness),
		BrownIce:         OptionalText(raw.BrownIce),
		MeltPondCoverage: OptionalBoundedNumber(raw.MeltPondCoverage, PercentMin, PercentMax),
		MeltPondDepth:    OptionalMinNumber(raw.MeltPondDepth, 0),
		MeltPondLength1:  OptionalMinNumber(raw.MeltPondLength1, 0),
		MeltPondLength2:  OptionalMinNumber(raw.MeltPondLength2, 0),
	}
}

// AssembleIceCategories builds all three slots. Slots are independent: a
// missing primary does not prevent a secondary from being emitted.
func AssembleIceCategories(raws [IceSlots]RawIceCategory) IceCategories {
	var cats IceCategories
	for i, raw := range raws {
		cats[i] = AssembleIceCategory(raw)
	}
	return cats
}
