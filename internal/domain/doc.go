// Package domain models sea-ice observations recorded during research voyages.
//
// # Observations
//
// An [Observation] is one sighting event: a UTC timestamp, a position, an
// optional total ice concentration and open-water type, up to three ranked
// [IceCategory] slots (primary, secondary, tertiary) and a set of weather
// fields. Identity (ID) and the owning voyage (VoyageID) are assigned by the
// caller and the store, never by a decoder.
//
// # Scales
//
// Concentration conventions differ between the two text encodings:
//
//	Tabular files:   total ice concentration in percent, 0–100.
//	ASPeCt files:    total and per-category concentration in tenths, 0–10.
//
// Values are stored exactly as decoded. No conversion is applied when records
// move between formats, so a tabular export of an ASPeCt import carries
// tenths in the "Total Ice Concentration" column.
//
// Other ranges:
//
//	Latitude:        -90..90 decimal degrees (required)
//	Longitude:       -180..180 decimal degrees (required)
//	Wind direction:  0..360 degrees
//	Wind speed:      >= 0 m/s
//	Cloud cover:     0..8 oktas (integer)
//	Melt ponds:      areal coverage 0..100 %, depth and lengths >= 0
//
// # Validation
//
// Required fields (timestamp, latitude, longitude) fail the row when absent,
// unparsable or out of range. Optional numeric fields that fail to parse or
// fall outside their range are dropped silently: the field is left unset and
// no error is reported. See [RequireLatitude] and [OptionalBoundedNumber].
//
// # Ice categories
//
// A category slot is either nil or carries at least a concentration or an ice
// type. [AssembleIceCategory] never returns an allocated category with every
// field blank.
package domain
