// Package assets bundles the default region boundary set and the reference
// case snapshot shown before any records exist.
package assets

import _ "embed"

// Regions is a GeoJSON FeatureCollection with one simplified polygon per
// Philippine administrative region, keyed by the "name" property.
//
//go:embed regions.geojson
var Regions []byte

// Dataset is the reference CSV snapshot in the legacy list schema.
//
//go:embed dataset.csv
var Dataset []byte
