// Package geo holds the region boundary set and joins per-region totals onto
// it for the choropleth view.
package geo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb/geojson"

	"github.com/denguewatch/denguewatch/internal/aggregate"
)

// NameProperty is the feature property holding the region join key.
const NameProperty = "name"

// Boundaries is an immutable set of region polygons keyed by name.
type Boundaries struct {
	features []*geojson.Feature
	names    map[string]bool
}

// Load reads a GeoJSON FeatureCollection from disk.
func Load(path string) (*Boundaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	return Parse(data)
}

// Parse decodes a FeatureCollection. Every feature must carry a non-empty name
// property and names must be unique.
func Parse(data []byte) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding boundaries: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("boundary set has no features")
	}
	b := &Boundaries{names: make(map[string]bool, len(fc.Features))}
	for i, f := range fc.Features {
		name := featureName(f)
		if name == "" {
			return nil, fmt.Errorf("feature %d has no %q property", i, NameProperty)
		}
		if b.names[name] {
			return nil, fmt.Errorf("duplicate region %q", name)
		}
		b.names[name] = true
		b.features = append(b.features, f)
	}
	return b, nil
}

func featureName(f *geojson.Feature) string {
	return strings.TrimSpace(f.Properties.MustString(NameProperty, ""))
}

// Names lists the region names in file order.
func (b *Boundaries) Names() []string {
	out := make([]string, 0, len(b.features))
	for _, f := range b.features {
		out = append(out, featureName(f))
	}
	return out
}

// Has reports whether a region name matches a polygon.
func (b *Boundaries) Has(region string) bool {
	return b.names[aggregate.RegionKey(region)]
}

// Join returns a copy of the boundary set where every feature carries cases,
// deaths and fill properties. Regions without records get zero counts.
// Regions in byRegion that match no polygon are returned sorted in unmatched;
// their counts still belong to the grand totals but are not drawn.
func (b *Boundaries) Join(byRegion map[string]aggregate.Totals) (fc *geojson.FeatureCollection, unmatched []string) {
	scale := NewScale(aggregate.MaxCases(byRegion))

	fc = geojson.NewFeatureCollection()
	for _, f := range b.features {
		t := byRegion[featureName(f)]
		out := geojson.NewFeature(f.Geometry)
		out.ID = f.ID
		out.BBox = f.BBox
		out.Properties = f.Properties.Clone()
		out.Properties["cases"] = t.Cases
		out.Properties["deaths"] = t.Deaths
		out.Properties["fill"] = scale.Fill(t.Cases)
		fc.Append(out)
	}

	for region := range byRegion {
		if !b.names[region] {
			unmatched = append(unmatched, region)
		}
	}
	sort.Strings(unmatched)
	return fc, unmatched
}

// Scale maps a case count in [0, max] onto a sequential red ramp.
type Scale struct {
	max  int
	low  colorful.Color
	high colorful.Color
}

var (
	rampLow  = mustHex("#fff5f0")
	rampHigh = mustHex("#67000d")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NewScale builds a scale whose domain is [0, max].
func NewScale(max int) Scale {
	return Scale{max: max, low: rampLow, high: rampHigh}
}

// Fill returns the hex colour for a case count. Values outside the domain are
// clamped.
func (s Scale) Fill(cases int) string {
	if s.max <= 0 || cases <= 0 {
		return s.low.Hex()
	}
	if cases >= s.max {
		return s.high.Hex()
	}
	t := float64(cases) / float64(s.max)
	return s.low.BlendLab(s.high, t).Clamped().Hex()
}
