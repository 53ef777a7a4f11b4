package geom

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/paulmach/orb/geojson"
)

// LoadGeo reads a GeoJSON file (FeatureCollection, Feature or bare geometry)
// and returns editable geometries with properties attached. Numeric feature ids
// are kept; other features get ID -1 so the caller can assign one.
func LoadGeo(path string) ([]*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeGeo(data)
}

// DecodeGeo is LoadGeo on an in-memory document.
func DecodeGeo(data []byte) ([]*Geometry, error) {
	var doc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var features []*geojson.Feature
	switch doc.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		features = []*geojson.Feature{f}
	case "":
		return nil, errors.New("invalid geojson: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}
	var out []*Geometry
	for _, f := range features {
		gs, err := FromOrb(f.Geometry)
		if err != nil {
			// skip what cannot be edited rather than failing the whole file
			continue
		}
		id := int64(-1)
		if v, ok := f.ID.(float64); ok && v >= 0 && v == float64(int64(v)) {
			id = int64(v)
		}
		for i, g := range gs {
			if g.Validate() != nil {
				continue
			}
			g.ID = id
			if i > 0 {
				g.ID = -1
			}
			if len(f.Properties) > 0 {
				g.Properties = map[string]any(f.Properties.Clone())
			}
			if s, ok := g.Properties["style"].(string); ok {
				g.Style = s
				delete(g.Properties, "style")
			}
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoGeometries
	}
	return out, nil
}

// EncodeGeo renders geometries as a FeatureCollection. The style reference is
// stored in the "style" property.
func EncodeGeo(gs []*Geometry) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, g := range gs {
		f := geojson.NewFeature(ToOrb(g))
		f.ID = g.ID
		for k, v := range g.Properties {
			f.Properties[k] = v
		}
		if g.Style != "" {
			f.Properties["style"] = g.Style
		}
		fc.Append(f)
	}
	return json.MarshalIndent(fc, "", "  ")
}
