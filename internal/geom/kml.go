package geom

import (
	"encoding/xml"
	"errors"
	"os"
	"strconv"
	"strings"
)

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlCoords   `xml:"outerBoundaryIs>LinearRing"`
	Inner []kmlCoords `xml:"innerBoundaryIs>LinearRing"`
}

type kmlPlacemark struct {
	Name       string      `xml:"name"`
	Point      *kmlCoords  `xml:"Point"`
	LineString *kmlCoords  `xml:"LineString"`
	Polygon    *kmlPolygon `xml:"Polygon"`
}

type kmlDoc struct {
	Placemarks []kmlPlacemark `xml:"Document>Placemark"`
	Loose      []kmlPlacemark `xml:"Placemark"`
}

// LoadKML extracts Point, LineString and Polygon placemarks from a KML file.
// KML coordinates are "lon,lat[,alt]"; we ignore altitude.
func LoadKML(path string) ([]*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeKML(data)
}

// DecodeKML is LoadKML on an in-memory document.
func DecodeKML(data []byte) ([]*Geometry, error) {
	var doc kmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []*Geometry
	for _, pm := range append(doc.Placemarks, doc.Loose...) {
		var g *Geometry
		switch {
		case pm.Point != nil:
			// coordinates may contain multiple tuples separated by spaces
			for _, p := range parseKMLCoords(pm.Point.Coordinates) {
				pg := New(KindPoint, [][2]float64{p})
				pg.ID = -1
				withName(pg, pm.Name)
				out = append(out, pg)
			}
			continue
		case pm.LineString != nil:
			g = &Geometry{Kind: KindLine, Vertices: parseKMLCoords(pm.LineString.Coordinates)}
		case pm.Polygon != nil:
			g = &Geometry{Kind: KindPolygon, Vertices: openRing(toRing(parseKMLCoords(pm.Polygon.Outer.Coordinates)))}
			for _, in := range pm.Polygon.Inner {
				g.Holes = append(g.Holes, openRing(toRing(parseKMLCoords(in.Coordinates))))
			}
		default:
			continue
		}
		if g.Validate() != nil {
			continue
		}
		g.ID = -1
		withName(g, pm.Name)
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, errors.New("kml: no placemarks found")
	}
	return out, nil
}

func withName(g *Geometry, name string) {
	if name == "" {
		return
	}
	g.Properties = map[string]any{"name": name}
}

func parseKMLCoords(s string) [][2]float64 {
	var out [][2]float64
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, [2]float64{lon, lat})
	}
	return out
}
