package processor

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	geo "github.com/nci/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// Boundary is the polygonal region a crop keeps. Geometries are WKT in
// the CRS the GeoJSON document declares.
type Boundary struct {
	Name       string
	Path       string
	CRS        string
	Geometries []string
}

type geoJSONHeader struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// BoundaryName is the base name of path without its extension, used as
// the directory that separates crops by region.
func BoundaryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func LoadBoundary(path string) (*Boundary, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Error while reading boundary file: %s. Error: %v", path, err)
	}
	b, err := DecodeBoundary(BoundaryName(path), data)
	if err != nil {
		return nil, fmt.Errorf("Invalid boundary file %s: %v", path, err)
	}
	b.Path = path
	return b, nil
}

// DecodeBoundary reads the Polygon and MultiPolygon geometries of a
// GeoJSON FeatureCollection or Feature. Documents without a crs member
// are in EPSG:4326.
func DecodeBoundary(name string, data []byte) (*Boundary, error) {
	var header geoJSONHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("Problem unmarshalling GeoJSON object: %v", err)
	}

	b := &Boundary{Name: name, CRS: "EPSG:4326"}
	if header.CRS != nil && len(header.CRS.Properties.Name) > 0 {
		b.CRS = header.CRS.Properties.Name
	}

	var features []geo.Feature
	switch header.Type {
	case "FeatureCollection":
		var featCol geo.FeatureCollection
		if err := json.Unmarshal(data, &featCol); err != nil {
			return nil, fmt.Errorf("Problem unmarshalling GeoJSON object: %v", err)
		}
		features = featCol.Features
	case "Feature":
		var feat geo.Feature
		if err := json.Unmarshal(data, &feat); err != nil {
			return nil, fmt.Errorf("Problem unmarshalling GeoJSON object: %v", err)
		}
		features = append(features, feat)
	default:
		return nil, fmt.Errorf("GeoJSON type %q not supported", header.Type)
	}

	for _, feat := range features {
		switch geom := feat.Geometry.(type) {
		case *geo.Polygon, *geo.MultiPolygon:
			b.Geometries = append(b.Geometries, geom.MarshalWKT())
		}
	}
	if len(b.Geometries) == 0 {
		return nil, fmt.Errorf("Geometry not supported. Only Features containing Polygon or MultiPolygon are available")
	}
	return b, nil
}

// Project returns the boundary in the CRS of sr as a planar
// multipolygon.
func (b *Boundary) Project(sr *godal.SpatialRef) (orb.MultiPolygon, error) {
	srcSR, err := godal.NewSpatialRef(b.CRS)
	if err != nil {
		return nil, fmt.Errorf("Invalid boundary CRS %q: %v", b.CRS, err)
	}
	defer srcSR.Close()

	same := sr == nil || srcSR.IsSame(sr)
	var mp orb.MultiPolygon
	for _, w := range b.Geometries {
		if !same {
			w, err = reprojectWKT(w, srcSR, sr)
			if err != nil {
				return nil, err
			}
		}
		geom, err := wkt.Unmarshal(w)
		if err != nil {
			return nil, fmt.Errorf("Invalid boundary geometry: %v", err)
		}
		switch g := geom.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		default:
			return nil, fmt.Errorf("Boundary geometry became %s after reprojection", geom.GeoJSONType())
		}
	}
	return mp, nil
}

func reprojectWKT(w string, from, to *godal.SpatialRef) (string, error) {
	hGeom, err := godal.NewGeometryFromWKT(w, from)
	if err != nil {
		return "", fmt.Errorf("Invalid boundary geometry: %v", err)
	}
	defer hGeom.Close()

	if err := hGeom.Reproject(to); err != nil {
		return "", fmt.Errorf("Boundary reprojection failed: %v", err)
	}
	return hGeom.WKT()
}

// Area is the planar area of the boundary in the units of its CRS.
func (b *Boundary) Area() float64 {
	area := 0.0
	for _, w := range b.Geometries {
		geom, err := wkt.Unmarshal(w)
		if err != nil {
			continue
		}
		area += planar.Area(geom)
	}
	return area
}
