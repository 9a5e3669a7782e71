package segpost

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestGeoJSONRoundTrip(t *testing.T) {
	g := NewGdalToolbox()
	fc := &FeatureCollection{
		Srid: 4490,
		Features: []Feature{
			{
				Geom:      orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
				ClassName: "greenhouse",
				Area:      100,
				OnBorder:  true,
				NbCoords:  5,
			},
			{
				Geom:      orb.Polygon{{{20, 20}, {21, 20}, {21, 21}, {20, 20}}},
				ClassName: "pond",
				Area:      0.5,
				NbCoords:  4,
			},
		},
	}
	out := filepath.Join(t.TempDir(), "tile"+PredVectorSuffix)
	if err := g.WriteVectorGeoJSON(out, fc); err != nil {
		t.Fatal(err)
	}
	got, err := g.ReadVectorGeoJSON(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Srid != 4490 {
		t.Fatal(got.Srid)
	}
	if len(got.Features) != 2 {
		t.Fatal(len(got.Features))
	}
	f := got.Features[0]
	if f.ClassName != "greenhouse" || f.Area != 100 || !f.OnBorder || f.NbCoords != 5 {
		t.Fatalf("%+v", f)
	}
	if got.Features[1].OnBorder {
		t.Fatal("onborder leaked")
	}
}

func TestSridFromCrsMember(t *testing.T) {
	extra := geojson.Properties{
		"crs": map[string]interface{}{
			"type": "name",
			"properties": map[string]interface{}{
				"name": "urn:ogc:def:crs:EPSG::4490",
			},
		},
	}
	if srid := sridFromCrsMember(extra); srid != 4490 {
		t.Fatal(srid)
	}
	extra["crs"].(map[string]interface{})["properties"].(map[string]interface{})["name"] = "EPSG:3857"
	if srid := sridFromCrsMember(extra); srid != 3857 {
		t.Fatal(srid)
	}
	if srid := sridFromCrsMember(geojson.Properties{}); srid != 0 {
		t.Fatal(srid)
	}
}
