package segpost

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestCollectVectorFiles(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"a_pred.geojson", "sub/b_pred.geojson", "c.txt"} {
		p := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := collectVectorFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatal(files)
	}

	single := filepath.Join(dir, "a_pred.geojson")
	files, err = collectVectorFiles(single)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != single {
		t.Fatal(files)
	}

	if _, err = collectVectorFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expect stat error")
	}
}

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func TestDissolveGroupsByClass(t *testing.T) {
	g := NewGdalToolbox()
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "dissolved.geojson")
	fc1 := &FeatureCollection{Srid: 4326, Features: []Feature{
		{Geom: square(0, 0), ClassName: "pond"},
		{Geom: square(1, 0), ClassName: "road"},
	}}
	fc2 := &FeatureCollection{Srid: 4326, Features: []Feature{
		{Geom: square(0, 1), ClassName: "pond"},
	}}
	if err := g.WriteVectorGeoJSON(filepath.Join(in, "t1"+PredVectorSuffix), fc1); err != nil {
		t.Fatal(err)
	}
	if err := g.WriteVectorGeoJSON(filepath.Join(in, "t2"+PredVectorSuffix), fc2); err != nil {
		t.Fatal(err)
	}
	err := g.Dissolve(context.Background(), DissolveOptions{InputPath: in, OutputPath: out})
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.ReadVectorGeoJSON(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Srid != 4326 {
		t.Fatal(got.Srid)
	}
	byClass := map[string]int{}
	for _, f := range got.Features {
		byClass[f.ClassName]++
		// 同类相邻图斑合并后面积累加
		if f.ClassName == "pond" && f.Area < 1.5 {
			t.Fatal(f.Area)
		}
	}
	// 相邻但异类的图斑绝不合并
	if byClass["pond"] != 1 || byClass["road"] != 1 {
		t.Fatal(byClass)
	}
}

// 指定分块shp时，跨块图斑按分块切开，每块只合并与其相交的图斑
func TestDissolveClipsPerTile(t *testing.T) {
	g := NewGdalToolbox()
	in := t.TempDir()
	tilesShp := filepath.Join(t.TempDir(), "tiles.shp")
	out := filepath.Join(t.TempDir(), "dissolved.geojson")

	tiles := &FeatureCollection{Srid: 4326, Features: []Feature{
		{Geom: square(0, 0), ClassName: "t1"},
		{Geom: square(1, 0), ClassName: "t2"},
	}}
	if err := g.WriteVectorShapefile(tilesShp, tiles); err != nil {
		t.Fatal(err)
	}
	// 横跨两个分块的单个图斑
	span := orb.Polygon{{{0, 0}, {2, 0}, {2, 1}, {0, 1}, {0, 0}}}
	fc := &FeatureCollection{Srid: 4326, Features: []Feature{{Geom: span, ClassName: "pond"}}}
	if err := g.WriteVectorGeoJSON(filepath.Join(in, "t1"+PredVectorSuffix), fc); err != nil {
		t.Fatal(err)
	}

	opts := DissolveOptions{InputPath: in, OutputPath: out, TilesPath: tilesShp}
	if err := g.Dissolve(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	got, err := g.ReadVectorGeoJSON(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Features) != 2 {
		t.Fatal(got.Features)
	}
	for _, f := range got.Features {
		if f.ClassName != "pond" {
			t.Fatal(f.ClassName)
		}
		if f.Area < 0.9 || f.Area > 1.1 {
			t.Fatal(f.Area)
		}
	}
}

func TestDissolveIdempotent(t *testing.T) {
	g := NewGdalToolbox()
	out := filepath.Join(t.TempDir(), "dissolved.geojson")
	if err := os.WriteFile(out, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := g.Dissolve(context.Background(), DissolveOptions{InputPath: t.TempDir(), OutputPath: out})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "keep" {
		t.Fatal("existing output overwritten")
	}
}

func TestDissolveEmptyInput(t *testing.T) {
	g := NewGdalToolbox()
	opts := DissolveOptions{InputPath: t.TempDir(), OutputPath: filepath.Join(t.TempDir(), "o.geojson")}
	if err := g.Dissolve(context.Background(), opts); err != ErrEmptyDissolveInput {
		t.Fatal(err)
	}
}

func TestDissolveMissingCRS(t *testing.T) {
	g := NewGdalToolbox()
	in := t.TempDir()
	fc := &FeatureCollection{Features: []Feature{{Geom: square(0, 0), ClassName: "pond"}}}
	if err := g.WriteVectorGeoJSON(filepath.Join(in, "t"+PredVectorSuffix), fc); err != nil {
		t.Fatal(err)
	}
	opts := DissolveOptions{InputPath: in, OutputPath: filepath.Join(t.TempDir(), "o.geojson")}
	if err := g.Dissolve(context.Background(), opts); err != ErrMissingCRS {
		t.Fatal(err)
	}
}
