package segpost

import (
	"path/filepath"
	"testing"
)

// 评估矢量要带上源影像坐标系
func TestSaveEvalVectorKeepsCRS(t *testing.T) {
	g := NewGdalToolbox()
	r, err := NewPredictRunner(g, nil, PredictOptions{Classes: []string{"pond"}})
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "tile_pond_pred.geojson")
	m := squareMask(20, 5, 10)
	gt := [6]float64{100, 0.5, 0, 200, 0, -0.5}
	if err = r.saveEvalVector(out, m, gt, 4326, "pond"); err != nil {
		t.Fatal(err)
	}
	fc, err := g.ReadVectorGeoJSON(out)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Srid != 4326 {
		t.Fatal(fc.Srid)
	}
	if len(fc.Features) != 1 || fc.Features[0].ClassName != "pond" {
		t.Fatal(fc.Features)
	}
}

func TestScorePrefixNoMask(t *testing.T) {
	black := &Mask{Width: 2, Height: 2, Pix: []uint8{0, 0, 0, 0}}
	if p := scorePrefix(black, nil); p != AllBlackPrefix {
		t.Fatal(p)
	}
	half := &Mask{Width: 2, Height: 2, Pix: []uint8{255, 255, 0, 0}}
	if p := scorePrefix(half, nil); p != "0.500_" {
		t.Fatal(p)
	}
}

func TestScorePrefixWithMask(t *testing.T) {
	pred := &Mask{Width: 2, Height: 2, Pix: []uint8{255, 0, 255, 0}}
	gt := &Mask{Width: 2, Height: 2, Pix: []uint8{255, 0, 0, 0}}
	if p := scorePrefix(pred, gt); p != "0.750_" {
		t.Fatal(p)
	}
	if p := scorePrefix(pred, pred); p != "1.000_" {
		t.Fatal(p)
	}
	// 双方全黑属于完全命中，按准确率出1.000_而非垫底前缀
	black := &Mask{Width: 2, Height: 2, Pix: []uint8{0, 0, 0, 0}}
	if p := scorePrefix(black, black); p != "1.000_" {
		t.Fatal(p)
	}
}

func TestOneHotMask(t *testing.T) {
	gt := &Mask{Width: 4, Height: 1, Pix: []uint8{0, 1, 2, 2}}
	ch2 := oneHotMask(gt, 2, true)
	want := []uint8{0, 0, 255, 255}
	for i, v := range want {
		if ch2.Pix[i] != v {
			t.Fatal(ch2.Pix)
		}
	}
	binary := oneHotMask(&Mask{Width: 2, Height: 1, Pix: []uint8{0, 255}}, 0, false)
	if binary.Pix[0] != 0 || binary.Pix[1] != 255 {
		t.Fatal(binary.Pix)
	}
	if oneHotMask(nil, 0, false) != nil {
		t.Fatal("nil passthrough")
	}
}

func TestPixelsizeOrOne(t *testing.T) {
	if v := pixelsizeOrOne([6]float64{}); v != 1 {
		t.Fatal(v)
	}
	if v := pixelsizeOrOne([6]float64{100, 0.5, 0, 200, 0, -0.5}); v != 0.5 {
		t.Fatal(v)
	}
}
