package segpost

import (
	"math"
	"testing"
)

func squareMask(size, off, side int) *Mask {
	m := &Mask{Width: size, Height: size, Pix: make([]uint8, size*size)}
	for y := off; y < off+side; y++ {
		for x := off; x < off+side; x++ {
			m.Pix[y*size+x] = 255
		}
	}
	return m
}

func TestPolygonizeRectangleArea(t *testing.T) {
	g := NewGdalToolbox()
	gt := [6]float64{100, 0.5, 0, 200, 0, -0.5}
	m := squareMask(20, 5, 10)
	fc, err := g.PolygonizePrediction(m, gt, 4326, "greenhouse", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Fatal(len(fc.Features))
	}
	f := fc.Features[0]
	if f.ClassName != "greenhouse" {
		t.Fatal(f.ClassName)
	}
	// 10x10像素，像元0.5x0.5
	if math.Abs(f.Area-25) > 1e-6 {
		t.Fatal(f.Area)
	}
	if f.OnBorder {
		t.Fatal("inner square flagged onborder")
	}
}

func TestPolygonizeAllBlack(t *testing.T) {
	g := NewGdalToolbox()
	m := &Mask{Width: 8, Height: 8, Pix: make([]uint8, 64)}
	fc, err := g.PolygonizePrediction(m, [6]float64{0, 1, 0, 0, 0, -1}, 4326, "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !fc.Empty() {
		t.Fatal(fc.Features)
	}
}

func TestPolygonizeMulticlassChannelTwo(t *testing.T) {
	g := NewGdalToolbox()
	size, channels := 20, 4
	arr := &Array{Width: size, Height: size, Channels: channels, F32: make([]float32, size*size*channels)}
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			arr.F32[(y*size+x)*channels+2] = 1
		}
	}
	classes := []string{BackgroundClassName, "pond", "greenhouse", "road"}
	gt := [6]float64{100, 0.5, 0, 200, 0, -0.5}
	fc, err := g.PolygonizeMulticlass(arr, classes, gt, 4326, DefaultMinPixelValue, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Fatal(len(fc.Features))
	}
	f := fc.Features[0]
	if f.ClassName != "greenhouse" {
		t.Fatal(f.ClassName)
	}
	if math.Abs(f.Area-25) > 1e-6 {
		t.Fatal(f.Area)
	}
}

// 第0通道同样参与矢量化，不在聚合层跳过
func TestPolygonizeMulticlassChannelZero(t *testing.T) {
	g := NewGdalToolbox()
	size, channels := 20, 2
	arr := &Array{Width: size, Height: size, Channels: channels, F32: make([]float32, size*size*channels)}
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			arr.F32[(y*size+x)*channels] = 1
		}
	}
	gt := [6]float64{100, 0.5, 0, 200, 0, -0.5}
	fc, err := g.PolygonizeMulticlass(arr, []string{BackgroundClassName, "road"}, gt, 4326, DefaultMinPixelValue, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Fatal(len(fc.Features))
	}
	if fc.Features[0].ClassName != BackgroundClassName {
		t.Fatal(fc.Features[0].ClassName)
	}
}

func TestPolygonizeMulticlassInvariants(t *testing.T) {
	g := NewGdalToolbox()
	arr := &Array{Width: 2, Height: 2, Channels: 2, F32: make([]float32, 8)}
	gt := [6]float64{0, 1, 0, 0, 0, -1}
	if _, err := g.PolygonizeMulticlass(arr, []string{BackgroundClassName}, gt, 4326, 0, 0, nil); err != ErrClassChannelCount {
		t.Fatal(err)
	}
	if _, err := g.PolygonizeMulticlass(arr, []string{BackgroundClassName, "road"}, gt, 0, 0, 0, nil); err != ErrMissingCRS {
		t.Fatal(err)
	}
	if _, err := g.PolygonizeMulticlass(arr, nil, gt, 4326, 0, 0, nil); err != ErrEmptyClassNames {
		t.Fatal(err)
	}
}
