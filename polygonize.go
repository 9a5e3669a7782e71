package segpost

import (
	"github.com/geoseg/segpost/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
)

// 单通道掩膜矢量化：先以125为界二值化，经内存栅格Polygonize成面，
// 再抽稀并计算area/onborder/nbcoords属性。全黑掩膜返回空集合。
func (g *GdalToolbox) PolygonizePrediction(m *Mask, gt [6]float64, srid int, className string,
	borderPixels int, simplify *SimplifyConfig) (fc *FeatureCollection, err error) {
	if gt[1] == 0 { // 无投影影像退化为像素坐标
		gt = [6]float64{0, 1, 0, 0, 0, -1}
	}
	fc = &FeatureCollection{Srid: srid}
	bin := ToBinaryUint8(m, PolygonizeThreshold)
	if !bin.AnyAtLeast(255) {
		return
	}
	ds, err := gdal.Create(gdal.Memory, "", 1, gdal.Byte, m.Width, m.Height)
	if err != nil {
		log.Error(g.logTag+"create mem raster failed", zap.Error(err))
		err = ErrGdalDriverCreate
		return
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(gt); err != nil {
		return
	}
	var sr *gdal.SpatialRef
	if srid > 0 {
		if sr, err = gdal.NewSpatialRefFromEPSG(srid); err != nil {
			log.Error(g.logTag+"mem raster srid failed", zap.Int("srid", srid), zap.Error(err))
			return
		}
		defer sr.Close()
		if err = ds.SetSpatialRef(sr); err != nil {
			return
		}
	}
	band := ds.Bands()[0]
	if err = band.IO(gdal.IOWrite, 0, 0, bin.Pix, m.Width, m.Height); err != nil {
		return
	}
	vds, err := gdal.CreateVector(gdal.Memory, "")
	if err != nil {
		log.Error(g.logTag+"create mem vector failed", zap.Error(err))
		err = ErrGdalDriverCreate
		return
	}
	defer vds.Close()
	layer, err := vds.CreateLayer("pred", sr, gdal.GTPolygon,
		gdal.NewFieldDefinition("dn", gdal.FTInt))
	if err != nil {
		return
	}
	// 以自身为掩膜，零值像素不参与组面；8连通避免斜接图斑断开
	if err = band.Polygonize(layer, gdal.PixelValueFieldIndex(0), gdal.Mask(band), gdal.EightConnected()); err != nil {
		log.Error(g.logTag+"polygonize failed", zap.Error(err))
		return
	}

	border := borderBounds(m.Width, m.Height, borderPixels, gt)
	hasBorder := borderPixels > 0
	layer.ResetReading()
	for {
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		raw, e := feat.Geometry().WKB()
		if e != nil {
			log.Error(g.logTag+"feature wkb failed", zap.Error(e))
			continue
		}
		geom, e := wkb.Unmarshal(raw)
		if e != nil {
			log.Error(g.logTag+"wkb decode failed", zap.Error(e))
			continue
		}
		if geom, err = simplifyGeometry(geom, simplify, border, hasBorder); err != nil {
			return
		}
		if geom == nil {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Geom:      geom,
			ClassName: className,
			Area:      abs(planar.Area(geom)), // 环绕向不定，面积取绝对值
			OnBorder:  hasBorder && onBorder(geom.Bound(), border),
			NbCoords:  countCoords(geom),
		})
	}
	log.Info(g.logTag+"polygonized mask", zap.String("class", className),
		zap.Int("features", len(fc.Features)), zap.Int("srid", srid))
	return
}

// 多通道预测矢量化，逐通道清理并组面，通道序号即类别序号。
// 背景通道不在此处跳过，是否出背景图斑由上层的出图环节决定。
// 通道清理后无像素达到minPixelValue的直接跳过，省掉空预测的组面开销。
func (g *GdalToolbox) PolygonizeMulticlass(arr *Array, classes []string, gt [6]float64, srid int,
	minPixelValue, borderPixels int, simplify *SimplifyConfig) (fc *FeatureCollection, err error) {
	if len(classes) == 0 {
		err = ErrEmptyClassNames
		return
	}
	if len(classes) != arr.Channels {
		err = ErrClassChannelCount
		return
	}
	if srid <= 0 {
		err = ErrMissingCRS
		return
	}
	fc = &FeatureCollection{Srid: srid}
	for ch := 0; ch < arr.Channels; ch++ {
		var m *Mask
		if m, err = CleanPrediction(arr.Channel(ch), borderPixels, ColorDepthBinary); err != nil {
			return
		}
		if minPixelValue > 0 && !m.AnyAtLeast(uint8(minPixelValue)) {
			continue
		}
		var part *FeatureCollection
		if part, err = g.PolygonizePrediction(m, gt, srid, classes[ch], borderPixels, simplify); err != nil {
			return
		}
		fc.Features = append(fc.Features, part.Features...)
	}
	return
}
