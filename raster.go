package segpost

import (
	"github.com/geoseg/segpost/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 读取待推理图幅，像素归一化到0~1；
// jpg等无投影影像的gt与srid为零值，由保存环节判错
func (g *GdalToolbox) ReadTile(tile string) (img *Image, gt [6]float64, srid int, err error) {
	sds, err := gdal.Open(tile, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tile failed", zap.String("tile", tile), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	tifBands := sds.Bands()
	bc := len(tifBands)
	if bc == 0 {
		log.Error(g.logTag+"tile has no bands", zap.String("tile", tile))
		err = ErrWrongTif
		return
	}
	if t, gErr := sds.GeoTransform(); gErr == nil {
		gt = t
	}
	if wkt := sds.Projection(); wkt != "" {
		if srid, err = g.sridFromWKT(wkt); err != nil {
			log.Warn(g.logTag+"tile srid unresolved", zap.String("tile", tile), zap.Error(err))
			srid = 0
			err = nil
		}
	}
	bandStruct := tifBands[0].Structure()
	x := bandStruct.SizeX
	y := bandStruct.SizeY
	img = &Image{
		Width:    x,
		Height:   y,
		Channels: 3,
		Pix:      make([]float32, x*y*3),
	}
	buf := make([]uint8, x*y)
	for i := 0; i < 3; i++ {
		bandIdx := i
		if bandIdx >= bc { // 单波段灰度影像复制到三通道
			bandIdx = bc - 1
		}
		if err = tifBands[bandIdx].IO(gdal.IORead, 0, 0, buf, x, y); err != nil {
			log.Error(g.logTag+"read tile band failed", zap.String("tile", tile), zap.Int("band", bandIdx), zap.Error(err))
			err = ErrTifReadFailed
			return
		}
		for j, v := range buf {
			img.Pix[j*3+i] = float32(v) / 255
		}
	}
	return
}

// 将清理后的掩膜保存为单波段LZW压缩GTiff，沿用图幅的投影与变换参数
func (g *GdalToolbox) SavePredictionRaster(out string, m *Mask, gt [6]float64, srid int) (err error) {
	if gt[1] == 0 {
		return ErrMissingGeoTransform
	}
	ds, err := gdal.Create(gdal.GTiff, out, 1, gdal.Byte, m.Width, m.Height,
		gdal.CreationOption("COMPRESS=LZW", "PREDICTOR=2"))
	if err != nil {
		log.Error(g.logTag+"create pred tif failed", zap.String("out", out), zap.Error(err))
		return ErrGdalDriverCreate
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(gt); err != nil {
		return
	}
	if srid > 0 {
		var wkt string
		if wkt, err = g.sridToWKT(srid); err != nil {
			return
		}
		if err = ds.SetProjection(wkt); err != nil {
			return
		}
	}
	band := ds.Bands()[0]
	if err = band.IO(gdal.IOWrite, 0, 0, m.Pix, m.Width, m.Height); err != nil {
		log.Error(g.logTag+"write pred tif failed", zap.String("out", out), zap.Error(err))
	}
	return
}

// 读取真值掩膜（评估用），保留原始像素值：
// 二分类掩膜为0/255，多分类掩膜像素值即类别序号
func (g *GdalToolbox) ReadMaskRaster(path string) (m *Mask, err error) {
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open mask failed", zap.String("mask", path), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	tifBands := sds.Bands()
	if len(tifBands) == 0 {
		err = ErrWrongTif
		return
	}
	band := tifBands[0]
	bandStruct := band.Structure()
	x := bandStruct.SizeX
	y := bandStruct.SizeY
	m = &Mask{
		Width:  x,
		Height: y,
		Pix:    make([]uint8, x*y),
	}
	if err = band.IO(gdal.IORead, 0, 0, m.Pix, x, y); err != nil {
		log.Error(g.logTag+"read mask failed", zap.String("mask", path), zap.Error(err))
		err = ErrTifReadFailed
	}
	return
}
