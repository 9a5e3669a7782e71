package segpost

import "github.com/paulmach/orb"

// GDAL仿射变换参数次序：[原点x, x像元宽, 旋转, 原点y, 旋转, y像元高(负)]

func pixelsizeX(gt [6]float64) float64 {
	return gt[1]
}

func pixelsizeY(gt [6]float64) float64 {
	return -gt[5]
}

// 栅格整幅的投影范围
func rasterBounds(width, height int, gt [6]float64) orb.Bound {
	minX := gt[0]
	maxX := gt[0] + float64(width)*gt[1]
	maxY := gt[3]
	minY := gt[3] + float64(height)*gt[5]
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// 按忽略边界像素数向内收缩的范围，抽稀保点与onborder判断均以此为准
func borderBounds(width, height, borderPixels int, gt [6]float64) orb.Bound {
	b := rasterBounds(width, height, gt)
	dx := float64(borderPixels) * pixelsizeX(gt)
	dy := float64(borderPixels) * pixelsizeY(gt)
	return orb.Bound{
		Min: orb.Point{b.Min[0] + dx, b.Min[1] + dy},
		Max: orb.Point{b.Max[0] - dx, b.Max[1] - dy},
	}
}

// 几何外包络是否触及或越过收缩后的边界框
func onBorder(geomBound, border orb.Bound) bool {
	return geomBound.Min[0] <= border.Min[0]+BorderSnapEps ||
		geomBound.Min[1] <= border.Min[1]+BorderSnapEps ||
		geomBound.Max[0] >= border.Max[0]-BorderSnapEps ||
		geomBound.Max[1] >= border.Max[1]-BorderSnapEps
}

// 点是否落在边界框的某条边上
func onBorderLine(p orb.Point, border orb.Bound) bool {
	onX := p[0] >= border.Min[0]-BorderSnapEps && p[0] <= border.Max[0]+BorderSnapEps
	onY := p[1] >= border.Min[1]-BorderSnapEps && p[1] <= border.Max[1]+BorderSnapEps
	if !onX || !onY {
		return false
	}
	return abs(p[0]-border.Min[0]) <= BorderSnapEps ||
		abs(p[0]-border.Max[0]) <= BorderSnapEps ||
		abs(p[1]-border.Min[1]) <= BorderSnapEps ||
		abs(p[1]-border.Max[1]) <= BorderSnapEps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
