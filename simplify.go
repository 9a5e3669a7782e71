package segpost

import (
	"math"

	"github.com/paulmach/orb"
)

// 几何抽稀。落在边界框边线上的顶点是锚点，抽稀不会移除，
// 保证相邻图幅在接边处的顶点一致，融合时能够无缝拼合。
func simplifyGeometry(geom orb.Geometry, cfg *SimplifyConfig, border orb.Bound, hasBorder bool) (orb.Geometry, error) {
	if cfg == nil || cfg.Tolerance <= 0 {
		return geom, nil
	}
	switch cfg.Algorithm {
	case SimplifyRDP, SimplifyVW:
	default:
		return nil, ErrUnknownSimplify
	}
	switch t := geom.(type) {
	case orb.Polygon:
		return simplifyPolygon(t, cfg, border, hasBorder), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(t))
		for _, p := range t {
			if sp := simplifyPolygon(p, cfg, border, hasBorder); sp != nil {
				out = append(out, sp)
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	default:
		return geom, nil
	}
}

// 外环退化则整个多边形作废，内环退化则丢弃该内环
func simplifyPolygon(p orb.Polygon, cfg *SimplifyConfig, border orb.Bound, hasBorder bool) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for i, ring := range p {
		sr := simplifyRing(ring, cfg, border, hasBorder)
		if len(sr) < 4 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, sr)
	}
	return out
}

func simplifyRing(ring orb.Ring, cfg *SimplifyConfig, border orb.Bound, hasBorder bool) orb.Ring {
	n := len(ring)
	if n < 5 { // 闭合环最少4点，再少无可抽稀
		return ring
	}
	pts := []orb.Point(ring[:n-1]) // 去掉闭合重复点
	var anchors []int
	if hasBorder {
		for i, p := range pts {
			if onBorderLine(p, border) {
				anchors = append(anchors, i)
			}
		}
	}
	var kept []orb.Point
	if len(anchors) == 0 {
		// 无锚点时以首点为固定端简化整环
		closed := append(append([]orb.Point{}, pts...), pts[0])
		kept = simplifySegment(closed, cfg)
		kept = kept[:len(kept)-1]
	} else {
		// 以锚点切分为若干链，逐链简化后拼接
		m := len(anchors)
		for k := 0; k < m; k++ {
			start := anchors[k]
			end := anchors[(k+1)%m]
			chain := sliceRing(pts, start, end)
			sc := simplifySegment(chain, cfg)
			kept = append(kept, sc[:len(sc)-1]...) // 链尾即下一链首，避免重复
		}
	}
	if len(kept) < 3 {
		return nil
	}
	out := make(orb.Ring, 0, len(kept)+1)
	out = append(out, kept...)
	out = append(out, kept[0])
	return out
}

// 取环上start到end（含两端）的顶点链，支持回绕
func sliceRing(pts []orb.Point, start, end int) []orb.Point {
	n := len(pts)
	if start < end {
		return append([]orb.Point{}, pts[start:end+1]...)
	}
	out := append([]orb.Point{}, pts[start:]...)
	return append(out, pts[:end+1]...)
}

// 简化一条首尾固定的顶点链
func simplifySegment(pts []orb.Point, cfg *SimplifyConfig) []orb.Point {
	if len(pts) <= 2 {
		return pts
	}
	if cfg.Algorithm == SimplifyVW {
		return vwSegment(pts, cfg.Tolerance)
	}
	return rdpSegment(pts, cfg.Tolerance)
}

// Ramer-Douglas-Peucker
func rdpSegment(pts []orb.Point, tol float64) []orb.Point {
	if len(pts) <= 2 {
		return pts
	}
	maxDist, maxIdx := 0.0, 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegDist(pts[i], a, b); d > maxDist {
			maxDist, maxIdx = d, i
		}
	}
	if maxDist <= tol {
		return []orb.Point{a, b}
	}
	left := rdpSegment(pts[:maxIdx+1], tol)
	right := rdpSegment(pts[maxIdx:], tol)
	return append(left[:len(left)-1], right...)
}

// Visvalingam-Whyatt，逐次剔除有效三角形面积最小的顶点。
// tol按长度量纲换算为面积阈值，与rdp参数口径保持一致。
func vwSegment(pts []orb.Point, tol float64) []orb.Point {
	areaTol := tol * tol
	out := append([]orb.Point{}, pts...)
	for len(out) > 2 {
		minArea, minIdx := -1.0, -1
		for i := 1; i < len(out)-1; i++ {
			a := triangleArea(out[i-1], out[i], out[i+1])
			if minIdx < 0 || a < minArea {
				minArea, minIdx = a, i
			}
		}
		if minArea > areaTol {
			break
		}
		out = append(out[:minIdx], out[minIdx+1:]...)
	}
	return out
}

func triangleArea(a, b, c orb.Point) float64 {
	return abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1])) / 2
}

// 点到线段的距离
func pointSegDist(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		dx, dy = p[0]-a[0], p[1]-a[1]
		return math.Sqrt(dx*dx + dy*dy)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	px, py := a[0]+t*dx-p[0], a[1]+t*dy-p[1]
	return math.Sqrt(px*px + py*py)
}

// 几何总顶点数
func countCoords(geom orb.Geometry) (n int) {
	switch t := geom.(type) {
	case orb.Polygon:
		for _, r := range t {
			n += len(r)
		}
	case orb.MultiPolygon:
		for _, p := range t {
			for _, r := range p {
				n += len(r)
			}
		}
	case orb.Ring:
		n = len(t)
	case orb.LineString:
		n = len(t)
	case orb.Point:
		n = 1
	}
	return
}
