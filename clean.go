package segpost

import "math"

// 将模型单通道预测清理为确定性的uint8掩膜：
// float32按round(v*255)量化，binary模式下以127为界二值化，
// 最后把四周borderPixels宽的边界像素清零。纯函数，不触碰文件系统。
func CleanPrediction(arr *Array, borderPixels int, depth ColorDepth) (*Mask, error) {
	if arr == nil || (arr.F32 == nil && arr.U8 == nil) || (arr.F32 != nil && arr.U8 != nil) {
		return nil, ErrInvalidPrediction
	}
	if arr.Channels > 1 {
		return nil, ErrInvalidPrediction
	}
	if depth != ColorDepthBinary && depth != ColorDepthFull {
		return nil, ErrInvalidPrediction
	}
	n := arr.Width * arr.Height
	if n <= 0 {
		return nil, ErrInvalidPrediction
	}
	if (arr.F32 != nil && len(arr.F32) != n) || (arr.U8 != nil && len(arr.U8) != n) {
		return nil, ErrInvalidPrediction
	}

	m := &Mask{
		Width:  arr.Width,
		Height: arr.Height,
		Pix:    make([]uint8, n),
	}
	if arr.F32 != nil {
		for i, v := range arr.F32 {
			q := math.Round(float64(v) * 255)
			if q < 0 {
				q = 0
			} else if q > 255 {
				q = 255
			}
			m.Pix[i] = uint8(q)
		}
	} else {
		copy(m.Pix, arr.U8)
	}

	if depth == ColorDepthBinary {
		for i, v := range m.Pix {
			if v >= BinaryThreshold {
				m.Pix[i] = 255
			} else {
				m.Pix[i] = 0
			}
		}
	}

	blankBorder(m, borderPixels)
	return m, nil
}

// 四周边界像素清零，b为0时不做任何事
func blankBorder(m *Mask, b int) {
	if b <= 0 {
		return
	}
	if b*2 >= m.Width || b*2 >= m.Height {
		for i := range m.Pix {
			m.Pix[i] = 0
		}
		return
	}
	w, h := m.Width, m.Height
	for y := 0; y < h; y++ {
		if y < b || y >= h-b {
			row := m.Pix[y*w : (y+1)*w]
			for i := range row {
				row[i] = 0
			}
			continue
		}
		for x := 0; x < b; x++ {
			m.Pix[y*w+x] = 0
			m.Pix[y*w+w-1-x] = 0
		}
	}
}

// 以threshold为界生成二值副本
func ToBinaryUint8(m *Mask, threshold uint8) *Mask {
	if m == nil {
		return nil
	}
	out := &Mask{
		Width:  m.Width,
		Height: m.Height,
		Pix:    make([]uint8, len(m.Pix)),
	}
	for i, v := range m.Pix {
		if v >= threshold {
			out.Pix[i] = 255
		}
	}
	return out
}
