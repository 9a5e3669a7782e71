package segpost

import (
	"github.com/paulmach/orb"
)

type GdalGeo = []byte

// 色深：binary输出{0,255}，full输出0~255
type ColorDepth string

const (
	ColorDepthBinary ColorDepth = "binary"
	ColorDepthFull   ColorDepth = "full"
)

// 抽稀算法
type SimplifyAlgorithm string

const (
	SimplifyRDP SimplifyAlgorithm = "rdp" // Ramer-Douglas-Peucker
	SimplifyVW  SimplifyAlgorithm = "vw"  // Visvalingam-Whyatt
)

type SimplifyConfig struct {
	Algorithm SimplifyAlgorithm
	Tolerance float64
}

// 模型单通道/多通道预测结果，F32与U8二选一，行优先、通道交织存储
type Array struct {
	Width    int
	Height   int
	Channels int
	F32      []float32 // 0~1
	U8       []uint8
}

// 取出单个通道（拷贝）
func (a *Array) Channel(idx int) *Array {
	ch := &Array{
		Width:    a.Width,
		Height:   a.Height,
		Channels: 1,
	}
	n := a.Width * a.Height
	if a.Channels == 1 {
		ch.F32 = a.F32
		ch.U8 = a.U8
		return ch
	}
	if a.F32 != nil {
		ch.F32 = make([]float32, n)
		for i := 0; i < n; i++ {
			ch.F32[i] = a.F32[i*a.Channels+idx]
		}
	} else if a.U8 != nil {
		ch.U8 = make([]uint8, n)
		for i := 0; i < n; i++ {
			ch.U8[i] = a.U8[i*a.Channels+idx]
		}
	}
	return ch
}

// 清理后的uint8掩膜，行优先
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// 是否存在不小于v的像素（用于空预测短路）
func (m *Mask) AnyAtLeast(v uint8) bool {
	for _, p := range m.Pix {
		if p >= v {
			return true
		}
	}
	return false
}

// 白色（255）像素个数
func (m *Mask) CountWhite() (n int) {
	for _, p := range m.Pix {
		if p == 255 {
			n++
		}
	}
	return
}

// 推理输入影像，W×H×3，float32归一化到0~1
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// 批量推理模型（外部协作方），输出与输入顺序一致
type Predictor interface {
	PredictBatch(images []*Image) ([]*Array, error)
}

// 矢量要素
type Feature struct {
	Geom      orb.Geometry
	ClassName string
	Area      float64
	OnBorder  bool
	NbCoords  int
}

type FeatureCollection struct {
	Srid     int
	Features []Feature
}

func (fc *FeatureCollection) Empty() bool {
	return fc == nil || len(fc.Features) == 0
}

type PredictOptions struct {
	InputDir             string
	OutputDir            string
	InputExts            []string // 默认{.tif,.jpg}
	Classes              []string
	BatchSize            int
	BorderPixelsToIgnore int
	MinPixelValueForSave int
	Simplify             *SimplifyConfig
	InputMaskDir         string // 评估用真值掩膜目录，可为空
	EvaluateMode         bool
	Force                bool
}

type DissolveOptions struct {
	InputPath  string // 单个geojson或目录（递归）
	OutputPath string // .geojson或.shp
	TilesPath  string // 分块shp，可为空
	Force      bool
}
