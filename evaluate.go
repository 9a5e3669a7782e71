package segpost

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/geoseg/segpost/log"
	"github.com/geoseg/segpost/utils"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb/simplify"
	"go.uber.org/zap"
)

// 评估模式单幅处理：输出打分前缀文件名，平铺到评估目录，
// 并把原图与真值掩膜复制到旁边便于人工抽查。
// 有真值时前缀为像素准确率，无真值时为黑色像素占比，
// 无真值的全黑预测用1.001_前缀垫底排序。
func (r *PredictRunner) evaluateTile(rel string, arr *Array, gt [6]float64, srid int) (err error) {
	if err = os.MkdirAll(r.opts.OutputDir, os.ModePerm); err != nil {
		return
	}
	flatStem := strings.ReplaceAll(strings.TrimSuffix(rel, filepath.Ext(rel)), string(filepath.Separator), "_")

	var gtMask *Mask
	if r.opts.InputMaskDir != "" {
		maskPath := filepath.Join(r.opts.InputMaskDir, rel)
		if utils.FileExists(maskPath) {
			if gtMask, err = r.g.ReadMaskRaster(maskPath); err != nil {
				return
			}
		}
	}

	start := 0
	if arr.Channels > 1 {
		if r.opts.Classes[0] != BackgroundClassName {
			return ErrBackgroundClass
		}
		start = 1
	}
	for ch := start; ch < arr.Channels; ch++ {
		var bin *Mask
		if bin, err = CleanPrediction(arr.Channel(ch), r.opts.BorderPixelsToIgnore, ColorDepthBinary); err != nil {
			return
		}
		// 多分类真值按通道序号独热展开后再比对
		gtBin := oneHotMask(gtMask, uint8(ch), arr.Channels > 1)
		if gtBin != nil {
			blankBorder(gtBin, r.opts.BorderPixelsToIgnore)
		}
		prefix := scorePrefix(bin, gtBin)
		base := prefix + flatStem + "_" + r.opts.Classes[ch]

		var full *Mask
		if full, err = CleanPrediction(arr.Channel(ch), r.opts.BorderPixelsToIgnore, ColorDepthFull); err != nil {
			return
		}
		// 同名产物不覆盖
		if out := filepath.Join(r.opts.OutputDir, base+"_pred.png"); !utils.FileExists(out) {
			if err = r.savePreviewPNG(out, full); err != nil {
				return
			}
		}
		if out := filepath.Join(r.opts.OutputDir, base+PredRasterSuffix); !utils.FileExists(out) &&
			gt[1] != 0 && bin.AnyAtLeast(uint8(r.opts.MinPixelValueForSave)) {
			if err = r.g.SavePredictionRaster(out, bin, gt, srid); err != nil {
				return
			}
		}
		if out := filepath.Join(r.opts.OutputDir, base+PredVectorSuffix); !utils.FileExists(out) {
			if err = r.saveEvalVector(out, bin, gt, srid, r.opts.Classes[ch]); err != nil {
				return
			}
		}
	}

	// 原图与真值掩膜就近归档，已存在则跳过
	if err = utils.CopyFileIfAbsent(filepath.Join(r.opts.InputDir, rel),
		filepath.Join(r.opts.OutputDir, flatStem+filepath.Ext(rel))); err != nil {
		return
	}
	if gtMask != nil {
		err = utils.CopyFileIfAbsent(filepath.Join(r.opts.InputMaskDir, rel),
			filepath.Join(r.opts.OutputDir, flatStem+"_mask"+filepath.Ext(rel)))
	}
	return
}

// 真值掩膜独热展开：多分类时像素值等于类别序号的为前景，
// 二分类时任意非零像素为前景
func oneHotMask(gt *Mask, classIdx uint8, multi bool) *Mask {
	if gt == nil {
		return nil
	}
	out := &Mask{
		Width:  gt.Width,
		Height: gt.Height,
		Pix:    make([]uint8, len(gt.Pix)),
	}
	for i, v := range gt.Pix {
		if (multi && v == classIdx) || (!multi && v > 0) {
			out.Pix[i] = 255
		}
	}
	return out
}

// 打分前缀。有真值比逐像素准确率；无真值看黑色占比，
// 全黑预测用1.001_前缀垫底排序。
func scorePrefix(bin, gtMask *Mask) string {
	n := len(bin.Pix)
	if n == 0 {
		return AllBlackPrefix
	}
	if gtMask != nil && len(gtMask.Pix) == n {
		match := 0
		for i, v := range bin.Pix {
			if v == gtMask.Pix[i] {
				match++
			}
		}
		return fmt.Sprintf("%.3f_", float64(match)/float64(n))
	}
	white := bin.CountWhite()
	if white == 0 {
		return AllBlackPrefix
	}
	return fmt.Sprintf("%.3f_", float64(n-white)/float64(n))
}

// 预测掩膜缩略图，便于快速翻查
func (r *PredictRunner) savePreviewPNG(out string, m *Mask) (err error) {
	gray := &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
	preview := imaging.Fit(gray, EvalPreviewMaxSize, EvalPreviewMaxSize, imaging.Lanczos)
	if err = imaging.Save(preview, out); err != nil {
		log.Error("save eval preview failed", zap.String("out", out), zap.Error(err))
	}
	return
}

// 评估用矢量不做接边保点，直接Douglas-Peucker抽稀
func (r *PredictRunner) saveEvalVector(out string, m *Mask, gt [6]float64, srid int, className string) (err error) {
	fc, err := r.g.PolygonizePrediction(m, gt, srid, className, 0, nil)
	if err != nil {
		return
	}
	if fc.Empty() {
		return
	}
	dp := simplify.DouglasPeucker(EvalSimplifyT * pixelsizeOrOne(gt))
	for i, f := range fc.Features {
		fc.Features[i].Geom = dp.Simplify(f.Geom)
		fc.Features[i].NbCoords = countCoords(fc.Features[i].Geom)
	}
	return r.g.WriteVectorGeoJSON(out, fc)
}

// 抽稀容差按像元大小换算，像素坐标时即为像素数
func pixelsizeOrOne(gt [6]float64) float64 {
	if gt[1] == 0 {
		return 1
	}
	return gt[1]
}
