package segpost

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/geoseg/segpost/log"
	"github.com/geoseg/segpost/utils"

	"go.uber.org/zap"
)

// 批量推理驱动：目录发现、分批推理、清理、出图、矢量化与台账一体
type PredictRunner struct {
	g     *GdalToolbox
	model Predictor
	opts  PredictOptions
}

func NewPredictRunner(g *GdalToolbox, model Predictor, opts PredictOptions) (r *PredictRunner, err error) {
	if len(opts.Classes) == 0 {
		err = ErrEmptyClassNames
		return
	}
	if len(opts.InputExts) == 0 {
		opts.InputExts = DefaultInputExts
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.MinPixelValueForSave <= 0 {
		opts.MinPixelValueForSave = DefaultMinPixelValue
	}
	if opts.EvaluateMode && !strings.HasSuffix(opts.OutputDir, EvalDirSuffix) {
		opts.OutputDir += EvalDirSuffix
	}
	r = &PredictRunner{g: g, model: model, opts: opts}
	return
}

// 执行整个批量推理流程。已在台账中的图幅跳过（Force时重跑），
// 每个图幅处理完立即登记台账，中断后可续跑。
func (r *PredictRunner) Run(ctx context.Context) (err error) {
	tiles, err := r.discoverTiles()
	if err != nil {
		return
	}
	ledger, err := OpenLedger(r.opts.OutputDir)
	if err != nil {
		return
	}
	defer ledger.Close()

	var todo []string
	for _, t := range tiles {
		if !r.opts.Force && ledger.Has(filepath.Base(t)) {
			continue
		}
		todo = append(todo, t)
	}
	log.Info("predict run start", zap.Int("total", len(tiles)), zap.Int("todo", len(todo)),
		zap.Int("batchSize", r.opts.BatchSize), zap.Bool("eval", r.opts.EvaluateMode))
	if len(todo) == 0 {
		return
	}

	start := time.Now()
	done := 0
	for off := 0; off < len(todo); off += r.opts.BatchSize {
		if err = ctx.Err(); err != nil {
			return
		}
		end := off + r.opts.BatchSize
		if end > len(todo) {
			end = len(todo)
		}
		batch := todo[off:end]
		batchStart := time.Now()
		if err = r.runBatch(batch, ledger); err != nil {
			return
		}
		done += len(batch)
		elapsed := time.Since(start)
		// 总体速率估算剩余时间，单批耗时一并给出便于发现抖动
		eta := time.Duration(float64(elapsed) / float64(done) * float64(len(todo)-done))
		log.Info("predict batch done", zap.Int("done", done), zap.Int("todo", len(todo)),
			zap.Duration("batch", time.Since(batchStart).Round(time.Millisecond)),
			zap.Duration("elapsed", elapsed.Round(time.Second)), zap.Duration("eta", eta.Round(time.Second)))
	}
	return
}

// 读取一批图幅、推理一次、逐幅后处理
func (r *PredictRunner) runBatch(batch []string, ledger *Ledger) (err error) {
	images := make([]*Image, len(batch))
	gts := make([][6]float64, len(batch))
	srids := make([]int, len(batch))
	for i, rel := range batch {
		if images[i], gts[i], srids[i], err = r.g.ReadTile(filepath.Join(r.opts.InputDir, rel)); err != nil {
			return
		}
	}
	preds, err := r.model.PredictBatch(images)
	if err != nil {
		return
	}
	if len(preds) != len(batch) {
		return ErrInvalidPrediction
	}
	for i, rel := range batch {
		if err = r.processTile(rel, preds[i], gts[i], srids[i]); err != nil {
			return wrapPolygonization(rel, err)
		}
		if err = ledger.Add(filepath.Base(rel)); err != nil {
			return
		}
	}
	return
}

// 单幅后处理：分通道清理出图，再矢量化落盘
func (r *PredictRunner) processTile(rel string, arr *Array, gt [6]float64, srid int) (err error) {
	if len(r.opts.Classes) != arr.Channels {
		return ErrClassChannelCount
	}
	if r.opts.EvaluateMode {
		return r.evaluateTile(rel, arr, gt, srid)
	}
	stem := utils.GetFilenameWithoutExt(rel)
	outDir := filepath.Join(r.opts.OutputDir, filepath.Dir(rel))
	if err = os.MkdirAll(outDir, os.ModePerm); err != nil {
		return
	}
	start := 0
	if arr.Channels > 1 {
		if r.opts.Classes[0] != BackgroundClassName {
			return ErrBackgroundClass
		}
		start = 1
	}
	saved := false
	for ch := start; ch < arr.Channels; ch++ {
		var m *Mask
		if m, err = CleanPrediction(arr.Channel(ch), r.opts.BorderPixelsToIgnore, ColorDepthBinary); err != nil {
			return
		}
		// 全黑通道不出图
		if !m.AnyAtLeast(uint8(r.opts.MinPixelValueForSave)) {
			continue
		}
		out := filepath.Join(outDir, stem+"_"+r.opts.Classes[ch]+PredRasterSuffix)
		if err = r.g.SavePredictionRaster(out, m, gt, srid); err != nil {
			return
		}
		saved = true
	}
	if !saved { // 整幅全黑，只记台账
		return
	}
	fc, err := r.g.PolygonizeMulticlass(arr, r.opts.Classes, gt, srid,
		r.opts.MinPixelValueForSave, r.opts.BorderPixelsToIgnore, r.opts.Simplify)
	if err != nil {
		return
	}
	if fc.Empty() {
		return
	}
	return r.g.WriteVectorGeoJSON(filepath.Join(outDir, stem+PredVectorSuffix), fc)
}

// 递归发现输入目录下待推理图幅，返回排序后的相对路径
func (r *PredictRunner) discoverTiles() (tiles []string, err error) {
	exts := make(map[string]struct{}, len(r.opts.InputExts))
	for _, e := range r.opts.InputExts {
		exts[strings.ToLower(e)] = struct{}{}
	}
	err = filepath.WalkDir(r.opts.InputDir, func(path string, d fs.DirEntry, e error) error {
		if e != nil {
			return e
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		rel, e := filepath.Rel(r.opts.InputDir, path)
		if e != nil {
			return e
		}
		tiles = append(tiles, rel)
		return nil
	})
	if err != nil {
		log.Error("discover tiles failed", zap.String("dir", r.opts.InputDir), zap.Error(err))
		return
	}
	sort.Strings(tiles)
	return
}
