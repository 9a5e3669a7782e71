package segpost

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/geoseg/segpost/log"
	"github.com/geoseg/segpost/utils"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
)

// 融合各图幅矢量：按classname分组级联合并，消除接边缝隙；
// 指定分块shp时按分块重新切分，避免融合结果跨块过大。
// 不同类别的图斑绝不互相合并。
func (g *GdalToolbox) Dissolve(ctx context.Context, opts DissolveOptions) (err error) {
	if utils.FileExists(opts.OutputPath) {
		if !opts.Force {
			log.Info(g.logTag+"dissolve output exists, skip", zap.String("out", opts.OutputPath))
			return
		}
		if err = os.Remove(opts.OutputPath); err != nil {
			return
		}
	}
	files, err := collectVectorFiles(opts.InputPath)
	if err != nil {
		return
	}
	if len(files) == 0 {
		err = ErrEmptyDissolveInput
		return
	}
	srid := 0
	groups := map[string][]GdalGeo{}
	for _, f := range files {
		var fc *FeatureCollection
		if fc, err = g.ReadVectorGeoJSON(f); err != nil {
			return
		}
		if srid == 0 {
			srid = fc.Srid
		} else if fc.Srid != 0 && fc.Srid != srid {
			log.Warn(g.logTag+"srid mismatch in dissolve input", zap.String("file", f),
				zap.Int("srid", fc.Srid), zap.Int("want", srid))
		}
		for _, feat := range fc.Features {
			var raw GdalGeo
			if raw, err = geomToWKB(feat.Geom); err != nil {
				return
			}
			groups[feat.ClassName] = append(groups[feat.ClassName], raw)
		}
	}
	if srid == 0 {
		err = ErrMissingCRS
		return
	}
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}

	var tiles []gdal.Geometry
	var gc []destroyable
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	if opts.TilesPath != "" {
		var tileWkbs []GdalGeo
		if tileWkbs, _, _, err = g.ReadTilesShapefile(opts.TilesPath); err != nil {
			return
		}
		for _, raw := range tileWkbs {
			var tg gdal.Geometry
			if tg, err = g.parseWKB(raw, ref); err != nil {
				return
			}
			gc = append(gc, tg)
			tiles = append(tiles, tg)
		}
	}

	classes := make([]string, 0, len(groups))
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	out := &FeatureCollection{Srid: srid}
	for _, class := range classes {
		if err = ctx.Err(); err != nil {
			return
		}
		var geos []gdal.Geometry
		for _, raw := range groups[class] {
			var geo gdal.Geometry
			if geo, err = g.parseWKB(raw, ref); err != nil {
				return
			}
			gc = append(gc, geo)
			switch geo.Type() {
			case gdal.GT_Polygon:
				geos = append(geos, geo)
			case gdal.GT_MultiPolygon:
				for i, pn := 0, geo.GeometryCount(); i < pn; i++ {
					geos = append(geos, geo.Geometry(i))
				}
			default:
				err = ErrGdalWrongGeoType
				return
			}
		}
		if len(tiles) > 0 {
			// 逐分块收集相交图斑再合并，单次级联合并的规模以块为界
			for _, tile := range tiles {
				merged := gdal.Create(gdal.GT_MultiPolygon)
				gc = append(gc, merged)
				hit := false
				for _, geo := range geos {
					if !geo.Intersects(tile) {
						continue
					}
					if err = merged.AddGeometry(geo); err != nil {
						return
					}
					hit = true
				}
				if !hit {
					continue
				}
				union := merged.UnionCascaded() // avoid overlaps
				gc = append(gc, union)
				part := union.Intersection(tile)
				gc = append(gc, part)
				if err = g.appendDissolved(out, part, class); err != nil {
					return
				}
			}
		} else {
			merged := gdal.Create(gdal.GT_MultiPolygon)
			gc = append(gc, merged)
			for _, geo := range geos {
				if err = merged.AddGeometry(geo); err != nil {
					return
				}
			}
			union := merged.UnionCascaded() // avoid overlaps
			gc = append(gc, union)
			if err = g.appendDissolved(out, union, class); err != nil {
				return
			}
		}
		log.Info(g.logTag+"class dissolved", zap.String("class", class),
			zap.Int("input", len(groups[class])))
	}

	err = g.writeDissolved(opts.OutputPath, out)
	log.Info(g.logTag+"dissolve done", zap.String("out", opts.OutputPath),
		zap.Int("features", len(out.Features)), zap.Bool("succeed", err == nil))
	return
}

// 拆成单面并重算属性后追加到结果集合
func (g *GdalToolbox) appendDissolved(out *FeatureCollection, geo gdal.Geometry, class string) (err error) {
	var polygons []gdal.Geometry
	switch geo.Type() {
	case gdal.GT_Polygon:
		polygons = []gdal.Geometry{geo}
	case gdal.GT_MultiPolygon:
		gNum := geo.GeometryCount()
		polygons = make([]gdal.Geometry, gNum)
		for i := range polygons {
			polygons[i] = geo.Geometry(i)
		}
	default:
		// 相交结果可能是空集或线点，直接略过
		return
	}
	for _, p := range polygons {
		if p.IsEmpty() {
			continue
		}
		var raw []byte
		if raw, err = p.ToWKB(); err != nil {
			return
		}
		geom, e := wkb.Unmarshal(raw)
		if e != nil {
			log.Error(g.logTag+"dissolved wkb decode failed", zap.Error(e))
			continue
		}
		out.Features = append(out.Features, Feature{
			Geom:      geom,
			ClassName: class,
			Area:      abs(planar.Area(geom)),
			NbCoords:  countCoords(geom),
		})
	}
	return
}

// 按扩展名决定输出格式；GeoJSON先写临时文件再改名，防止产出半截文件
func (g *GdalToolbox) writeDissolved(out string, fc *FeatureCollection) (err error) {
	if strings.EqualFold(filepath.Ext(out), FILE_EXT_SHP) {
		return g.WriteVectorShapefile(out, fc)
	}
	tmp := filepath.Join(filepath.Dir(out), fmt.Sprintf(DissolveTmpPrefix, uuid.NewString()))
	if err = g.WriteVectorGeoJSON(tmp, fc); err != nil {
		os.Remove(tmp)
		return
	}
	return os.Rename(tmp, out)
}

// 收集待融合的GeoJSON文件，输入可为单个文件或目录（递归）
func collectVectorFiles(input string) (files []string, err error) {
	info, err := os.Stat(input)
	if err != nil {
		return
	}
	if !info.IsDir() {
		files = []string{input}
		return
	}
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, e error) error {
		if e != nil {
			return e
		}
		if !d.IsDir() && strings.HasSuffix(path, FILE_EXT_GEOJSON) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return
}
