package segpost

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/geoseg/segpost/log"
	"github.com/geoseg/segpost/utils"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// 矢量结果落盘为GeoJSON，crs成员记录srid供融合环节还原
func (g *GdalToolbox) WriteVectorGeoJSON(out string, fc *FeatureCollection) (err error) {
	jfc := geojson.NewFeatureCollection()
	if fc.Srid > 0 {
		jfc.ExtraMembers = geojson.Properties{
			"crs": map[string]interface{}{
				"type": "name",
				"properties": map[string]interface{}{
					"name": fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", fc.Srid),
				},
			},
		}
	}
	for _, f := range fc.Features {
		jf := geojson.NewFeature(f.Geom)
		jf.Properties = geojson.Properties{
			SHP_FIELD_CLASSNAME: f.ClassName,
			SHP_FIELD_AREA:      f.Area,
			SHP_FIELD_ONBORDER:  boolToInt(f.OnBorder),
			SHP_FIELD_NBCOORDS:  f.NbCoords,
		}
		jfc.Append(jf)
	}
	data, err := json.Marshal(jfc)
	if err != nil {
		return
	}
	if err = os.WriteFile(out, data, os.ModePerm); err != nil {
		log.Error(g.logTag+"write geojson failed", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"geojson created", zap.String("out", out), zap.Int("features", len(fc.Features)))
	return
}

// 读取本库产出的GeoJSON矢量
func (g *GdalToolbox) ReadVectorGeoJSON(path string) (fc *FeatureCollection, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	jfc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		log.Error(g.logTag+"parse geojson failed", zap.String("path", path), zap.Error(err))
		return
	}
	fc = &FeatureCollection{Srid: sridFromCrsMember(jfc.ExtraMembers)}
	for _, jf := range jfc.Features {
		if jf.Geometry == nil {
			continue
		}
		f := Feature{
			Geom:      jf.Geometry,
			ClassName: jf.Properties.MustString(SHP_FIELD_CLASSNAME, ""),
			Area:      jf.Properties.MustFloat64(SHP_FIELD_AREA, 0),
			OnBorder:  jf.Properties.MustInt(SHP_FIELD_ONBORDER, 0) != 0,
			NbCoords:  jf.Properties.MustInt(SHP_FIELD_NBCOORDS, 0),
		}
		fc.Features = append(fc.Features, f)
	}
	return
}

// 从crs成员中解出srid，形如urn:ogc:def:crs:EPSG::4490或EPSG:4490
func sridFromCrsMember(extra geojson.Properties) int {
	crs, ok := extra["crs"].(map[string]interface{})
	if !ok {
		return 0
	}
	props, ok := crs["properties"].(map[string]interface{})
	if !ok {
		return 0
	}
	name, _ := props["name"].(string)
	if idx := strings.LastIndexAny(name, ":"); idx >= 0 {
		if srid, err := strconv.Atoi(name[idx+1:]); err == nil {
			return srid
		}
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (g *GdalToolbox) getShpDriver(shp string, srid int) (ds gdal.DataSource, ref gdal.SpatialReference, layer gdal.Layer, err error) {
	log.Info(g.logTag+"output shp files", zap.String("shp", shp), zap.Int("srid", srid))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		err = ErrGdalDriverCreate
		return
	}
	if ref, err = g.getSridRef(srid); err != nil {
		return
	}
	layer = ds.CreateLayer("", ref, gdal.GT_Unknown, []string{ENCODING_OPTION})
	return
}

func (g *GdalToolbox) initShpLayer(layer gdal.Layer) (err error) {
	classField := gdal.CreateFieldDefinition(SHP_FIELD_CLASSNAME, gdal.FT_String)
	classField.SetWidth(64)
	if err = layer.CreateField(classField, false); err != nil {
		return
	}
	areaField := gdal.CreateFieldDefinition(SHP_FIELD_AREA, gdal.FT_Real)
	if err = layer.CreateField(areaField, false); err != nil {
		return
	}
	onBorderField := gdal.CreateFieldDefinition(SHP_FIELD_ONBORDER, gdal.FT_Integer)
	if err = layer.CreateField(onBorderField, false); err != nil {
		return
	}
	nbCoordsField := gdal.CreateFieldDefinition(SHP_FIELD_NBCOORDS, gdal.FT_Integer)
	err = layer.CreateField(nbCoordsField, false)
	return
}

// 将矢量要素写入shp，含classname/area/onborder/nbcoords属性
func (g *GdalToolbox) WriteVectorShapefile(shp string, fc *FeatureCollection) (err error) {
	ds, ref, layer, err := g.getShpDriver(shp, fc.Srid)
	if err != nil {
		return
	}
	defer ds.Destroy() // 生成shp文件 + 释放资源
	if err = g.initShpLayer(layer); err != nil {
		return
	}
	var (
		def     = layer.Definition()
		feature gdal.Feature
		geo     gdal.Geometry
		raw     []byte
		cnt     int
		e       error
		gc      = make([]destroyable, 0, len(fc.Features))
	)
	for i, f := range fc.Features {
		if raw, e = wkb.Marshal(f.Geom); e != nil {
			log.Error(g.logTag+"encode feature wkb failed", zap.Error(e))
			continue
		}
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		feature.SetFieldString(def.FieldIndex(SHP_FIELD_CLASSNAME), f.ClassName)
		feature.SetFieldFloat64(def.FieldIndex(SHP_FIELD_AREA), f.Area)
		feature.SetFieldInteger(def.FieldIndex(SHP_FIELD_ONBORDER), boolToInt(f.OnBorder))
		feature.SetFieldInteger(def.FieldIndex(SHP_FIELD_NBCOORDS), f.NbCoords)
		if geo, e = g.parseWKB(raw, ref); e != nil {
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		cnt++
	}
	for _, v := range gc {
		v.Destroy()
	}
	log.Info(g.logTag+"shp files created", zap.String("shp", shp), zap.Int("total", len(fc.Features)), zap.Int("valid", cnt))
	return
}

// 读取分块shp中的各分块矢量（WKB）及其srid，
// 分块名称字段若为GBK编码会被转为UTF-8
func (g *GdalToolbox) ReadTilesShapefile(shp string) (tiles []GdalGeo, names []string, srid int, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	wkt, err := layer.SpatialReference().ToWKT()
	if err == nil {
		srid, err = g.sridFromWKT(wkt)
	}
	if err != nil {
		log.Warn(g.logTag+"tiles srid unresolved", zap.String("shp", shp), zap.Error(err))
		srid, err = 0, nil
	}
	def := layer.Definition()
	nameIdx := def.FieldIndex("name")
	var (
		feature *gdal.Feature
		raw     []byte
		e       error
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		if raw, e = feature.Geometry().ToWKB(); e != nil {
			log.Error(g.logTag+"tile geom wkb failed", zap.Error(e))
			continue
		}
		tiles = append(tiles, raw)
		if nameIdx >= 0 {
			names = append(names, utils.DecodeLabel(feature.FieldAsString(nameIdx)))
		} else {
			names = append(names, "")
		}
	}
	log.Info(g.logTag+"tiles loaded", zap.String("shp", shp), zap.Int("tiles", len(tiles)), zap.Int("srid", srid))
	return
}

// orb几何转WKB
func geomToWKB(geom orb.Geometry) (GdalGeo, error) {
	return wkb.Marshal(geom)
}
