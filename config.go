package segpost

const (
	FILE_EXT_TIF     = ".tif"
	FILE_EXT_JPG     = ".jpg"
	FILE_EXT_SHP     = ".shp"
	FILE_EXT_GEOJSON = ".geojson"

	SHP_DRIVER_NAME = "ESRI Shapefile"
	SHAPE_ENCODING  = "UTF-8"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING

	// 二值化阈值：清理用127，矢量化前用125
	BinaryThreshold      = 127
	PolygonizeThreshold  = 125
	DefaultMinPixelValue = 127

	LedgerFilename = "images_done.txt"

	PredRasterSuffix  = "_pred.tif"
	PredVectorSuffix  = "_pred.geojson"
	EvalDirSuffix     = "_eval"
	AllBlackPrefix    = "1.001_" // 全黑预测排序垫底
	DissolveTmpPrefix = "dissolve_%s.geojson"

	SHP_FIELD_CLASSNAME = "classname"
	SHP_FIELD_AREA      = "area"
	SHP_FIELD_ONBORDER  = "onborder"
	SHP_FIELD_NBCOORDS  = "nbcoords"

	BackgroundClassName = "background"

	// 边界吸附判断容差（投影单位），用于抽稀保点
	BorderSnapEps = 1e-9

	EvalPreviewMaxSize = 256
	EvalSimplifyT      = 0.5
)

var DefaultInputExts = []string{FILE_EXT_TIF, FILE_EXT_JPG}
