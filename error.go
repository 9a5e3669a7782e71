package segpost

import (
	"errors"
	"fmt"
)

var (
	ErrGdalDriverCreate    = errors.New("gdal driver create err")
	ErrGdalDriverOpen      = errors.New("gdal driver open err")
	ErrInvalidTif          = errors.New("invalid tif")
	ErrWrongTif            = errors.New("malformed tif")
	ErrTifReadFailed       = errors.New("tif read failed")
	ErrInvalidPrediction   = errors.New("invalid prediction array")
	ErrMissingCRS          = errors.New("polygonized result has no crs")
	ErrMissingGeoTransform = errors.New("tile has no valid geo transform")
	ErrVoidSrid            = errors.New("void srid in spatial ref")
	ErrEmptyClassNames     = errors.New("empty class names")
	ErrClassChannelCount   = errors.New("class names do not match channel count")
	ErrBackgroundClass     = errors.New("first class of multiclass model must be background")
	ErrUnknownSimplify     = errors.New("unknown simplify algorithm")
	ErrEmptyDissolveInput  = errors.New("no prediction vector files to dissolve")
	ErrGdalWrongGeoType    = errors.New("gdal wrong geo type")
)

// 矢量化失败时携带图幅路径一并上抛
type PolygonizationError struct {
	Path string
	Err  error
}

func (e *PolygonizationError) Error() string {
	return fmt.Sprintf("polygonize failed for %s: %v", e.Path, e.Err)
}

func (e *PolygonizationError) Unwrap() error {
	return e.Err
}

func wrapPolygonization(path string, err error) error {
	if err == nil {
		return nil
	}
	return &PolygonizationError{Path: path, Err: err}
}
