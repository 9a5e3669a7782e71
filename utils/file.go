package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 复制文件，目标已存在时不覆盖
func CopyFileIfAbsent(src, dst string) (err error) {
	if _, err = os.Stat(dst); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return
	}
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return
	}
	_, err = io.Copy(out, in)
	if e := out.Close(); err == nil {
		err = e
	}
	return
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
