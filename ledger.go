package segpost

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/geoseg/segpost/log"

	"go.uber.org/zap"
)

// 已处理图幅台账，断点续跑凭据。整体加载一次，追加写入。
type Ledger struct {
	path string
	done map[string]struct{}
	fd   *os.File
}

// 打开（必要时创建）输出目录下的台账文件并整体加载
func OpenLedger(outputDir string) (l *Ledger, err error) {
	if err = os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return
	}
	l = &Ledger{
		path: filepath.Join(outputDir, LedgerFilename),
		done: map[string]struct{}{},
	}
	if l.fd, err = os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644); err != nil {
		return
	}
	scanner := bufio.NewScanner(l.fd)
	for scanner.Scan() {
		if name := scanner.Text(); name != "" {
			l.done[name] = struct{}{}
		}
	}
	if err = scanner.Err(); err != nil {
		l.fd.Close()
		return
	}
	log.Info("ledger loaded", zap.String("path", l.path), zap.Int("done", len(l.done)))
	return
}

func (l *Ledger) Has(name string) bool {
	_, ok := l.done[name]
	return ok
}

func (l *Ledger) Len() int {
	return len(l.done)
}

// 记录一个已完成图幅，立即落盘
func (l *Ledger) Add(name string) (err error) {
	if l.Has(name) {
		return
	}
	if _, err = l.fd.WriteString(name + "\n"); err != nil {
		log.Error("ledger append failed", zap.String("name", name), zap.Error(err))
		return
	}
	l.done[name] = struct{}{}
	return
}

func (l *Ledger) Close() error {
	return l.fd.Close()
}
