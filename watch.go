package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchTemplate 监听模板所在目录，模板被写入或替换时调用 rebuild，直到 ctx 结束。
// 编辑器常以“写临时文件再改名”的方式保存，因此监听目录而非文件本身。
func watchTemplate(ctx context.Context, path string, logger *slog.Logger, rebuild func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("监听模板变化", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("监听出错", "err", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Info("模板已修改，重新生成", "op", ev.Op.String())
			if err := rebuild(); err != nil {
				logger.Error("重新生成失败", "err", err)
			}
		}
	}
}
