package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dsadriel/defesa-facil/layout"
)

// Renderer 将一张卡片的布局结果输出为最终图像。
// Render 返回编码后的图像字节（PNG）以及可能的错误。
type Renderer interface {
	Render(card layout.Card) ([]byte, error)
}

// WriteOptions 控制 WriteAll 的输出目录与并发度。
type WriteOptions struct {
	Dir    string
	Limit  int // <=0 时取 GOMAXPROCS
	Logger *slog.Logger
}

// WriteAll 并发渲染所有卡片并写入 Dir/<card.Output>，返回与 cards 顺序一致的文件路径。
// 任一卡片失败时取消其余任务并返回第一个错误。
func WriteAll(ctx context.Context, r Renderer, cards []layout.Card, opts WriteOptions) ([]string, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	paths := make([]string, len(cards))
	for i, card := range cards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.Render(card)
			if err != nil {
				return fmt.Errorf("渲染 %s 失败: %w", card.Output, err)
			}
			path := filepath.Join(opts.Dir, card.Output)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("创建输出目录失败: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", path, err)
			}
			log.Info("已生成图片", "template", card.Template, "index", card.Index, "path", path)
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
