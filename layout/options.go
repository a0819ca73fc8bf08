package layout

import (
	"errors"
	"log/slog"

	"github.com/dsadriel/defesa-facil/defense"
)

// ErrMetricsUnavailable 表示缺少字宽度量能力，排版无法进行。
var ErrMetricsUnavailable = errors.New("layout: 缺少字体度量 Metrics")

// BuildOptions 配置卡片构建阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Debug      DebugOptions
	// Vars 为所有模板提供额外的绑定变量（如 Semestre、TituloCard）。
	Vars map[string]string
	// Templates 限定只构建这些 card；为空时构建全部。
	Templates []string
	// Sequence 是各模板的起始编号，Build 返回推进后的副本。
	Sequence defense.Sequence
	Logger   *slog.Logger
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Outlines bool // 为每个文本框绘制黄色边框，便于调整模板坐标
}

// Metrics 测量某个字体+字号组合下的文本宽度与行高度量。
type Metrics interface {
	// Measure 返回 text 的前进宽度（像素）。
	Measure(text string) float64
	// LineMetric 返回字体自然行高度量（上升部），乘以行高倍数即为行距。
	LineMetric() float64
}

// Typesetter 负责根据字体资源与字号提供 Metrics，由渲染器实现。
type Typesetter interface {
	Face(font FontResource, size float64) (Metrics, error)
}

func (o BuildOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
