package layout

import "unicode/utf8"

// BoundingBox 是一段文本允许占用的矩形区域（像素），只读。
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid 报告宽高是否非负。
func (b BoundingBox) Valid() bool { return b.Width >= 0 && b.Height >= 0 }

// Offset 返回沿 y 轴平移 dy 后的副本。
func (b BoundingBox) Offset(dy int) BoundingBox {
	b.Y += dy
	return b
}

// Point 为整数像素坐标。
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DrawInstruction 是一行文本的最终绘制指令，Origin 为行顶部左侧坐标。
type DrawInstruction struct {
	Text   string `json:"text"`
	Origin Point  `json:"origin"`
}

// LayoutRequest 描述一次文本框排版。
type LayoutRequest struct {
	Text       string
	Font       FontResource
	Size       float64 // 字号（像素）
	Box        BoundingBox
	Spacing    float64 // 字符间额外间距，可为负
	Alignment  Alignment
	LineHeight float64 // 行高倍数，<=0 时取 DefaultLineHeight
}

// DefaultLineHeight 是未指定时的行高倍数。
const DefaultLineHeight = 1.3

// Layout 依次执行折行与定位，返回该文本框的绘制指令。
func Layout(req LayoutRequest, ts Typesetter) (Placement, error) {
	if ts == nil {
		return Placement{}, ErrMetricsUnavailable
	}
	m, err := ts.Face(req.Font, req.Size)
	if err != nil {
		return Placement{}, err
	}
	lineHeight := req.LineHeight
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	lines, err := WrapLines(req.Text, m, float64(req.Box.Width), req.Spacing)
	if err != nil {
		return Placement{}, err
	}
	return Place(lines, req.Box, req.Alignment, m, lineHeight, req.Spacing)
}

// MeasureSpaced 返回 text 在额外字距 spacing 下的宽度：measure(text) + (n-1)*spacing。
func MeasureSpaced(m Metrics, text string, spacing float64) float64 {
	w := m.Measure(text)
	if n := utf8.RuneCountInString(text); n > 1 {
		w += float64(n-1) * spacing
	}
	return w
}
