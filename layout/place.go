package layout

import "fmt"

// overflowEpsilon 吸收行高累加时的浮点误差。
const overflowEpsilon = 1e-9

// Placement 是 Place 的输出。
type Placement struct {
	Instructions []DrawInstruction
	// Extent 为最后使用到的右下位置 (x + xOffset, y + yOffset)，用于串联与调试。
	Extent Point
	// Dropped 为因超出文本框高度而未绘制的行数。
	Dropped int
	// Outline 仅在 Alignment.Debug 时给出，渲染器据此描出文本框。
	Outline *BoundingBox
}

// Place 计算每一行在 box 内的绘制起点。
//
// 行距 h = m.LineMetric() * lineHeight。垂直方向把所有行视为一个整体：
// top 从 box.Y 开始，center 从 box.Y + box.Height/2 - N*h/2 开始，
// bottom 从 box.Y + box.Height - N*h 开始。N*h 超过 box.Height 时 center 与
// bottom 退化为 top，起点不会高于 box.Y。水平方向逐行对齐，行宽计入字距。
//
// 按顺序放置，一旦某行底部超出 box.Height，该行及其后的行全部丢弃，不报错。
func Place(lines []string, box BoundingBox, align Alignment, m Metrics, lineHeight, spacing float64) (Placement, error) {
	if m == nil {
		return Placement{}, ErrMetricsUnavailable
	}
	if !box.Valid() {
		return Placement{}, fmt.Errorf("layout: 文本框尺寸无效 %+v", box)
	}

	var p Placement
	if align.Debug {
		outline := box
		p.Outline = &outline
	}

	h := m.LineMetric() * lineHeight
	n := float64(len(lines))
	x := float64(box.X)
	y := float64(box.Y)
	width := float64(box.Width)
	height := float64(box.Height)

	yOffset := 0.0
	switch align.V {
	case VCenter:
		yOffset = height/2 - n*h/2
	case VBottom:
		yOffset = height - n*h
	}
	if yOffset < 0 {
		yOffset = 0
	}

	xOffset := 0.0
	for i, line := range lines {
		if yOffset+h > height+overflowEpsilon {
			p.Dropped = len(lines) - i
			break
		}
		lineWidth := MeasureSpaced(m, line, spacing)
		switch align.H {
		case HCenter:
			xOffset = (width - lineWidth) / 2
		case HRight:
			xOffset = width - lineWidth
		default:
			xOffset = 0
		}
		p.Instructions = append(p.Instructions, DrawInstruction{
			Text:   line,
			Origin: Point{X: int(x + xOffset), Y: int(y + yOffset)},
		})
		yOffset += h
	}
	p.Extent = Point{X: int(x + xOffset), Y: int(y + yOffset)}
	return p, nil
}
