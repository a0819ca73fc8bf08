package layout

import "unicode/utf8"

// monoMetrics 是等宽测试度量：每个字符 advance 宽，行度量为 line。
type monoMetrics struct {
	advance float64
	line    float64
}

func (m monoMetrics) Measure(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * m.advance
}

func (m monoMetrics) LineMetric() float64 { return m.line }

// monoTypesetter 按字号生成等宽度量：advance = size/2，行度量 = size。
type monoTypesetter struct {
	faces []FontResource
}

func (t *monoTypesetter) Face(font FontResource, size float64) (Metrics, error) {
	t.faces = append(t.faces, font)
	return monoMetrics{advance: size / 2, line: size}, nil
}
