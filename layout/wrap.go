package layout

import (
	"iter"
	"slices"
	"strings"
)

// Wrap 将 text 拆成宽度不超过 maxWidth 的行。
//
// 先按显式换行切段，每段独立处理：整段宽度（含字距）不超限时原样保留，
// 否则贪心折行，逐词尝试 current+" "+word 是否仍能放下。单个超宽的词
// 独占一行并允许溢出，不在词内拆分。
//
// 返回的序列是惰性的，每次遍历都会重新计算。
func Wrap(text string, m Metrics, maxWidth, spacing float64) (iter.Seq[string], error) {
	if m == nil {
		return nil, ErrMetricsUnavailable
	}
	return func(yield func(string) bool) {
		for _, segment := range strings.Split(text, "\n") {
			segment = strings.TrimSuffix(segment, "\r")
			if MeasureSpaced(m, segment, spacing) <= maxWidth {
				if !yield(segment) {
					return
				}
				continue
			}
			current := ""
			for _, word := range strings.Fields(segment) {
				if current == "" {
					current = word
					continue
				}
				candidate := current + " " + word
				if MeasureSpaced(m, candidate, spacing) <= maxWidth {
					current = candidate
					continue
				}
				if !yield(current) {
					return
				}
				current = word
			}
			if !yield(current) {
				return
			}
		}
	}, nil
}

// WrapLines 与 Wrap 相同，但直接返回切片。
func WrapLines(text string, m Metrics, maxWidth, spacing float64) ([]string, error) {
	seq, err := Wrap(text, m, maxWidth, spacing)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}
