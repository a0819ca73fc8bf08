package layout

import "strings"

// Truncate 通过删词把单行文本压到 maxWidth 以内。
// 每轮删除倒数第二个词，最后一个词（通常是姓氏）始终保留；
// 只剩一个词时放弃，原样返回仍然超宽的文本。
func Truncate(text string, m Metrics, maxWidth float64) (string, error) {
	steps, err := TruncateSteps(text, m, maxWidth)
	if err != nil {
		return "", err
	}
	return steps[len(steps)-1], nil
}

// TruncateSteps 返回截断过程中的每一个中间结果，首项为原文。
func TruncateSteps(text string, m Metrics, maxWidth float64) ([]string, error) {
	if m == nil {
		return nil, ErrMetricsUnavailable
	}
	steps := []string{text}
	for m.Measure(text) > maxWidth {
		words := strings.Fields(text)
		if len(words) < 2 {
			break
		}
		words = append(words[:len(words)-2], words[len(words)-1])
		text = strings.Join(words, " ")
		steps = append(steps, text)
	}
	return steps, nil
}
