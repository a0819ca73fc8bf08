package defense

import "maps"

// Sequence 记录每个模板已经生成的图片数量，用于输出文件编号。
// 它是值语义的：Next 不修改接收者，而是返回推进后的新 Sequence。
type Sequence map[string]int

// Next 返回模板 name 的下一个编号（从 1 开始）以及推进后的 Sequence。
func (s Sequence) Next(name string) (int, Sequence) {
	next := maps.Clone(s)
	if next == nil {
		next = Sequence{}
	}
	next[name]++
	return next[name], next
}
