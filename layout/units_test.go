package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back-pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestParseLength 覆盖像素、磅与无单位数值。
func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want Length
		px   float64
	}{
		{"40px", Length{Value: 40, Unit: UnitPX}, 40},
		{"12", Length{Value: 12, Unit: UnitNone}, 12},
		{"30pt", Length{Value: 30, Unit: UnitPT}, 30 * PtToMm},
		{"", Length{}, 0},
		{"abc", Length{}, 0},
	}
	for _, c := range cases {
		got := ParseLength(c.in)
		if got != c.want {
			t.Fatalf("ParseLength(%q) = %+v, want %+v", c.in, got, c.want)
		}
		if math.Abs(got.ToPX()-c.px) > 1e-9 {
			t.Fatalf("ParseLength(%q).ToPX() = %g, want %g", c.in, got.ToPX(), c.px)
		}
	}
	if got := (Length{Value: 10, Unit: UnitPX}).ToPT(); math.Abs(got-10*MmToPt) > 1e-9 {
		t.Fatalf("10px 转 pt 错误: %g", got)
	}
	if UnitToString(UnitPT) != "pt" || UnitToString(UnitNone) != "" {
		t.Fatalf("UnitToString 结果错误")
	}
}

// TestLineHeightResolve 验证倍数与绝对值两种行高写法都解析为行度量的倍数。
func TestLineHeightResolve(t *testing.T) {
	const lineMetric = 40.0
	cases := []struct {
		in   string
		want float64
	}{
		{"", DefaultLineHeight},
		{"1.5x", 1.5},
		{"1.2", 1.2},
		{"52px", 1.3},
		{"-2", DefaultLineHeight},
	}
	for _, c := range cases {
		got := ParseLineHeight(c.in).Resolve(lineMetric)
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("ParseLineHeight(%q).Resolve = %g, want %g", c.in, got, c.want)
		}
	}
	if got := ParseLineHeight("52px").Resolve(0); got != DefaultLineHeight {
		t.Fatalf("零行度量应回退到默认行高，实际 %g", got)
	}
}
