package layout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HAlign 是水平对齐方式，零值为 HLeft。
type HAlign uint8

const (
	HLeft HAlign = iota
	HCenter
	HRight
)

// VAlign 是垂直对齐方式，零值为 VTop。
type VAlign uint8

const (
	VTop VAlign = iota
	VCenter
	VBottom
)

// Alignment 组合两条独立的对齐轴；Debug 打开时布局结果会附带文本框轮廓。
type Alignment struct {
	H     HAlign `json:"h"`
	V     VAlign `json:"v"`
	Debug bool   `json:"debug,omitempty"`
}

func (a HAlign) String() string {
	switch a {
	case HLeft:
		return "left"
	case HCenter:
		return "center"
	case HRight:
		return "right"
	default:
		return fmt.Sprintf("HAlign(%d)", uint8(a))
	}
}

func (a VAlign) String() string {
	switch a {
	case VTop:
		return "top"
	case VCenter:
		return "center"
	case VBottom:
		return "bottom"
	default:
		return fmt.Sprintf("VAlign(%d)", uint8(a))
	}
}

// ParseHAlign 解析 left/center/right（兼容 start/end），空串返回默认 HLeft。
func ParseHAlign(v string) (HAlign, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "left", "start":
		return HLeft, nil
	case "center", "middle":
		return HCenter, nil
	case "right", "end":
		return HRight, nil
	default:
		return HLeft, fmt.Errorf("未知的水平对齐方式 %q", v)
	}
}

// ParseVAlign 解析 top/center/bottom，空串返回默认 VTop。
func ParseVAlign(v string) (VAlign, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "top":
		return VTop, nil
	case "center", "middle":
		return VCenter, nil
	case "bottom":
		return VBottom, nil
	default:
		return VTop, fmt.Errorf("未知的垂直对齐方式 %q", v)
	}
}

func (a HAlign) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }
func (a VAlign) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }
