package layout

import "github.com/dsadriel/defesa-facil/defense"

// 该文件定义卡片构建结果与资源描述，供布局计算、渲染与调试 JSON 共用。

// Result 保存构建后的卡片与资源信息。
type Result struct {
	Cards     []Card       `json:"cards"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
	// Sequence 为推进后的模板编号，调用方在下一批次中传回。
	Sequence defense.Sequence `json:"sequence"`
}

// ResourceSet 记录解析出的字体、颜色与图片定义。
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Colors map[string]Color         `json:"colors"`
	Images map[string]ImageResource `json:"images"`
}

// FontResource 描述字体资源，src 可以是文件路径或 builtin:* 形式。
type FontResource struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style"`
}

// ImageResource 记录图标等图片资源。
type ImageResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Card 是一张待渲染的图片：背景模板加上定位好的文本、图标与矩形（单位：像素）。
type Card struct {
	Template   string     `json:"template"`
	Index      int        `json:"index"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Background string     `json:"background,omitempty"`
	Output     string     `json:"output"`
	Texts      []TextBox  `json:"texts"`
	Images     []ImageBox `json:"images"`
	Rects      []Rect     `json:"rects,omitempty"`
}

// TextBox 表示一个已经完成折行与定位的文本块。
type TextBox struct {
	Content    string            `json:"content"`
	Font       FontResource      `json:"font"`
	Size       float64           `json:"size"`
	Color      Color             `json:"color"`
	Spacing    float64           `json:"spacing,omitempty"`
	LineHeight float64           `json:"lineHeight"`
	Box        BoundingBox       `json:"box"`
	Align      Alignment         `json:"align"`
	Lines      []DrawInstruction `json:"lines"`
	Extent     Point             `json:"extent"`
	Dropped    int               `json:"dropped,omitempty"`
	Truncated  bool              `json:"truncated,omitempty"`
	Outline    *BoundingBox      `json:"outline,omitempty"`
}

// ImageBox 描述图标的位置与最大尺寸，渲染时按比例缩放到框内。
type ImageBox struct {
	Path   string `json:"path"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Rect 表示一个填充矩形（例如分隔线）。
type Rect struct {
	X      int   `json:"x"`
	Y      int   `json:"y"`
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Fill   Color `json:"fill"`
}

// DocumentMeta 保存模板元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Keywords []string `json:"keywords,omitempty"`
}
