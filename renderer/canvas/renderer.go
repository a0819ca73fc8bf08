package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/rasterizer"
	"golang.org/x/image/draw"

	"github.com/dsadriel/defesa-facil/fonts"
	"github.com/dsadriel/defesa-facil/layout"
	"github.com/dsadriel/defesa-facil/renderer"
)

// outlineWidth 是调试轮廓的线宽（像素）。
const outlineWidth = 1.0

// Renderer draws card layouts via github.com/tdewolff/canvas and rasterizes them to PNG.
// One card pixel maps to one canvas millimetre; font sizes cross into points at the face boundary.
type Renderer struct {
	baseDir string
	log     *slog.Logger

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	imageMu sync.Mutex
	images  map[string]image.Image
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // extra fonts accessible via builtin:<name>
	Images  map[string]Resource // images accessible via builtin:<name>
	Logger  *slog.Logger        // nil discards fallback warnings
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Renderer{
		baseDir:      opts.BaseDir,
		log:          logger,
		fontBlobs:    ingest(opts.Fonts),
		imageBlobs:   ingest(opts.Images),
		fontFamilies: map[string]*fontFamilyEntry{},
		images:       map[string]image.Image{},
	}
	return r
}

func ingest(resources map[string]Resource) map[string][]byte {
	out := map[string][]byte{}
	for name, res := range resources {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			out[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			// 读取失败时留空，真正使用时再报错
			data, _ := os.ReadFile(res.Path)
			if len(data) > 0 {
				out[name] = data
			}
		}
	}
	return out
}

// Face 实现 layout.Typesetter：size 为像素，返回的度量同样以像素为单位。
func (r *Renderer) Face(font layout.FontResource, size float64) (layout.Metrics, error) {
	face, err := r.fontFace(font, size, layout.Color{})
	if err != nil {
		return nil, err
	}
	return faceMetrics{face: face}, nil
}

// faceMetrics adapts a canvas font face to layout.Metrics.
type faceMetrics struct {
	face *canvas.FontFace
}

func (m faceMetrics) Measure(s string) float64 { return m.face.TextWidth(s) }

// LineMetric 取字体的上升部高度，行距为它乘以行高倍数。
func (m faceMetrics) LineMetric() float64 { return m.face.Metrics().Ascent }

// Render rasterizes one card to PNG bytes.
func (r *Renderer) Render(card layout.Card) ([]byte, error) {
	if card.Width <= 0 || card.Height <= 0 {
		return nil, fmt.Errorf("卡片尺寸无效 %dx%d", card.Width, card.Height)
	}

	c := canvas.New(float64(card.Width), float64(card.Height))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if err := r.drawBackground(ctx, card); err != nil {
		return nil, err
	}
	r.drawRects(ctx, card.Rects)
	for _, tb := range card.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return nil, err
		}
	}
	if err := r.drawImages(ctx, card.Images); err != nil {
		return nil, err
	}
	r.drawOutlines(ctx, card.Texts)

	var buf bytes.Buffer
	if err := rasterizer.PNGWriter(canvas.DPMM(1.0))(&buf, c); err != nil {
		return nil, fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawBackground(ctx *canvas.Context, card layout.Card) error {
	if card.Background == "" {
		ctx.SetFillColor(canvas.White)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(float64(card.Width), float64(card.Height)))
		return nil
	}
	img, err := r.loadImage(card.Background)
	if err != nil {
		return err
	}
	// 背景按卡片宽度铺满
	dpmm := float64(img.Bounds().Dx()) / float64(card.Width)
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(0, 0, img, canvas.DPMM(dpmm))
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	face, err := r.fontFace(tb.Font, tb.Size, tb.Color)
	if err != nil {
		return err
	}
	for _, line := range tb.Lines {
		drawLine(ctx, face, line.Text, line.Origin, tb.Spacing)
	}
	return nil
}

// drawLine 逐字符绘制一行文本，每个字符之后光标前进 measure(char)+spacing。
// origin 为行顶部左侧；基线位于 origin.Y + ascent。返回绘制结束时的光标 x。
func drawLine(ctx *canvas.Context, face *canvas.FontFace, text string, origin layout.Point, spacing float64) float64 {
	baseline := float64(origin.Y) + face.Metrics().Ascent
	cursor := float64(origin.X)
	if spacing == 0 {
		ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, text, canvas.Left))
		return cursor + face.TextWidth(text)
	}
	for i, ch := range []rune(text) {
		if i > 0 {
			cursor += spacing
		}
		s := string(ch)
		ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, s, canvas.Left))
		cursor += face.TextWidth(s)
	}
	return cursor
}

// drawImages 把图标按比例缩放到框内（contain），放在框的左上角。
func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, box := range images {
		if box.Path == "" {
			continue
		}
		img, err := r.loadImage(box.Path)
		if err != nil {
			return err
		}
		if box.Width > 0 && box.Height > 0 {
			img = containScale(img, box.Width, box.Height)
		}
		ctx.DrawImage(float64(box.X), float64(box.Y), img, canvas.DPMM(1.0))
	}
	return nil
}

// containScale 等比缩放 src 使其放入 w×h，不会放大。
func containScale(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return src
	}
	scale := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	dw := max(int(float64(b.Dx())*scale), 1)
	dh := max(int(float64(b.Dy())*scale), 1)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// drawRects 绘制纯色填充矩形
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		ctx.SetFillColor(colorFromLayout(rc.Fill))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(float64(rc.X), float64(rc.Y), canvas.Rectangle(float64(rc.Width), float64(rc.Height)))
	}
}

// drawOutlines 在调试模式下用黄色描出文本框。
func (r *Renderer) drawOutlines(ctx *canvas.Context, texts []layout.TextBox) {
	for _, tb := range texts {
		if tb.Outline == nil {
			continue
		}
		o := tb.Outline
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(canvas.Yellow)
		ctx.SetStrokeWidth(outlineWidth)
		ctx.DrawPath(float64(o.X), float64(o.Y), canvas.Rectangle(float64(o.Width), float64(o.Height)))
	}
}

func (r *Renderer) loadImage(src string) (image.Image, error) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[src]; ok {
		return img, nil
	}

	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 builtin:%s", name)
		}
		img, _, err = image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 builtin:%s 失败: %w", name, err)
		}
	} else {
		path, err := r.resolvePath(src)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
		img, _, err = image.Decode(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("解码图片 %s 失败: %w", src, err)
		}
	}
	r.images[src] = img
	return img, nil
}

func (r *Renderer) resolvePath(src string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	if r.baseDir == "" {
		return "", fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 builtin:）", src)
	}
	return filepath.Join(r.baseDir, src), nil
}

// fontFace 创建字体面；size 为像素（= canvas mm），这里换算为 pt。
func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size*layout.MmToPt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Name
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)

	if err := r.loadFontIntoFamily(family, font, style); err != nil {
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.log.Warn("字体加载失败，改用内置字体", "font", font.Name, "src", font.Src, "err", err)
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return fonts.Load(name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path, err := r.resolvePath(src)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// fallback 在调用方已持有 fontMu 时使用。
func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.Fallback)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("defesa-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
