package layout

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dsadriel/defesa-facil/binding"
	"github.com/dsadriel/defesa-facil/defense"
	"github.com/dsadriel/defesa-facil/dsl"
)

// cardSpec 是 card 段落头部参数。
type cardSpec struct {
	name   string
	width  int
	height int
	per    int
	group  string
}

// cardContext 保存处理 card 语句时的状态，each 会派生子上下文。
type cardContext struct {
	card       *Card
	res        ResourceSet
	records    []defense.Record
	vars       map[string]any
	overrides  map[string]any // BuildOptions.Vars，优先于记录派生的字段
	data       map[string]any
	offsetY    int
	typesetter Typesetter
	debug      DebugOptions
	log        *slog.Logger
}

// Build 根据模板 AST 与答辩记录生成卡片布局结果。
// 每个 card 段落按 per 把记录切块（group course 时先按课程分组），每块生成一张卡片。
func Build(doc *dsl.Document, records []defense.Record, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("模板为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter: %w", ErrMetricsUnavailable)
	}
	log := opts.logger()

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	sections := doc.Cards()
	if len(sections) == 0 {
		return nil, fmt.Errorf("模板中缺少 card 段落")
	}

	vars := map[string]any{}
	for k, v := range opts.Vars {
		vars[k] = v
	}

	seq := opts.Sequence
	var cards []Card
	for _, section := range sections {
		if len(opts.Templates) > 0 && !slices.Contains(opts.Templates, section.Name) {
			continue
		}
		spec, err := parseCardSpec(section)
		if err != nil {
			return nil, err
		}
		for _, batch := range batchRecords(records, spec) {
			var index int
			index, seq = seq.Next(spec.name)
			card, err := buildCard(section, spec, index, batch, res, vars, opts, log)
			if err != nil {
				return nil, fmt.Errorf("card %s #%d: %w", spec.name, index, err)
			}
			cards = append(cards, card)
		}
	}

	return &Result{
		Cards:     cards,
		Resources: res,
		Meta:      collectMeta(doc),
		Sequence:  seq,
	}, nil
}

func buildCard(section *dsl.CardSection, spec cardSpec, index int, batch []defense.Record, res ResourceSet, vars map[string]any, opts BuildOptions, log *slog.Logger) (Card, error) {
	card := Card{
		Template: spec.name,
		Index:    index,
		Width:    spec.width,
		Height:   spec.height,
	}
	cardVars := binding.Merge(vars, map[string]any{"Seq": index, "Template": spec.name})
	ctx := &cardContext{
		card:       &card,
		res:        res,
		records:    batch,
		vars:       cardVars,
		overrides:  vars,
		data:       binding.Merge(cardVars, batch[0].Fields(), vars),
		typesetter: opts.Typesetter,
		debug:      opts.Debug,
		log:        log.With("template", spec.name, "index", index),
	}
	if err := processBlock(section.Block, ctx, true); err != nil {
		return Card{}, err
	}
	if card.Output == "" {
		card.Output = fmt.Sprintf("%s_%d.png", spec.name, index)
	}
	return card, nil
}

func batchRecords(records []defense.Record, spec cardSpec) [][]defense.Record {
	if len(records) == 0 {
		return nil
	}
	if spec.group == "course" || spec.group == "curso" {
		var out [][]defense.Record
		for _, group := range defense.GroupByCourse(records) {
			out = append(out, defense.Chunk(group, spec.per)...)
		}
		return out
	}
	return defense.Chunk(records, spec.per)
}

// processBlock 依次处理 block 内的语句；top 为 true 时允许 card 级别的赋值。
func processBlock(block *dsl.Block, ctx *cardContext, top bool) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment != nil {
			if !top {
				continue
			}
			handleAssignment(stmt.Assignment, ctx)
			continue
		}
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		var err error
		switch cmd.Name {
		case "text":
			err = handleText(cmd, ctx)
		case "name":
			err = handleName(cmd, ctx)
		case "icon":
			err = handleIcon(cmd, ctx)
		case "rect":
			handleRect(cmd, ctx)
		case "when":
			err = handleWhen(cmd, ctx)
		case "each":
			err = handleEach(cmd, ctx)
		default:
			// 其余命令暂未实现，忽略即可
			continue
		}
		if err != nil {
			if cmd.Name == "when" || cmd.Name == "each" {
				return err
			}
			return cmd.Errorf("%w", err)
		}
	}
	return nil
}

func handleAssignment(a *dsl.Assignment, ctx *cardContext) {
	value := ctx.resolve(a.Value.Text())
	switch a.Key {
	case "background":
		ctx.card.Background = value
	case "output":
		ctx.card.Output = value
	}
}

func handleText(cmd *dsl.Command, ctx *cardContext) error {
	if cmd.Block == nil {
		return fmt.Errorf("text 语句缺少文本块")
	}
	fontName, attrs := dsl.SplitArgs(cmd.Args, true)
	content := ctx.resolve(extractText(cmd.Block))
	if strings.TrimSpace(content) == "" {
		return nil
	}
	tb, err := composeTextBox(fontName, attrs, content, ctx)
	if err != nil {
		return err
	}
	ctx.card.Texts = append(ctx.card.Texts, tb)
	return nil
}

// handleName 处理带角色标签的单行姓名：先加前缀，再按 max 截断，最后照常排版。
func handleName(cmd *dsl.Command, ctx *cardContext) error {
	if len(cmd.Args) == 0 || cmd.Block == nil {
		return fmt.Errorf("name 语句需要角色与文本块")
	}
	role, err := defense.ParseRole(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	fontName, attrs := dsl.SplitArgs(cmd.Args[1:], true)
	name := strings.TrimSpace(ctx.resolve(extractText(cmd.Block)))
	if name == "" {
		return nil
	}
	label := role.Label(name)

	truncated := false
	if limit := parseNumber(attrs["max"]); limit > 0 {
		font, err := resolveFontResource(fontName, ctx.res)
		if err != nil {
			return err
		}
		m, err := ctx.typesetter.Face(font, ctx.textSize(attrs))
		if err != nil {
			return err
		}
		short, err := Truncate(label, m, limit)
		if err != nil {
			return err
		}
		if short != label {
			truncated = true
			ctx.log.Warn("姓名过长，已删除中间的词", "role", role.String(), "original", label, "rendered", short)
			label = short
		} else if m.Measure(label) > limit {
			ctx.log.Warn("姓名无法再缩短，可能溢出", "role", role.String(), "text", label)
		}
	}

	tb, err := composeTextBox(fontName, attrs, label, ctx)
	if err != nil {
		return err
	}
	tb.Truncated = truncated
	ctx.card.Texts = append(ctx.card.Texts, tb)
	return nil
}

func handleIcon(cmd *dsl.Command, ctx *cardContext) error {
	imageName, attrs := dsl.SplitArgs(cmd.Args, true)
	if attrs["src"] != "" {
		imageName = attrs["src"]
	}
	if imageName == "" {
		return fmt.Errorf("icon 语句缺少图片资源")
	}
	path := imageName
	if img, ok := ctx.res.Images[imageName]; ok && img.Src != "" {
		path = img.Src
	}
	box := parseBox(attrs, ctx.offsetY)
	ctx.card.Images = append(ctx.card.Images, ImageBox{
		Path:   ctx.resolve(path),
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
	})
	return nil
}

func handleRect(cmd *dsl.Command, ctx *cardContext) {
	_, attrs := dsl.SplitArgs(cmd.Args, false)
	box := parseBox(attrs, ctx.offsetY)
	ctx.card.Rects = append(ctx.card.Rects, Rect{
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
		Fill:   resolveColor(attrs["fill"], ctx.res),
	})
}

// handleWhen 仅当字段非空时处理子块，例如可选的共同导师。
func handleWhen(cmd *dsl.Command, ctx *cardContext) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("when 语句缺少字段名")
	}
	v, ok := binding.Lookup(ctx.data, cmd.Args[0].Value)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return processBlock(cmd.Block, ctx, false)
}

// handleEach 对当前卡片的每条记录重复子块，第 i 条记录向下平移 i*step 像素。
func handleEach(cmd *dsl.Command, ctx *cardContext) error {
	if cmd.Block == nil {
		return fmt.Errorf("each 语句缺少子内容")
	}
	_, attrs := dsl.SplitArgs(cmd.Args, false)
	step := int(parseNumber(attrs["step"]))
	for i, rec := range ctx.records {
		child := *ctx
		child.offsetY = ctx.offsetY + i*step
		child.data = binding.Merge(ctx.vars, rec.Fields(), ctx.overrides, map[string]any{"Item": i + 1})
		if err := processBlock(cmd.Block, &child, false); err != nil {
			return err
		}
	}
	return nil
}

func composeTextBox(fontName string, attrs map[string]string, content string, ctx *cardContext) (TextBox, error) {
	font, err := resolveFontResource(fontName, ctx.res)
	if err != nil {
		return TextBox{}, err
	}
	size := ctx.textSize(attrs)
	h, err := ParseHAlign(attrs["align"])
	if err != nil {
		return TextBox{}, err
	}
	v, err := ParseVAlign(attrs["valign"])
	if err != nil {
		return TextBox{}, err
	}
	align := Alignment{H: h, V: v, Debug: ctx.debug.Outlines || attrs["debug"] == "true"}

	m, err := ctx.typesetter.Face(font, size)
	if err != nil {
		return TextBox{}, err
	}
	lineHeight := ParseLineHeight(attrs["line-height"]).Resolve(m.LineMetric())

	req := LayoutRequest{
		Text:       content,
		Font:       font,
		Size:       size,
		Box:        parseBox(attrs, ctx.offsetY),
		Spacing:    parseNumber(attrs["spacing"]),
		Alignment:  align,
		LineHeight: lineHeight,
	}
	placement, err := Layout(req, ctx.typesetter)
	if err != nil {
		return TextBox{}, err
	}
	if placement.Dropped > 0 {
		ctx.log.Warn("文本超出文本框高度，部分行未绘制", "text", content, "dropped", placement.Dropped)
	}
	return TextBox{
		Content:    content,
		Font:       font,
		Size:       size,
		Color:      resolveColor(attrs["color"], ctx.res),
		Spacing:    req.Spacing,
		LineHeight: lineHeight,
		Box:        req.Box,
		Align:      align,
		Lines:      placement.Instructions,
		Extent:     placement.Extent,
		Dropped:    placement.Dropped,
		Outline:    placement.Outline,
	}, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Images: map[string]ImageResource{},
	}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("颜色 %s: %w", name, err)
				}
				res.Colors[name] = c
			case "image":
				img := parseImageResource(stmt.Command)
				if img.Name != "" {
					res.Images[img.Name] = img
				}
			}
		}
	}
	if len(res.Fonts) == 0 {
		res.Fonts["Body"] = FontResource{Name: "Body", Src: "builtin:go-regular"}
	}
	return res, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	var meta DocumentMeta
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			a := stmt.Assignment
			if a == nil {
				continue
			}
			switch a.Key {
			case "title":
				meta.Title = a.Value.Text()
			case "author":
				meta.Author = a.Value.Text()
			case "keywords":
				meta.Keywords = valueToStringSlice(a.Value)
			}
		}
	}
	return meta
}

func parseCardSpec(section *dsl.CardSection) (cardSpec, error) {
	_, attrs := dsl.SplitArgs(section.Params, false)
	spec := cardSpec{
		name:   section.Name,
		width:  int(parseNumber(attrs["width"])),
		height: int(parseNumber(attrs["height"])),
		per:    int(parseNumber(attrs["per"])),
		group:  strings.ToLower(attrs["group"]),
	}
	if spec.width <= 0 || spec.height <= 0 {
		return spec, fmt.Errorf("card %s 缺少有效的 width/height", section.Name)
	}
	if spec.per <= 0 {
		spec.per = 1
	}
	return spec, nil
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	font := FontResource{Name: cmd.Args[0].Value}
	for _, stmt := range blockAssignments(cmd.Block) {
		switch stmt.Key {
		case "src":
			font.Src = stmt.Value.Text()
		case "style":
			font.Style = stmt.Value.Text()
		}
	}
	return font
}

func parseImageResource(cmd *dsl.Command) ImageResource {
	if len(cmd.Args) == 0 {
		return ImageResource{}
	}
	img := ImageResource{Name: cmd.Args[0].Value}
	for _, stmt := range blockAssignments(cmd.Block) {
		if stmt.Key == "src" {
			img.Src = stmt.Value.Text()
		}
	}
	return img
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func blockAssignments(block *dsl.Block) []*dsl.Assignment {
	if block == nil {
		return nil
	}
	var out []*dsl.Assignment
	for _, stmt := range block.Statements {
		if stmt.Assignment != nil {
			out = append(out, stmt.Assignment)
		}
	}
	return out
}

// textSize 返回 size 属性（像素，缺省 20px）乘以 scale。
// scale 可以是数字，也可以是绑定变量名（如 Escala）；缺失或无效时为 1。
func (ctx *cardContext) textSize(attrs map[string]string) float64 {
	size := ParseLength(attrs["size"]).ToPX()
	if size <= 0 {
		size = 20
	}
	raw := attrs["scale"]
	if raw == "" {
		return size
	}
	if v, ok := binding.Lookup(ctx.data, raw); ok {
		raw = v
	} else if _, err := strconv.ParseFloat(raw, 64); err != nil {
		// 未绑定的变量名按 1 处理
		return size
	}
	if scale := parseNumber(raw); scale > 0 {
		return size * scale
	}
	ctx.log.Warn("scale 无效，按 1 处理", "scale", attrs["scale"])
	return size
}

// resolve 展开占位符；无法解析的占位符不会原样画出，而是置空并记录警告。
func (ctx *cardContext) resolve(text string) string {
	out, missing := binding.Resolve(text, ctx.data)
	if len(missing) > 0 {
		ctx.log.Warn("模板字段未绑定，已置空", "fields", missing)
	}
	return out
}

func parseBox(attrs map[string]string, offsetY int) BoundingBox {
	return BoundingBox{
		X:      int(parseNumber(attrs["x"])),
		Y:      int(parseNumber(attrs["y"])),
		Width:  max(int(parseNumber(attrs["w"])), 0),
		Height: max(int(parseNumber(attrs["h"])), 0),
	}.Offset(offsetY)
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if name != "" {
		if font, ok := res.Fonts[name]; ok {
			return font, nil
		}
		return FontResource{}, fmt.Errorf("未定义的字体 %s", name)
	}
	if font, ok := res.Fonts["Body"]; ok {
		return font, nil
	}
	names := make([]string, 0, len(res.Fonts))
	for n := range res.Fonts {
		names = append(names, n)
	}
	slices.Sort(names)
	return res.Fonts[names[0]], nil
}

// resolveColor 依次尝试颜色资源名与十六进制值，默认黑色。
func resolveColor(value string, res ResourceSet) Color {
	if value == "" {
		return Color{}
	}
	if c, ok := res.Colors[value]; ok {
		return c
	}
	if c, err := parseColor(value); err == nil {
		return c
	}
	return Color{}
}

func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(value, "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return Color{R: mustHex(r), G: mustHex(g), B: mustHex(b)}, nil
	case 6, 8:
		return Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
		}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

func parseNumber(value string) float64 {
	if value == "" {
		return 0
	}
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array == nil {
		if s := val.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(val.Array.Values))
	for _, v := range val.Array.Values {
		if s := v.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
