// Package extract 从公告邮件与门户网页中提取答辩记录。
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dsadriel/defesa-facil/defense"
)

// ErrNoDefense 表示输入中找不到任何答辩信息。
var ErrNoDefense = errors.New("extract: 未找到答辩信息")

// Shortener 为远程答辩链接生成短链接，alias 由学生姓名推导。
type Shortener interface {
	ShortenDefense(ctx context.Context, link, student string) (string, error)
}

// Extractor 解析各类来源；Shortener 为空时保留原始链接。
type Extractor struct {
	Shortener Shortener
	Logger    *slog.Logger
}

var (
	tccEmailPattern = regexp.MustCompile(`(?m)\s*Alun[oa]: +(?P<aluno>.+?)$` +
		`\s*Título(?: do Trabalho)?: +(?P<titulo>.+?)$` +
		`\s*Orientador(?:a|es|as)?: +(?P<orientador>.+?)$` +
		`(?:\s*Coorientador(?:a|es|as)?: +(?P<coorientador>.+?)$)?` +
		`\s*Banca: +(?P<banca>.+?)$` +
		`\s*Data: +(?P<data>.+?)$` +
		`\s*(?:Link|Sala): +(?P<local>.*?)$`)

	posEmailPattern = regexp.MustCompile(`(?im)DEFESA DE +(?P<tipo>.+?)$` +
		`[\s\S]+?Alun(?:o\(a\)|o|a): (?P<aluno>.+?)$` +
		`[\s\S]+?Orientador(?:\(a\)|a)?: (?P<orientador>.+?)$` +
		`(?:[\s\S]+?Coorientador(?:\(a\)|a)?: (?P<coorientador>.+?)$)?` +
		`[\s\S]+?Título: (?P<titulo>.+?)$` +
		`[\s\S]+?Data: (?P<data>\d{2}/\d{2}/\d{4})$` +
		`[\s\S]+?(?:Horário|Hora): (?P<hora>\d{1,2}(?:h|:)\d{2}(?:min)?)` +
		`[\s\S]+?Local: (?P<local>.+?)$`)

	footnotePattern = regexp.MustCompile(`\[\d+\]`)
	roomPattern     = regexp.MustCompile(`(?i)Sala.+?\s+Prédio \d+(?:\.\d+)?`)
	linkPattern     = regexp.MustCompile(`https?://\S+`)
	datePattern     = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	timePattern     = regexp.MustCompile(`\d{2}:\d{2}`)
	bancaSeparator  = regexp.MustCompile(` ?- `)

	titleCaser = cases.Title(language.BrazilianPortuguese)
)

// ParseTCCEmail 解析本科答辩公告邮件，每个匹配块生成一条记录，course 写入 Curso。
func (e *Extractor) ParseTCCEmail(ctx context.Context, content, course string) ([]defense.Record, error) {
	content = normalize(content)
	matches := tccEmailPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil, ErrNoDefense
	}
	var out []defense.Record
	for _, m := range matches {
		g := groups(tccEmailPattern, m)
		date, hour := splitDateTime(g["data"])
		rec := defense.Record{
			Curso:        course,
			Aluno:        titleCaser.String(g["aluno"]),
			Orientador:   g["orientador"],
			Coorientador: g["coorientador"],
			Titulo:       strings.ReplaceAll(g["titulo"], "_", " "),
			Banca:        strings.Split(g["banca"], ", "),
			Data:         date,
			Hora:         hour,
			Local:        strings.TrimSpace(footnotePattern.ReplaceAllString(g["local"], "")),
		}
		if strings.HasPrefix(rec.Local, "http") {
			link, err := e.shorten(ctx, rec.Local, rec.Aluno)
			if err != nil {
				return nil, err
			}
			rec.Local = link
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParsePosEmail 解析研究生答辩邮件。混合答辩的教室与链接以换行连接。
func (e *Extractor) ParsePosEmail(ctx context.Context, content string) (defense.Record, error) {
	content = normalize(content)
	m := posEmailPattern.FindStringSubmatch(content)
	if m == nil {
		return defense.Record{}, ErrNoDefense
	}
	g := groups(posEmailPattern, m)
	rec := defense.Record{
		Tipo:         g["tipo"],
		Aluno:        titleCaser.String(g["aluno"]),
		Orientador:   g["orientador"],
		Coorientador: g["coorientador"],
		Titulo:       strings.ReplaceAll(g["titulo"], "_", " "),
		Data:         g["data"],
		Hora:         normalizeHour(g["hora"]),
	}

	var parts []string
	if room := roomPattern.FindString(g["local"]); room != "" {
		parts = append(parts, room)
	}
	if link := linkPattern.FindString(g["local"]); link != "" {
		link = strings.TrimSuffix(link, ".")
		short, err := e.shorten(ctx, link, rec.Aluno)
		if err != nil {
			return defense.Record{}, err
		}
		parts = append(parts, short)
	}
	if len(parts) == 0 {
		parts = append(parts, strings.TrimSpace(g["local"]))
	}
	rec.Local = strings.Join(parts, "\n")
	return rec, nil
}

// ParsePortalHTML 解析门户导出的答辩表格。
// 列顺序：日期时间、地点、课程、学生、导师、共同导师、题目、答辩委员会。
// 表格不足三行时视为当前没有答辩，返回空列表。
func (e *Extractor) ParsePortalHTML(ctx context.Context, r io.Reader) ([]defense.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析门户页面失败: %w", err)
	}
	rows := findAll(doc, "tr")
	if len(rows) <= 2 {
		return nil, nil
	}

	var out []defense.Record
	for _, row := range rows {
		cols := children(row, "td")
		if len(cols) == 0 {
			continue // 表头
		}
		if len(cols) < 8 {
			e.logger().Warn("忽略列数不足的表格行", "columns", len(cols))
			continue
		}
		when := textContent(cols[0])
		date := datePattern.FindString(when)
		hour := timePattern.FindString(when)
		if date == "" || hour == "" {
			e.logger().Warn("忽略无法识别日期的表格行", "value", when)
			continue
		}
		rec := defense.Record{
			Curso:        textContent(cols[2]),
			Aluno:        textContent(cols[3]),
			Orientador:   textContent(cols[4]),
			Coorientador: textContent(cols[5]),
			Titulo:       textContent(cols[6]),
			Banca:        splitBanca(textContent(cols[7])),
			Data:         date,
			Hora:         hour,
		}
		place := textContent(cols[1])
		if strings.HasPrefix(place, "REMOTO:") {
			link := attr(findFirst(cols[1], "a"), "href")
			if !strings.HasPrefix(link, "https://tinyurl.com") {
				if link, err = e.shorten(ctx, link, rec.Aluno); err != nil {
					return nil, err
				}
			}
			rec.Local = link
		} else if _, after, ok := strings.Cut(place, ":"); ok {
			rec.Local = strings.TrimSpace(strings.Split(after, ":")[0])
		} else {
			rec.Local = strings.TrimSpace(place)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (e *Extractor) shorten(ctx context.Context, link, student string) (string, error) {
	if e == nil || e.Shortener == nil || link == "" || strings.HasPrefix(link, "https://tinyurl.com") {
		return link, nil
	}
	short, err := e.Shortener.ShortenDefense(ctx, link, student)
	if err != nil {
		return "", fmt.Errorf("缩短 %s 的链接失败: %w", student, err)
	}
	return short, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func normalize(content string) string {
	return strings.ReplaceAll(content, "\r\n", "\n")
}

func groups(re *regexp.Regexp, match []string) map[string]string {
	out := map[string]string{}
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			out[name] = strings.TrimSpace(match[i])
		}
	}
	return out
}

// splitDateTime 拆分 "10/06/2024 às 14h" 形式的日期时间。
func splitDateTime(value string) (string, string) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 0:
		return "", ""
	case 1, 2:
		return fields[0], normalizeHour(fields[len(fields)-1])
	default:
		return fields[0], normalizeHour(fields[2])
	}
}

// normalizeHour 把 14h、14h30、14h30min 统一为 HH:MM。
func normalizeHour(value string) string {
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "min")
	h = strings.ReplaceAll(h, "h", ":")
	if strings.HasSuffix(h, ":") {
		h += "00"
	}
	if len(h) == 4 && h[1] == ':' {
		h = "0" + h
	}
	return h
}

func splitBanca(value string) []string {
	parts := bancaSeparator.Split(strings.TrimSpace(value), -1)
	if len(parts) <= 1 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.Data == tag {
			out = append(out, d)
		}
	}
	return out
}

func findFirst(n *html.Node, tag string) *html.Node {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.Data == tag {
			return d
		}
	}
	return nil
}

func children(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := range n.ChildNodes() {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
