package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dsadriel/defesa-facil/defense"
)

var (
	exprPattern   = regexp.MustCompile(`\$\{([^}]+)\}`)
	schemePattern = regexp.MustCompile(`https?://`)
)

// Filter 将绑定值转换为另一种展示形式。
type Filter func(string) string

var filters = map[string]Filter{
	"upper":        strings.ToUpper,
	"lower":        strings.ToLower,
	"title":        cases.Title(language.BrazilianPortuguese).String,
	"hour":         func(s string) string { return strings.ReplaceAll(s, ":", "h") },
	"strip-scheme": func(s string) string { return schemePattern.ReplaceAllString(s, "") },
	"modality":     func(s string) string { return defense.ModalityOf(s).String() },
	"slug":         func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), " ", "-") },
	"trim":         strings.TrimSpace,
}

// Interpolate 将文本中的 ${path.to.value|filtro} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符；未知过滤器被忽略。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		if out, _, ok := evaluate(match, data); ok {
			return out
		}
		return match
	})
}

// Resolve 与 Interpolate 相同，但无法解析的占位符被替换为空串，
// 同时按出现顺序返回缺失的路径。
func Resolve(text string, data any) (string, []string) {
	var missing []string
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		val, path, ok := evaluate(match, data)
		if !ok {
			missing = append(missing, path)
			return ""
		}
		return val
	})
	return out, missing
}

func evaluate(match string, data any) (string, string, bool) {
	groups := exprPattern.FindStringSubmatch(match)
	if len(groups) < 2 {
		return "", match, false
	}
	parts := strings.Split(groups[1], "|")
	path := strings.TrimSpace(parts[0])
	if path == "" || data == nil {
		return "", path, false
	}
	val, ok := resolvePath(data, path)
	if !ok {
		return "", path, false
	}
	out := fmt.Sprint(val)
	for _, name := range parts[1:] {
		if f, ok := filters[strings.TrimSpace(name)]; ok {
			out = f(out)
		}
	}
	return out, path, true
}

// Lookup 返回 path 对应的字符串值。
func Lookup(data any, path string) (string, bool) {
	val, ok := resolvePath(data, strings.TrimSpace(path))
	if !ok || val == nil {
		return "", false
	}
	return fmt.Sprint(val), true
}

// Merge 按顺序合并多张字段表，后者覆盖前者。
func Merge(tables ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	indexes := []string{}
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				break
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
