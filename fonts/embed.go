// Package fonts 提供随程序分发的内置字体（Go 字体家族），模板中以 builtin:<name> 引用。
package fonts

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
)

// Fallback 是找不到字体时使用的内置字体名。
const Fallback = "go-regular"

var builtin = map[string][]byte{
	"go-regular":       goregular.TTF,
	"go-bold":          gobold.TTF,
	"go-italic":        goitalic.TTF,
	"go-bold-italic":   gobolditalic.TTF,
	"go-medium":        gomedium.TTF,
	"go-medium-italic": gomediumitalic.TTF,
	"go-mono":          gomono.TTF,
	"go-mono-bold":     gomonobold.TTF,
	"go-smallcaps":     gosmallcaps.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:go-bold"、"embed:go-bold" 或直接 "go-bold"。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(name, "builtin:"), "built-in:"), "embed:")
	data, ok := builtin[strings.ToLower(key)]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体为 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 返回全部内置字体名（已排序）。
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}
