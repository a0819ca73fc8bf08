// Package dsl 定义卡片模板语言的语法树与解析入口。
package dsl

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	templateLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		// 颜色必须先于 # 注释匹配，长的十六进制形式优先
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:px|pt|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	symbols = templateLexer.Symbols()
	names   = func() map[lexer.TokenType]string {
		out := make(map[lexer.TokenType]string, len(symbols))
		for name, tt := range symbols {
			out[tt] = name
		}
		return out
	}()

	templateParser = participle.MustBuild[Document](
		participle.Lexer(templateLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
		participle.UseLookahead(4),
	)
)

// Document 是模板文件的根节点：doc <名称> <版本> { 段落... }。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是顶层段落之一：meta、resources 或 card。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Card      *CardSection      `parser:"| @@"`
}

// Kind 返回段落类型名。
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Card != nil:
		return "card"
	}
	return "unknown"
}

// MetaSection 保存文档元数据赋值（title、author、keywords）。
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// ResourcesSection 声明字体、图片与颜色资源。
type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// CardSection 是一个卡片模板：名称、头部参数（width/height/per/group）与绘制语句。
type CardSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"'card' @Ident"`
	Params []*Lexeme      `parser:"@@*"`
	Block  *Block         `parser:"@@"`
}

// Cards 按声明顺序返回所有 card 段落。
func (d *Document) Cards() []*CardSection {
	if d == nil {
		return nil
	}
	var out []*CardSection
	for _, s := range d.Sections {
		if s.Card != nil {
			out = append(out, s.Card)
		}
	}
	return out
}

// Block 是花括号包围的语句列表，语句间以换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' ( Newline | ';' )* ( @@ ( Newline | ';' )* )* '}'"`
}

// Statement 是赋值、命令或文本字面量之一。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment 是 key: value 形式的属性。
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command 是绘制指令，例如 text、icon、name、when、each。
// 参数为空格分隔的记号，可带一个子块。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Errorf 返回带有命令位置的错误。
func (c *Command) Errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", c.Pos, c.Name, fmt.Errorf(format, args...))
}

// TextLiteral 是块内的字符串语句，例如 text 的内容。
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是赋值右侧的值。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Ident  *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// Text 返回标量值的文本形式，数组返回空串。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ident != nil:
		return *v.Ident
	}
	return ""
}

// ArrayValue 是 [ a, b ] 形式的列表，元素间可用逗号、分号或换行分隔。
type ArrayValue struct {
	Values []*Value `parser:"'[' ( Newline | ',' | ';' )* ( @@ ( Newline | ',' | ';' )* )* ']'"`
}

// Lexeme 是命令参数中的单个记号。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse 实现 participle.Parseable：在换行、花括号或分号前逐个吞下记号。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok.EOF() || endsArgs(tok) {
		return participle.NextMatch
	}
	tok = lex.Next()
	value := tok.Value
	if tok.Type == symbols["String"] {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return fmt.Errorf("%s: 字符串字面量无效: %w", tok.Pos, err)
		}
		value = unquoted
	}
	typ, ok := names[tok.Type]
	if !ok {
		typ = fmt.Sprintf("#%d", tok.Type)
	}
	*l = Lexeme{Type: typ, Value: value, Raw: tok.Value, Pos: tok.Pos}
	return nil
}

func endsArgs(tok *lexer.Token) bool {
	switch tok.Type {
	case symbols["Newline"], symbols["LBrace"], symbols["RBrace"]:
		return true
	case symbols["Symbol"]:
		return tok.Value == ";"
	}
	return false
}

// SplitArgs 把参数拆成 key value 对。named 为真且参数个数为奇数时，
// 首个标识符视为资源名（字体或图片）单独返回。
func SplitArgs(args []*Lexeme, named bool) (string, map[string]string) {
	attrs := map[string]string{}
	var name string
	if named && len(args)%2 == 1 && args[0].Type == "Ident" {
		name, args = args[0].Value, args[1:]
	}
	for i := 0; i+1 < len(args); i += 2 {
		attrs[args[i].Value] = args[i+1].Value
	}
	return name, attrs
}

// StringLiteral 在捕获时去掉引号并处理转义。
type StringLiteral string

// Capture 实现 participle.Capture。
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串字面量缺少内容")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 从 io.Reader 解析模板。
func Parse(r io.Reader) (*Document, error) {
	return templateParser.Parse("", r)
}

// ParseFile 读取模板文件，错误位置带有文件名。
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return templateParser.Parse(path, f)
}

// ParseString 从字符串解析模板。
func ParseString(input string) (*Document, error) {
	return templateParser.ParseString("", input)
}
