// Package calendar 把答辩记录导出为可导入日历的 CSV。
package calendar

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dsadriel/defesa-facil/defense"
)

// Duration 是每场答辩在日历中占用的时长。
const Duration = 30 * time.Minute

// Header 是 CSV 的列名。
var Header = []string{"Title", "Start", "End", "Categories", "Content"}

// Event 是日历中的一行。
type Event struct {
	Title      string
	Start      time.Time
	End        time.Time
	Categories string
	Content    string
}

// NewEvent 由记录生成日历事件。
func NewEvent(r defense.Record) (Event, error) {
	start, err := r.Start()
	if err != nil {
		return Event{}, err
	}
	return Event{
		Title:      "TCC de " + r.Aluno,
		Start:      start,
		End:        start.Add(Duration),
		Categories: category(r.Curso),
		Content:    content(r),
	}, nil
}

func (e Event) row() []string {
	const layout = "2006-01-02 15:04"
	return []string{e.Title, e.Start.Format(layout), e.End.Format(layout), e.Categories, e.Content}
}

// Write 写出表头与每条记录对应的一行；任一记录日期无法解析时返回错误。
func Write(w io.Writer, records []defense.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		ev, err := NewEvent(r)
		if err != nil {
			return fmt.Errorf("生成日历事件失败: %w", err)
		}
		if err := cw.Write(ev.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func category(course string) string {
	if strings.HasPrefix(course, "Engenharia") {
		return "TCC - ECP"
	}
	return "TCC - CIC"
}

func content(r defense.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Título do Trabalho:</b> %s<br><b>Orientador(a):</b> %s<br>", r.Titulo, r.Orientador)
	if len(r.Coorientador) > 1 {
		fmt.Fprintf(&b, "<b>Coorientador(a):</b> %s<br>", r.Coorientador)
	}
	fmt.Fprintf(&b, "<b>Banca:</b> %s<br>", strings.Join(r.Banca, ", "))
	fmt.Fprintf(&b, "<b>Data:</b> %s %s <br>", r.Data, r.Hora)
	if strings.HasPrefix(r.Local, "http") {
		fmt.Fprintf(&b, `<b>Link:</b> <a href="%s">%s</a>`, r.Local, r.Local)
	} else {
		fmt.Fprintf(&b, "<b>Local:</b> %s", r.Local)
	}
	return b.String()
}
