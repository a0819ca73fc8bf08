// Package defense 定义答辩记录及其派生信息（角色标签、答辩形式、分组与编号）。
package defense

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Record 是一次答辩的结构化字段，JSON 字段名与历史数据文件保持一致。
type Record struct {
	Curso        string   `json:"Curso,omitempty"`
	Tipo         string   `json:"Tipo,omitempty"`
	Aluno        string   `json:"Aluno"`
	Orientador   string   `json:"Orientador"`
	Coorientador string   `json:"Coorientador"`
	Titulo       string   `json:"Titulo"`
	Banca        []string `json:"Banca,omitempty"`
	Data         string   `json:"Data"` // DD/MM/YYYY
	Hora         string   `json:"Hora"` // HH:MM
	Local        string   `json:"Local"`
}

// Fields 返回供模板绑定使用的字段表，Banca 以数组形式提供以支持 ${Banca[0]}。
func (r Record) Fields() map[string]any {
	banca := make([]any, 0, len(r.Banca))
	for _, m := range r.Banca {
		banca = append(banca, m)
	}
	fields := map[string]any{
		"Curso":        r.Curso,
		"Tipo":         r.Tipo,
		"Aluno":        r.Aluno,
		"Orientador":   r.Orientador,
		"Coorientador": r.Coorientador,
		"Titulo":       r.Titulo,
		"Banca":        banca,
		"Data":         r.Data,
		"Hora":         r.Hora,
		"Local":        r.Local,
	}
	fields["TituloCard"] = r.CardTitle()
	if sem := r.Semester(); sem != "" {
		fields["Semestre"] = sem
	}
	return fields
}

// DefaultCardTitle 是记录未给出答辩类型时的卡片标题。
const DefaultCardTitle = "Tese de Doutorado"

// CardTitle 返回卡片标题：答辩类型，缺省为 DefaultCardTitle。
func (r Record) CardTitle() string {
	if t := strings.TrimSpace(r.Tipo); t != "" {
		return t
	}
	return DefaultCardTitle
}

// Semester 由答辩日期推出学期，例如 2024/1（1 至 7 月）或 2024/2；日期无法解析时返回空串。
func (r Record) Semester() string {
	d, err := time.Parse("02/01/2006", strings.TrimSpace(r.Data))
	if err != nil {
		return ""
	}
	half := 1
	if d.Month() > time.July {
		half = 2
	}
	return fmt.Sprintf("%d/%d", d.Year(), half)
}

// Equal 逐字段比较两条记录。
func (r Record) Equal(o Record) bool {
	return r.Curso == o.Curso &&
		r.Tipo == o.Tipo &&
		r.Aluno == o.Aluno &&
		r.Orientador == o.Orientador &&
		r.Coorientador == o.Coorientador &&
		r.Titulo == o.Titulo &&
		slices.Equal(r.Banca, o.Banca) &&
		r.Data == o.Data &&
		r.Hora == o.Hora &&
		r.Local == o.Local
}

// Start 解析 Data 与 Hora 得到答辩开始时间（本地时区）。
func (r Record) Start() (time.Time, error) {
	t, err := time.ParseInLocation("02/01/2006 15:04", strings.TrimSpace(r.Data)+" "+strings.TrimSpace(r.Hora), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析 %s 的答辩时间 %q %q: %w", r.Aluno, r.Data, r.Hora, err)
	}
	return t, nil
}

// Modality 返回由 Local 推断出的答辩形式。
func (r Record) Modality() Modality { return ModalityOf(r.Local) }

// SortByDate 按开始时间稳定排序；无法解析的记录排在最后并保持原顺序。
func SortByDate(records []Record) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		ta, errA := a.Start()
		tb, errB := b.Start()
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return ta.Compare(tb)
	})
	return out
}

// GroupByCourse 按课程分组（组的顺序为课程首次出现的顺序），组内按日期排序。
func GroupByCourse(records []Record) [][]Record {
	var order []string
	groups := map[string][]Record{}
	for _, r := range records {
		if _, ok := groups[r.Curso]; !ok {
			order = append(order, r.Curso)
		}
		groups[r.Curso] = append(groups[r.Curso], r)
	}
	out := make([][]Record, 0, len(order))
	for _, c := range order {
		out = append(out, SortByDate(groups[c]))
	}
	return out
}

// Chunk 把记录按每 n 条切块，n<=0 时视为 1。
func Chunk(records []Record, n int) [][]Record {
	n = cmp.Or(max(n, 0), 1)
	var out [][]Record
	for i := 0; i < len(records); i += n {
		out = append(out, records[i:min(i+n, len(records))])
	}
	return out
}

// PostingText 生成社交媒体配文。
func PostingText(title, program string, r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s 📚\n\n", title, program)
	fmt.Fprintf(&b, "Aluno(a): %s\n", r.Aluno)
	fmt.Fprintf(&b, "%s\n", RoleAdvisor.Label(r.Orientador))
	if r.Coorientador != "" {
		fmt.Fprintf(&b, "%s\n", RoleCoAdvisor.Label(r.Coorientador))
	}
	fmt.Fprintf(&b, "\"%s\"\n\n", r.Titulo)
	fmt.Fprintf(&b, "Data: %s\nHorário: %s\n%s", r.Data, strings.ReplaceAll(r.Hora, ":", "h"), r.Local)
	return b.String()
}
