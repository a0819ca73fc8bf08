package binding

import (
	"testing"

	"github.com/dsadriel/defesa-facil/defense"
)

func TestInterpolateFields(t *testing.T) {
	rec := defense.Record{
		Aluno: "Ana Souza",
		Hora:  "14:00",
		Local: "https://tinyurl.com/defesa-AnSouza",
		Banca: []string{"Prof. A", "Prof. B"},
	}
	data := Merge(map[string]any{"Semestre": "2024/1"}, rec.Fields())

	cases := []struct {
		in   string
		want string
	}{
		{"${Aluno}", "Ana Souza"},
		{"${Aluno|upper}", "ANA SOUZA"},
		{"${Hora|hour}", "14h00"},
		{"${Local|strip-scheme}", "tinyurl.com/defesa-AnSouza"},
		{"${Local|modality}", "Online"},
		{"defesa-${Aluno|slug}(f).png", "defesa-Ana-Souza(f).png"},
		{"${Banca[1]}", "Prof. B"},
		{"Semestre ${Semestre}", "Semestre 2024/1"},
		{"${Inexistente}", "${Inexistente}"},
		{"${Aluno|desconhecido}", "Ana Souza"},
	}
	for _, c := range cases {
		if got := Interpolate(c.in, data); got != c.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveBlanksMissingPaths(t *testing.T) {
	data := map[string]any{"Aluno": "Ana Souza"}
	got, missing := Resolve("${TituloCard|upper} ${Aluno} ${Semestre}", data)
	if got != " Ana Souza " {
		t.Fatalf("Resolve = %q", got)
	}
	if len(missing) != 2 || missing[0] != "TituloCard" || missing[1] != "Semestre" {
		t.Fatalf("missing = %v", missing)
	}
	if got, missing := Resolve("${Aluno}", nil); got != "" || len(missing) != 1 {
		t.Fatalf("nil data: %q %v", got, missing)
	}
	if got, missing := Resolve("sem campos", data); got != "sem campos" || missing != nil {
		t.Fatalf("plain text: %q %v", got, missing)
	}
}

func TestInterpolateNilData(t *testing.T) {
	if got := Interpolate("${Aluno}", nil); got != "${Aluno}" {
		t.Fatalf("nil data 应原样返回，实际 %q", got)
	}
}

func TestTitleFilter(t *testing.T) {
	data := map[string]any{"Aluno": "maria da silva"}
	if got := Interpolate("${Aluno|title}", data); got != "Maria Da Silva" {
		t.Fatalf("title 过滤器结果错误: %q", got)
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{"Coorientador": "", "Orientador": "Carlos"}
	if v, ok := Lookup(data, "Orientador"); !ok || v != "Carlos" {
		t.Fatalf("Lookup Orientador = %q,%v", v, ok)
	}
	if v, ok := Lookup(data, "Coorientador"); !ok || v != "" {
		t.Fatalf("Lookup Coorientador = %q,%v", v, ok)
	}
	if _, ok := Lookup(data, "Banca[0]"); ok {
		t.Fatalf("缺失路径应返回 false")
	}
}
