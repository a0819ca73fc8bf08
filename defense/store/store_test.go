package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsadriel/defesa-facil/defense"
)

func TestMergeReportsNewAndUpdated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TCCs.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	first := s.Merge([]defense.Record{
		{Aluno: "Ana", Titulo: "A"},
		{Aluno: "Bruno", Titulo: "B"},
	})
	if len(first.New) != 2 || len(first.Updated) != 0 {
		t.Fatalf("first merge = %+v", first)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	second := s.Merge([]defense.Record{
		{Aluno: "Ana", Titulo: "A"},
		{Aluno: "Bruno", Titulo: "B2"},
		{Aluno: "Caio", Titulo: "C"},
	})
	if len(second.New) != 1 || second.New[0].Aluno != "Caio" {
		t.Fatalf("new = %+v", second.New)
	}
	if len(second.Updated) != 1 || second.Updated[0].Titulo != "B2" {
		t.Fatalf("updated = %+v", second.Updated)
	}
	if got := s.Records(); len(got) != 3 || got[1].Titulo != "B2" {
		t.Fatalf("records = %+v", got)
	}
	if s.Merge([]defense.Record{{Aluno: "Ana", Titulo: "A"}}).Empty() != true {
		t.Fatalf("unchanged merge should be empty")
	}
}

func TestWriteKeepsUnicodeAndIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "x.json")
	if err := Write(path, []defense.Record{{Aluno: "João", Titulo: "P&D <IA>"}}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "João") || !strings.Contains(text, "P&D <IA>") {
		t.Fatalf("escaped output: %s", text)
	}
	if !strings.Contains(text, "\n        \"Aluno\"") {
		t.Fatalf("expected 4-space indentation: %s", text)
	}
}

func TestAppendDiff(t *testing.T) {
	dir := t.TempDir()
	newPath := filepath.Join(dir, "novos.json")
	updPath := filepath.Join(dir, "atualizados.json")
	if err := os.WriteFile(updPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	d := Diff{New: []defense.Record{{Aluno: "Ana"}}, Updated: []defense.Record{{Aluno: "Bruno"}}}
	if err := AppendDiff(newPath, updPath, d); err != nil {
		t.Fatal(err)
	}
	if err := AppendDiff(newPath, "", Diff{New: []defense.Record{{Aluno: "Caio"}}}); err != nil {
		t.Fatal(err)
	}
	got, err := Load(newPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Aluno != "Ana" || got[1].Aluno != "Caio" {
		t.Fatalf("new list = %+v", got)
	}
	upd, err := Load(updPath)
	if err != nil || len(upd) != 1 {
		t.Fatalf("updated list = %+v, %v", upd, err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
