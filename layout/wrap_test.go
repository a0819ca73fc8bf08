package layout

import (
	"errors"
	"slices"
	"testing"
)

func TestWrapGreedy(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	got, err := WrapLines("Aluno Fulano de Tal Souza", m, 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Aluno Fulano de Tal", "Souza"}
	if !slices.Equal(got, want) {
		t.Fatalf("WrapLines = %q, want %q", got, want)
	}
}

func TestWrapKeepsExplicitBreaks(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	got, err := WrapLines("Sala 101\nhttps://meet", m, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"Sala 101", "https://meet"}) {
		t.Fatalf("explicit breaks lost: %q", got)
	}
}

func TestWrapOverlongWordOverflows(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	got, err := WrapLines("a Pneumoultramicroscopico b", m, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "Pneumoultramicroscopico", "b"}
	if !slices.Equal(got, want) {
		t.Fatalf("WrapLines = %q, want %q", got, want)
	}
}

func TestWrapCountsSpacing(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	// "ab cd" = 50 sem espaçamento, 50 + 4*3 = 62 com espaçamento 3.
	got, err := WrapLines("ab cd", m, 55, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"ab", "cd"}) {
		t.Fatalf("spacing ignored: %q", got)
	}
	got, err = WrapLines("ab cd", m, 55, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"ab cd"}) {
		t.Fatalf("negative spacing should tighten: %q", got)
	}
}

func TestWrapLinesFitWidth(t *testing.T) {
	m := monoMetrics{advance: 7, line: 10}
	text := "Um estudo sobre escalonamento de tarefas em sistemas distribuidos heterogeneos"
	for _, width := range []float64{70, 140, 210, 700} {
		lines, err := WrapLines(text, m, width, 1)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range lines {
			if MeasureSpaced(m, line, 1) > width {
				t.Fatalf("line %q exceeds %g", line, width)
			}
		}
	}
}

func TestWrapIsRecomputedPerIteration(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	seq, err := Wrap("um dois tres", m, 40, 0)
	if err != nil {
		t.Fatal(err)
	}
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) || len(first) != 3 {
		t.Fatalf("iterations differ: %q vs %q", first, second)
	}
	for line := range seq {
		if line != "um" {
			t.Fatalf("first line = %q", line)
		}
		break
	}
}

func TestWrapNilMetrics(t *testing.T) {
	if _, err := Wrap("x", nil, 10, 0); !errors.Is(err, ErrMetricsUnavailable) {
		t.Fatalf("expected ErrMetricsUnavailable, got %v", err)
	}
}

func TestWrapIdempotent(t *testing.T) {
	m := monoMetrics{advance: 10, line: 10}
	text := "Ana fez uma defesa de tese sobre redes\nna sala azul do bloco norte"
	for _, width := range []float64{80, 120, 200, 1000} {
		for _, spacing := range []float64{0, 2, -1} {
			lines, err := WrapLines(text, m, width, spacing)
			if err != nil {
				t.Fatal(err)
			}
			for _, line := range lines {
				again, err := WrapLines(line, m, width, spacing)
				if err != nil {
					t.Fatal(err)
				}
				if !slices.Equal(again, []string{line}) {
					t.Fatalf("width %v spacing %v: %q rewrapped as %q", width, spacing, line, again)
				}
			}
		}
	}
}
