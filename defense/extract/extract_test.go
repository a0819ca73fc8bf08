package extract

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

type fakeShortener struct {
	calls []string
}

func (f *fakeShortener) ShortenDefense(_ context.Context, link, student string) (string, error) {
	f.calls = append(f.calls, link)
	return "https://tinyurl.com/defesa-" + strings.ReplaceAll(student, " ", ""), nil
}

const tccEmail = `Prezados,

Seguem as defesas de TCC desta semana.

Aluno: ana souza
Título do Trabalho: Escalonamento_de_tarefas
Orientador: Carlos Silva
Banca: Prof. A, Prof. B
Data: 10/06/2024 às 14h
Sala: Sala 101 Prédio 43425 [1]

Aluna: beatriz lima
Título: Redes neurais
Orientadora: Dora Reis
Coorientador: Eva Melo
Banca: Prof. C
Data: 11/06/2024 às 9h30
Link: https://mconf.ufrgs.br/abc
`

func TestParseTCCEmail(t *testing.T) {
	sh := &fakeShortener{}
	e := &Extractor{Shortener: sh}
	records, err := e.ParseTCCEmail(context.Background(), strings.ReplaceAll(tccEmail, "\n", "\r\n"), "Ciência da Computação")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	a := records[0]
	if a.Aluno != "Ana Souza" || a.Titulo != "Escalonamento de tarefas" || a.Curso != "Ciência da Computação" {
		t.Fatalf("first record = %+v", a)
	}
	if a.Data != "10/06/2024" || a.Hora != "14:00" || a.Local != "Sala 101 Prédio 43425" {
		t.Fatalf("first record date/place = %q %q %q", a.Data, a.Hora, a.Local)
	}
	if !slices.Equal(a.Banca, []string{"Prof. A", "Prof. B"}) || a.Coorientador != "" {
		t.Fatalf("first record banca/co = %v %q", a.Banca, a.Coorientador)
	}
	b := records[1]
	if b.Coorientador != "Eva Melo" || b.Hora != "09:30" {
		t.Fatalf("second record = %+v", b)
	}
	if b.Local != "https://tinyurl.com/defesa-BeatrizLima" || len(sh.calls) != 1 {
		t.Fatalf("link not shortened: %q (%v)", b.Local, sh.calls)
	}
}

func TestParseTCCEmailEmpty(t *testing.T) {
	var e Extractor
	if _, err := e.ParseTCCEmail(context.Background(), "nada aqui", "X"); !errors.Is(err, ErrNoDefense) {
		t.Fatalf("expected ErrNoDefense, got %v", err)
	}
}

const posEmail = `DEFESA DE DISSERTAÇÃO DE MESTRADO

Aluno(a): joão pereira
Orientador(a): Prof. Dr. Carlos Silva
Coorientador(a): Profa. Dra. Dora Reis

Título: Um_estudo sobre compiladores

Data: 12/06/2024
Horário: 14h30min
Local: Sala 215 Prédio 43425 e https://mconf.ufrgs.br/xyz.
`

func TestParsePosEmailHybrid(t *testing.T) {
	sh := &fakeShortener{}
	e := &Extractor{Shortener: sh}
	rec, err := e.ParsePosEmail(context.Background(), posEmail)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Tipo != "DISSERTAÇÃO DE MESTRADO" || rec.Aluno != "João Pereira" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Orientador != "Prof. Dr. Carlos Silva" || rec.Coorientador != "Profa. Dra. Dora Reis" {
		t.Fatalf("advisors = %q / %q", rec.Orientador, rec.Coorientador)
	}
	if rec.Titulo != "Um estudo sobre compiladores" || rec.Data != "12/06/2024" || rec.Hora != "14:30" {
		t.Fatalf("title/date = %q %q %q", rec.Titulo, rec.Data, rec.Hora)
	}
	if rec.Local != "Sala 215 Prédio 43425\nhttps://tinyurl.com/defesa-JoãoPereira" {
		t.Fatalf("local = %q", rec.Local)
	}
	if sh.calls[0] != "https://mconf.ufrgs.br/xyz" {
		t.Fatalf("trailing dot not removed: %q", sh.calls[0])
	}
	if rec.Modality().String() != "Híbrida" {
		t.Fatalf("modality = %s", rec.Modality())
	}
}

func TestParsePosEmailWithoutShortener(t *testing.T) {
	var e Extractor
	content := strings.Replace(posEmail, "Coorientador(a): Profa. Dra. Dora Reis\n", "", 1)
	content = strings.Replace(content, "Sala 215 Prédio 43425 e ", "", 1)
	rec, err := e.ParsePosEmail(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Coorientador != "" || rec.Local != "https://mconf.ufrgs.br/xyz" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestParsePosEmailMalformed(t *testing.T) {
	var e Extractor
	if _, err := e.ParsePosEmail(context.Background(), "DEFESA DE TESE\nsem dados"); !errors.Is(err, ErrNoDefense) {
		t.Fatalf("expected ErrNoDefense, got %v", err)
	}
}

const portalHTML = `<html><body><table>
<tr><th>Data</th><th>Local</th><th>Curso</th><th>Aluno</th><th>Orientador</th><th>Coorientador</th><th>Título</th><th>Banca</th></tr>
<tr><td>10/06/2024 14:00</td><td>PRESENCIAL: Sala 101</td><td>Ciência da Computação</td><td>Ana Souza</td><td>Carlos</td><td></td><td>Escalonamento</td><td>Banca - Prof. A - Prof. B</td></tr>
<tr><td>11/06/2024 09:30</td><td>REMOTO: <a href="https://mconf.ufrgs.br/abc">link</a></td><td>Engenharia de Computação</td><td>Bruno Lima</td><td>Dora</td><td>Eva</td><td>Redes</td><td>Banca - Prof. C</td></tr>
</table></body></html>`

func TestParsePortalHTML(t *testing.T) {
	sh := &fakeShortener{}
	e := &Extractor{Shortener: sh}
	records, err := e.ParsePortalHTML(context.Background(), strings.NewReader(portalHTML))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	a := records[0]
	if a.Curso != "Ciência da Computação" || a.Aluno != "Ana Souza" || a.Local != "Sala 101" {
		t.Fatalf("first = %+v", a)
	}
	if a.Data != "10/06/2024" || a.Hora != "14:00" || !slices.Equal(a.Banca, []string{"Prof. A", "Prof. B"}) {
		t.Fatalf("first date/banca = %q %q %v", a.Data, a.Hora, a.Banca)
	}
	b := records[1]
	if b.Local != "https://tinyurl.com/defesa-BrunoLima" || b.Coorientador != "Eva" {
		t.Fatalf("second = %+v", b)
	}
}

func TestParsePortalHTMLNoDefenses(t *testing.T) {
	var e Extractor
	records, err := e.ParsePortalHTML(context.Background(), strings.NewReader("<table><tr><th>x</th></tr></table>"))
	if err != nil || len(records) != 0 {
		t.Fatalf("records = %v, err = %v", records, err)
	}
}
