package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeTinyURL 模拟 TinyURL API：taken 中的别名已存在并指向给定链接。
type fakeTinyURL struct {
	mu      sync.Mutex
	taken   map[string]string
	creates []string
}

func (f *fakeTinyURL) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /create", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"errors": []string{"Unauthorized"}})
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		alias := body["alias"]
		f.creates = append(f.creates, alias)
		if _, ok := f.taken[alias]; ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"errors": []string{aliasUnavailable}})
			return
		}
		if alias == "" {
			alias = "abc123"
		}
		f.taken[alias] = body["url"]
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"tiny_url": "https://tinyurl.com/" + alias}, "errors": []string{}})
	})
	mux.HandleFunc("GET /alias/tinyurl.com/{alias}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		target, ok := f.taken[r.PathValue("alias")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"errors": []string{"not found"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"url": target, "user": map[string]string{"email": "eu@inf.ufrgs.br"}}})
	})
	return mux
}

func newClient(t *testing.T, f *fakeTinyURL) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cache, err := OpenCache(filepath.Join(t.TempDir(), "aliases.json"))
	if err != nil {
		t.Fatal(err)
	}
	return &Client{BaseURL: srv.URL, Token: "tok", Email: "eu@inf.ufrgs.br", HTTPClient: srv.Client(), Cache: cache}
}

func TestDefenseAlias(t *testing.T) {
	cases := map[string]string{
		"Ana Souza":                          "defesa-AnSouza",
		"João Conceição":                     "defesa-JoConceicao",
		"Maria Clara Albuquerque-Cavalcanti": "defesa-MaAlbuquerque-Cav",
		"Zé":                                 "defesa-ZeZe",
	}
	for in, want := range cases {
		if got := DefenseAlias(in); got != want {
			t.Fatalf("DefenseAlias(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNextAlias(t *testing.T) {
	for in, want := range map[string]string{"defesa-AnSouza": "defesa-AnSouza1", "x1": "x2", "x9": "x10"} {
		if got := nextAlias(in); got != want {
			t.Fatalf("nextAlias(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortenCreatesAndCaches(t *testing.T) {
	f := &fakeTinyURL{taken: map[string]string{}}
	c := newClient(t, f)
	got, err := c.ShortenDefense(context.Background(), "https://meet/a", "Ana Souza")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://tinyurl.com/defesa-AnSouza" {
		t.Fatalf("short = %q", got)
	}
	again, err := c.ShortenDefense(context.Background(), "https://meet/a", "Ana Souza")
	if err != nil || again != got {
		t.Fatalf("cached call = %q, %v", again, err)
	}
	if len(f.creates) != 1 {
		t.Fatalf("cache not used, creates = %v", f.creates)
	}
}

func TestShortenReusesOwnAlias(t *testing.T) {
	f := &fakeTinyURL{taken: map[string]string{"defesa-AnSouza": "https://meet/a"}}
	c := newClient(t, f)
	got, err := c.Shorten(context.Background(), "https://meet/a", "defesa-AnSouza")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://tinyurl.com/defesa-AnSouza" {
		t.Fatalf("short = %q", got)
	}
}

func TestShortenBumpsTakenAlias(t *testing.T) {
	f := &fakeTinyURL{taken: map[string]string{
		"defesa-AnSouza":  "https://outra",
		"defesa-AnSouza1": "https://mais-outra",
	}}
	c := newClient(t, f)
	got, err := c.Shorten(context.Background(), "https://meet/a", "defesa-AnSouza")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://tinyurl.com/defesa-AnSouza2" {
		t.Fatalf("short = %q", got)
	}
}

func TestShortenAPIError(t *testing.T) {
	f := &fakeTinyURL{taken: map[string]string{}}
	c := newClient(t, f)
	c.Token = "errado"
	_, err := c.Shorten(context.Background(), "https://meet/a", "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected HTTP 401 error, got %v", err)
	}
}

func TestShortenGivesUp(t *testing.T) {
	taken := map[string]string{"a": "https://outra"}
	for i := 1; i <= maxAttempts; i++ {
		taken[nextAliasN("a", i)] = "https://outra"
	}
	c := newClient(t, &fakeTinyURL{taken: taken})
	if _, err := c.Shorten(context.Background(), "https://meet/a", "a"); !errors.Is(err, ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
}

func TestCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	c, err := OpenCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("defesa-X", "https://meet"); err != nil {
		t.Fatal(err)
	}
	again, err := OpenCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := again.Get("defesa-X"); !ok || v != "https://meet" {
		t.Fatalf("cache lost entry: %q %v", v, ok)
	}
}

func nextAliasN(alias string, n int) string {
	for range n {
		alias = nextAlias(alias)
	}
	return alias
}
