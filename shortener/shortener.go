// Package shortener 是 TinyURL API 的最小客户端，为答辩链接生成可读的固定别名。
package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultBaseURL 是 TinyURL API 地址。
	DefaultBaseURL = "https://api.tinyurl.com"
	// Domain 是短链接域名。
	Domain = "tinyurl.com"

	aliasUnavailable = "Alias is not available."
	maxAttempts      = 20
)

// ErrAliasTaken 表示多次递增后缀后仍找不到可用别名。
var ErrAliasTaken = errors.New("shortener: 别名已被占用")

// Client 调用 TinyURL API。Cache 为空时不做本地缓存。
type Client struct {
	BaseURL    string
	Token      string
	Email      string // 用于确认已存在的别名属于本账号
	HTTPClient *http.Client
	Cache      *AliasCache
	Logger     *slog.Logger
}

type apiResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []string        `json:"errors"`
}

type createData struct {
	TinyURL string `json:"tiny_url"`
}

type aliasData struct {
	URL  string `json:"url"`
	User struct {
		Email string `json:"email"`
	} `json:"user"`
}

// ShortenDefense 以 DefenseAlias(student) 为别名缩短 link。
func (c *Client) ShortenDefense(ctx context.Context, link, student string) (string, error) {
	alias := ""
	if strings.TrimSpace(student) != "" {
		alias = DefenseAlias(student)
	}
	return c.Shorten(ctx, link, alias)
}

// Shorten 缩短 longURL。alias 已被其他链接占用时，递增数字后缀重试。
func (c *Client) Shorten(ctx context.Context, longURL, alias string) (string, error) {
	for range maxAttempts {
		if alias != "" && c.Cache != nil {
			if cached, ok := c.Cache.Get(alias); ok && cached == longURL {
				return shortLink(alias), nil
			}
		}

		status, resp, err := c.do(ctx, http.MethodPost, "/create", map[string]string{
			"url":    longURL,
			"domain": Domain,
			"alias":  alias,
		})
		if err != nil {
			return "", err
		}
		if status == http.StatusOK {
			var data createData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return "", fmt.Errorf("tinyurl: 解析响应失败: %w", err)
			}
			if alias != "" && c.Cache != nil {
				if err := c.Cache.Put(alias, longURL); err != nil {
					return "", err
				}
			}
			return data.TinyURL, nil
		}
		if alias == "" || !slices.Contains(resp.Errors, aliasUnavailable) {
			return "", fmt.Errorf("tinyurl: HTTP %d: %s", status, strings.Join(resp.Errors, "; "))
		}

		existing, err := c.lookup(ctx, alias)
		if err != nil {
			return "", err
		}
		if existing.URL == longURL && (c.Email == "" || existing.User.Email == c.Email) {
			if c.Cache != nil {
				if err := c.Cache.Put(alias, longURL); err != nil {
					return "", err
				}
			}
			return shortLink(alias), nil
		}
		c.logger().Warn("别名已被占用，尝试下一个", "alias", alias, "target", existing.URL)
		alias = nextAlias(alias)
	}
	return "", ErrAliasTaken
}

func (c *Client) lookup(ctx context.Context, alias string) (aliasData, error) {
	status, resp, err := c.do(ctx, http.MethodGet, "/alias/"+Domain+"/"+url.PathEscape(alias), nil)
	if err != nil {
		return aliasData{}, err
	}
	if status != http.StatusOK {
		return aliasData{}, fmt.Errorf("tinyurl: 查询别名 %s 失败: HTTP %d: %s", alias, status, strings.Join(resp.Errors, "; "))
	}
	var data aliasData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return aliasData{}, fmt.Errorf("tinyurl: 解析别名 %s 失败: %w", alias, err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, apiResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, apiResponse{}, err
		}
		reader = bytes.NewReader(data)
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(base, "/")+path, reader)
	if err != nil {
		return 0, apiResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("tinyurl: 请求失败: %w", err)
	}
	defer res.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil && !errors.Is(err, io.EOF) {
		return res.StatusCode, apiResponse{}, fmt.Errorf("tinyurl: 解析响应失败 (HTTP %d): %w", res.StatusCode, err)
	}
	return res.StatusCode, resp, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// DefenseAlias 生成 defesa-<名的前两个字母><姓的前 15 个字母>，去掉重音符号。
func DefenseAlias(student string) string {
	words := strings.Fields(Unaccent(student))
	if len(words) == 0 {
		return "defesa"
	}
	return "defesa-" + prefix(words[0], 2) + prefix(words[len(words)-1], 15)
}

// Unaccent 去掉组合重音符号，例如 "João" -> "Joao"。
func Unaccent(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// nextAlias 递增别名末尾的数字：abc -> abc1，abc9 -> abc10。
func nextAlias(alias string) string {
	stem := strings.TrimRightFunc(alias, unicode.IsDigit)
	n, _ := strconv.Atoi(alias[len(stem):])
	return stem + strconv.Itoa(n+1)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func shortLink(alias string) string { return "https://" + Domain + "/" + alias }
