// Package portal 登录教务门户并下载本科答辩列表页面。
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

// DefaultBaseURL 是门户根地址。
const DefaultBaseURL = "https://www.inf.ufrgs.br/portal"

const (
	loginPath     = "/valida.php"
	failurePath   = "/login.php"
	defensesPath  = "/apps/TCC-Grad/comunica.php"
	failureAction = "loginFailed"
)

// ErrLoginFailed 表示门户拒绝了凭据。
var ErrLoginFailed = errors.New("portal: 登录失败，请检查凭据文件")

// Credentials 是门户账号。
type Credentials struct {
	Login string `json:"login"`
	Senha string `json:"senha"`
}

// Client 保持登录会话的 cookie。
type Client struct {
	base string
	http *http.Client
}

// New 创建带 cookie jar 的客户端；base 为空时使用 DefaultBaseURL，transport 为空时使用默认传输。
func New(base string, transport http.RoundTripper) (*Client, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Jar: jar, Transport: transport},
	}, nil
}

// Login 提交登录表单。门户在失败时重定向到 login.php?action=loginFailed。
func (c *Client) Login(ctx context.Context, cred Credentials) error {
	form := url.Values{
		"loginUsuario": {cred.Login},
		"senhaUsuario": {cred.Senha},
		"BtnLogin":     {""},
		"redir":        {"painel.php"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("portal: 登录请求失败: %w", err)
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return fmt.Errorf("portal: 读取登录响应失败: %w", err)
	}

	final := res.Request.URL
	if strings.HasSuffix(final.Path, failurePath) && final.Query().Get("action") == failureAction {
		return ErrLoginFailed
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("portal: 登录返回 HTTP %d", res.StatusCode)
	}
	return nil
}

// Defenses 下载答辩列表页面并转码为 UTF-8；调用方负责关闭返回的 ReadCloser。
func (c *Client) Defenses(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+defensesPath, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal: 下载答辩列表失败: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("portal: 下载答辩列表返回 HTTP %d", res.StatusCode)
	}
	// 门户页面可能以 ISO-8859-1 输出，统一转为 UTF-8
	body, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		res.Body.Close()
		return nil, fmt.Errorf("portal: 无法识别页面编码: %w", err)
	}
	return readCloser{Reader: body, Closer: res.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
