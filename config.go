package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dsadriel/defesa-facil/portal"
)

// Config 是凭据文件的内容。
type Config struct {
	TinyURL struct {
		Token string `json:"token"`
		Email string `json:"email"`
	} `json:"TinyURL"`
	Portal     portal.Credentials `json:"portalServicosINF"`
	PortalURL  string             `json:"portalURL,omitempty"`
	AliasCache string             `json:"aliasCache,omitempty"`
}

// LoadConfig 读取凭据 JSON。
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取凭据文件失败: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("解析凭据文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

func (c Config) aliasCachePath() string {
	if c.AliasCache != "" {
		return c.AliasCache
	}
	return "data/url-aliases-cache.json"
}
