package shortener

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// AliasCache 记录别名与目标链接的对应关系，每次写入都持久化到 JSON 文件。
type AliasCache struct {
	path string

	mu      sync.Mutex
	aliases map[string]string
}

// OpenCache 读取缓存文件，不存在时创建空缓存。
func OpenCache(path string) (*AliasCache, error) {
	c := &AliasCache{path: path, aliases: map[string]string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, err
	case len(data) == 0:
		return c, nil
	}
	if err := json.Unmarshal(data, &c.aliases); err != nil {
		return nil, fmt.Errorf("解析别名缓存 %s 失败: %w", path, err)
	}
	return c, nil
}

// Get 返回 alias 指向的链接。
func (c *AliasCache) Get(alias string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.aliases[alias]
	return v, ok
}

// Put 记录 alias 并写回文件。
func (c *AliasCache) Put(alias, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = target
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c.aliases, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("写入别名缓存失败: %w", err)
	}
	return nil
}
