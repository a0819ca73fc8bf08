// Package store 保存已知的答辩记录，并计算新抓取数据与已保存数据的差异。
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/dsadriel/defesa-facil/defense"
)

// Store 是以学生姓名为键的 JSON 记录列表。
type Store struct {
	path    string
	records []defense.Record
}

// Diff 是一次合并带来的变化。
type Diff struct {
	New     []defense.Record `json:"new"`
	Updated []defense.Record `json:"updated"`
}

// Empty 报告是否没有任何变化。
func (d Diff) Empty() bool { return len(d.New) == 0 && len(d.Updated) == 0 }

// Open 读取 path；文件不存在时得到空的 Store。
func Open(path string) (*Store, error) {
	records, err := Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return &Store{path: path, records: records}, nil
}

// Records 返回当前记录的副本。
func (s *Store) Records() []defense.Record { return slices.Clone(s.records) }

// Merge 把 incoming 合并进 Store：未知学生追加为新记录，字段有变化的替换原记录。
func (s *Store) Merge(incoming []defense.Record) Diff {
	var d Diff
	for _, rec := range incoming {
		i := slices.IndexFunc(s.records, func(r defense.Record) bool { return r.Aluno == rec.Aluno })
		switch {
		case i < 0:
			s.records = append(s.records, rec)
			d.New = append(d.New, rec)
		case !s.records[i].Equal(rec):
			s.records[i] = rec
			d.Updated = append(d.Updated, rec)
		}
	}
	return d
}

// Save 覆盖写回主文件。
func (s *Store) Save() error { return Write(s.path, s.records) }

// AppendDiff 把新增与更新的记录分别追加到 newPath 与 updatedPath 中已有的列表。
// 路径为空的一侧被跳过。
func AppendDiff(newPath, updatedPath string, d Diff) error {
	for _, side := range []struct {
		path    string
		records []defense.Record
	}{{newPath, d.New}, {updatedPath, d.Updated}} {
		if side.path == "" {
			continue
		}
		existing, err := Load(side.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := Write(side.path, append(existing, side.records...)); err != nil {
			return err
		}
	}
	return nil
}

// Load 读取记录列表；空文件视为空列表。
func Load(path string) ([]defense.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []defense.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("解析记录文件 %s 失败: %w", path, err)
	}
	return records, nil
}

// Write 以 4 空格缩进写出记录，非 ASCII 字符与 & < > 原样保留。
func Write(path string, records []defense.Record) error {
	if records == nil {
		records = []defense.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入记录文件 %s 失败: %w", path, err)
	}
	return nil
}
