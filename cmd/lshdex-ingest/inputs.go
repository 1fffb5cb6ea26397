package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 64 << 20

// item is one pending document. Text is loaded lazily for files.
type item struct {
	id   string
	path string
	text string
}

func (it item) load() (string, error) {
	if it.path == "" {
		return it.text, nil
	}
	b, err := os.ReadFile(it.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", it.path, err)
	}
	return string(b), nil
}

// walkFiles lists regular files under root whose slash-separated relative path
// matches any include pattern (all files when none) and no exclude pattern.
func walkFiles(root string, include, exclude []string) ([]item, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob %q", p)
		}
	}

	var items []item
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !selected(rel, include, exclude) {
			return nil
		}
		items = append(items, item{id: rel, path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return items, nil
}

func selected(rel string, include, exclude []string) bool {
	for _, p := range exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, p := range include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

type jsonlRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// readJSONL parses one {"id","text"} object per line. Blank lines are skipped and
// records without an id get a random UUID.
func readJSONL(r io.Reader) ([]item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []item
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		items = append(items, item{id: rec.ID, text: rec.Text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return items, nil
}
