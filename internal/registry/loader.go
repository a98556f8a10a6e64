package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"sage/internal/common/fsutil"
	"sage/pkg/types"
)

// quantRe matches llama.cpp quantization tags such as q4_k_m, Q8_0 or f16
// at the end of a file stem.
var quantRe = regexp.MustCompile(`(?i)[-_.]((?:iq|q)[1-8](?:_[0-9a-z]+)*|f16|f32|bf16)$`)

// Scanner lists model files in a directory.
type Scanner interface {
	Scan(dir string) ([]types.Model, error)
}

// GGUFScanner finds *.gguf files. The file named Active, if any, is marked
// as the configured model.
type GGUFScanner struct {
	Active string
}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan reads dir (a leading ~ is expanded) and returns one Model per GGUF
// file, sorted by ID. A missing directory yields no models and no error.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{
			ID:     name,
			Path:   filepath.Join(abs, name),
			Quant:  ParseQuant(name),
			Active: s.Active != "" && name == s.Active,
		}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with a GGUFScanner and marks active.
func LoadDir(dir, active string) ([]types.Model, error) {
	return (&GGUFScanner{Active: active}).Scan(dir)
}

// ParseQuant returns the upper-cased quantization tag in a GGUF file name,
// or "" when there is none.
func ParseQuant(filename string) string {
	stem := filename
	if ext := filepath.Ext(stem); strings.EqualFold(ext, ".gguf") {
		stem = strings.TrimSuffix(stem, ext)
	}
	m := quantRe.FindStringSubmatch(stem)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}
