package manager

import "path/filepath"

// Defaults for the bundled model.
const (
	DefaultFilename     = "qwen2-0_5b-instruct-q4_k_m.gguf"
	DefaultURL          = "https://huggingface.co/Qwen/Qwen2-0.5B-Instruct-GGUF/resolve/main/qwen2-0_5b-instruct-q4_k_m.gguf"
	DefaultMinBytes     = 350 << 20
	DefaultNominalBytes = 400 << 20
)

// Asset describes the model file: where it lives locally, where it is
// fetched from, and the size below which a local copy is corrupt.
type Asset struct {
	Filename     string
	URL          string
	Dir          string
	MinBytes     int64
	NominalBytes int64
}

// DefaultAsset returns the bundled model asset stored under dir.
func DefaultAsset(dir string) Asset {
	return Asset{
		Filename:     DefaultFilename,
		URL:          DefaultURL,
		Dir:          dir,
		MinBytes:     DefaultMinBytes,
		NominalBytes: DefaultNominalBytes,
	}
}

func (a Asset) Path() string { return filepath.Join(a.Dir, a.Filename) }

// Valid reports whether a file of size bytes is usable. Exactly MinBytes is
// valid.
func (a Asset) Valid(size int64) bool { return size >= a.MinBytes }
