package content

import (
	"io/fs"
	"os"
	"path"
	"strings"
)

// Kind selects which resource family a name is looked up in.
type Kind string

const (
	KindRaw      Kind = "raw"
	KindDrawable Kind = "drawable"
)

// Provider returns bundled resource bytes by name. ok is false when the
// resource does not exist.
type Provider interface {
	Bytes(name string, kind Kind) (data []byte, ok bool)
}

// FSProvider serves resources from <kind>/<name>[.ext] inside an fs.FS,
// e.g. an embed.FS or os.DirFS.
type FSProvider struct {
	FS fs.FS
}

// DirProvider serves resources from raw/ and drawable/ under Root.
type DirProvider struct {
	FSProvider
	Root string
}

// NewDirProvider creates a provider rooted at a directory on disk.
func NewDirProvider(root string) DirProvider {
	return DirProvider{FSProvider: FSProvider{FS: os.DirFS(root)}, Root: root}
}

// Bytes implements Provider. An exact file name wins; otherwise the first
// file named <name>.<anything> in lexical order is used.
func (p FSProvider) Bytes(name string, kind Kind) ([]byte, bool) {
	if !validName(name) {
		return nil, false
	}
	dir := string(kind)

	if data, err := fs.ReadFile(p.FS, path.Join(dir, name)); err == nil {
		return data, true
	}

	matches, err := fs.Glob(p.FS, path.Join(dir, name+".*"))
	if err != nil || len(matches) == 0 {
		return nil, false
	}
	data, err := fs.ReadFile(p.FS, matches[0])
	if err != nil {
		return nil, false
	}
	return data, true
}

// MapProvider is an in-memory provider keyed by kind then name.
type MapProvider map[Kind]map[string][]byte

// Bytes implements Provider.
func (m MapProvider) Bytes(name string, kind Kind) ([]byte, bool) {
	data, ok := m[kind][name]
	return data, ok
}

// Put stores a resource.
func (m MapProvider) Put(kind Kind, name string, data []byte) {
	if m[kind] == nil {
		m[kind] = make(map[string][]byte)
	}
	m[kind][name] = data
}

// validName rejects names that could escape the kind directory or act as
// glob patterns.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\*?[`)
}
