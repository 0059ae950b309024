// Package pathmap maps virtual paths seen through the mount onto paths in
// the backing directory.
//
// Translation is a plain prefix concatenation. No cleaning is performed, so a
// virtual path containing ".." segments can name a location outside the
// backing root. The kernel resolves ".." before requests reach the
// filesystem, but callers constructing paths by hand must not rely on this
// package to confine them.
package pathmap

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrRootNotAbsolute is returned when the backing root is not an absolute path.
var ErrRootNotAbsolute = errors.New("backing root must be an absolute path")

// Translator prefixes virtual paths with a fixed backing root.
type Translator struct {
	root string
}

// New returns a Translator for root. Trailing separators are dropped so that
// Translate("/") yields the root itself.
func New(root string) (*Translator, error) {
	if !filepath.IsAbs(root) {
		return nil, ErrRootNotAbsolute
	}
	trimmed := strings.TrimRight(root, "/")
	if trimmed == "" {
		trimmed = "/"
	}
	return &Translator{root: trimmed}, nil
}

// Root returns the backing root.
func (t *Translator) Root() string {
	return t.root
}

// Translate returns the backing path for a virtual path. Virtual paths are
// rooted at "/".
func (t *Translator) Translate(virtual string) string {
	if virtual == "" || virtual == "/" {
		return t.root
	}
	if !strings.HasPrefix(virtual, "/") {
		virtual = "/" + virtual
	}
	if t.root == "/" {
		return virtual
	}
	return t.root + virtual
}

// Join returns the virtual path of name inside the virtual directory dir.
func Join(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
