package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrInvalidModuleName = errors.New("invalid module name")
	ErrUnknownModule     = errors.New("unknown module")
)

// DefaultExt is the client source extension used when Layout.Ext is empty.
const DefaultExt = ".ts"

var segmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Layout fixes where client modules and shared type definitions live.
type Layout struct {
	ClientRoot string
	SharedRoot string
	Ext        string
}

func (l Layout) ext() string {
	if l.Ext == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(l.Ext, ".") {
		return "." + l.Ext
	}
	return l.Ext
}

// Resolve maps a dotted module name to its source file. "Pages.Home"
// resolves to <ClientRoot>/Pages/Home.ts. The file is not required to exist.
func (l Layout) Resolve(name string) (string, error) {
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if !segmentPattern.MatchString(seg) {
			return "", fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
		}
	}
	segments[len(segments)-1] += l.ext()
	return filepath.Join(append([]string{l.ClientRoot}, segments...)...), nil
}

// ShimPath is where WriteShim places the compatibility module.
func (l Layout) ShimPath() string {
	return filepath.Join(l.ClientRoot, ShimName+l.ext())
}

// SearchDirs returns the roots bare imports are resolved against.
func (l Layout) SearchDirs() []string {
	dirs := []string{l.ClientRoot}
	if l.SharedRoot != "" {
		dirs = append(dirs, l.SharedRoot)
	}
	return dirs
}

// Sources lists every source file under both roots, sorted.
func (l Layout) Sources() ([]string, error) {
	var files []string
	for _, root := range l.SearchDirs() {
		found, err := l.walk(root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	sort.Strings(files)
	return files, nil
}

// SharedSources lists the source files under SharedRoot, sorted.
func (l Layout) SharedSources() ([]string, error) {
	if l.SharedRoot == "" {
		return nil, nil
	}
	files, err := l.walk(l.SharedRoot)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Modules discovers the module names under ClientRoot, sorted. The shim
// and declaration files are not modules.
func (l Layout) Modules() ([]string, error) {
	files, err := l.walk(l.ClientRoot)
	if err != nil {
		return nil, err
	}

	shim := l.ShimPath()
	var names []string
	for _, f := range files {
		if f == shim || strings.HasSuffix(f, ".d"+l.ext()) {
			continue
		}
		rel, err := filepath.Rel(l.ClientRoot, f)
		if err != nil {
			return nil, err
		}
		name := strings.ReplaceAll(strings.TrimSuffix(rel, l.ext()), string(filepath.Separator), ".")
		if _, err := l.Resolve(name); err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l Layout) walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != root && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == l.ext() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

// isModule reports whether path is a compilable module source: a regular
// file that is not the generated shim.
func (l Layout) isModule(path string) bool {
	if path == l.ShimPath() {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
