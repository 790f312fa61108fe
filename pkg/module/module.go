// Package module implements the ModuleResolver hook that use/import
// statements resolve against (SUPPLEMENTED FEATURES): the evaluator
// and VM ask a value.ModuleResolver for a module by path; this package
// supplies the concrete resolver a host wires into value.CallCtx.
//
// Resolution and caching are grounded on the original interpreter's
// module cache (module_cache.py): a module is loaded at most once per
// process and kept under the path it was requested by, and a bare module name
// is looked up first as a registered (host-provided) module, then as
// a source file relative to the working directory and to a
// zpm_modules/ sibling directory, trying the .zx and .zexus
// extensions in turn.
package module

import (
	"os"
	"path/filepath"

	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Loader turns a resolved source path into the exports of the program
// found there. The registry itself has no opinion on how a path
// becomes a *value.Map of exports — a CLI host runs the path through
// the full parse/evaluate pipeline and hands back Environment.Exports;
// a test can supply a trivial stub.
type Loader func(path string) (*value.Map, error)

// Registry is a value.ModuleResolver backed by an in-memory cache plus
// an optional filesystem Loader for paths that aren't pre-registered.
type Registry struct {
	cache    map[string]*value.Module
	loader   Loader
	baseDirs []string
}

// New returns an empty Registry. SetLoader/Register configure it
// further; a Registry with neither only ever resolves paths it was
// explicitly Register-ed with.
func New() *Registry {
	return &Registry{cache: map[string]*value.Module{}}
}

// SetLoader installs the filesystem/host loader used for paths that
// aren't already registered or cached.
func (r *Registry) SetLoader(l Loader) *Registry {
	r.loader = l
	return r
}

// AddSearchDir adds a directory candidatePaths consults, in addition
// to the process working directory and its zpm_modules subdirectory.
func (r *Registry) AddSearchDir(dir string) *Registry {
	r.baseDirs = append(r.baseDirs, dir)
	return r
}

// Register pre-populates the cache with a module's exports, for a host
// exposing a built-in module (e.g. "collections") without a backing
// source file, or for tests.
func (r *Registry) Register(path string, exports *value.Map) {
	r.cache[path] = &value.Module{Name: path, Exports: exports}
}

// Resolve implements value.ModuleResolver.
func (r *Registry) Resolve(path string) (*value.Module, error) {
	if m, ok := r.cache[path]; ok {
		return m, nil
	}
	if r.loader == nil {
		return nil, zerr.New(zerr.IO, zerr.Position{}, "no module resolver configured for %q", path)
	}
	var lastErr error
	for _, candidate := range candidatePaths(path, r.baseDirs) {
		exports, err := r.loader(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		m := &value.Module{Name: path, Exports: exports}
		r.cache[path] = m
		return m, nil
	}
	if lastErr == nil {
		lastErr = zerr.New(zerr.IO, zerr.Position{}, "module %q not found", path)
	}
	return nil, lastErr
}

// candidatePaths mirrors get_module_candidates: the path as given
// (absolute, or relative to the working directory), then under a
// zpm_modules sibling directory, then under each AddSearchDir directory.
// Each of those is followed directly by its .zx and .zexus variants
// when the path doesn't already carry an extension.
func candidatePaths(path string, extraDirs []string) []string {
	var bases []string
	if filepath.IsAbs(path) {
		bases = append(bases, path)
	} else {
		cwd, err := os.Getwd()
		if err == nil {
			bases = append(bases, filepath.Join(cwd, path))
			bases = append(bases, filepath.Join(cwd, "zpm_modules", path))
		} else {
			bases = append(bases, path)
		}
		for _, dir := range extraDirs {
			bases = append(bases, filepath.Join(dir, path))
		}
	}
	var out []string
	for _, b := range bases {
		out = append(out, b)
		if filepath.Ext(b) == "" {
			out = append(out, b+".zx", b+".zexus")
		}
	}
	return out
}
