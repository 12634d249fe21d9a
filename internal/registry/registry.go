// Package registry implements the on-disk class registry (§4.R) and
// the treat-as emulation resolver (§4.E): a directory tree rooted at a
// configurable path, with three flat subspaces keyed by a class-id's
// 38-character textual form (guid.TextLen).
package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncw/comrt/internal/corerr"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
)

// Subspace names a registry directory.
type Subspace string

// The three registry subspaces.
const (
	InprocServers  Subspace = "InprocServers"
	InprocHandlers Subspace = "InprocHandlers"
	TreatAs        Subspace = "TreatAs"
)

// Config configures where the registry lives on disk and what its
// three subspace directories are named. Defaults match §6.
type Config struct {
	Root              string
	InprocServersDir  string
	InprocHandlersDir string
	TreatAsDir        string
}

// Option configures a Config, the way rclone threads functional
// options into its backend constructors.
type Option func(*Config)

// WithRoot sets the registry root directory.
func WithRoot(root string) Option {
	return func(c *Config) { c.Root = root }
}

// WithSubspaceNames overrides the three subspace directory names.
func WithSubspaceNames(inprocServers, inprocHandlers, treatAs string) Option {
	return func(c *Config) {
		c.InprocServersDir = inprocServers
		c.InprocHandlersDir = inprocHandlers
		c.TreatAsDir = treatAs
	}
}

// NewConfig builds a Config from defaults and opts.
func NewConfig(root string, opts ...Option) Config {
	c := Config{
		Root:              root,
		InprocServersDir:  "InprocServers",
		InprocHandlersDir: "InprocHandlers",
		TreatAsDir:        "TreatAs",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Config) dir(s Subspace) string {
	switch s {
	case InprocServers:
		return filepath.Join(c.Root, c.InprocServersDir)
	case InprocHandlers:
		return filepath.Join(c.Root, c.InprocHandlersDir)
	case TreatAs:
		return filepath.Join(c.Root, c.TreatAsDir)
	default:
		return filepath.Join(c.Root, string(s))
	}
}

// Registry reads and writes the class registry rooted at Config.Root.
type Registry struct {
	cfg Config
}

// New returns a Registry rooted at cfg.
func New(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

func (r *Registry) entryPath(space Subspace, id guid.Identifier) string {
	return filepath.Join(r.cfg.dir(space), id.String())
}

// Read returns the trimmed contents of id's entry in space: a
// filesystem path for the in-proc subspaces, or another identifier's
// text for the treat-as subspace. The whole file is read and trailing
// (and leading) whitespace trimmed — the corrected behavior spec.md
// §9 calls for, rather than the original's fixed MAX_GUIDSTRING_LEN
// read.
func (r *Registry) Read(space Subspace, id guid.Identifier) (string, error) {
	data, err := os.ReadFile(r.entryPath(space, id))
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", errcode.NoPermission
		}
		return "", corerr.WrapCode(errcode.ReadRegistryError, err, "reading registry entry "+id.String())
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteTreatAs writes a treat-as redirect from oldID to newID. Writing
// guid.Nil as newID deletes the entry instead (the sole mutation the
// registry's delete semantics need), per §3 of SPEC_FULL.md.
func (r *Registry) WriteTreatAs(oldID, newID guid.Identifier) error {
	path := r.entryPath(TreatAs, oldID)
	if newID.IsNil() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if errors.Is(err, os.ErrPermission) {
				return errcode.NoPermission
			}
			return corerr.WrapCode(errcode.WriteRegistryError, err, "deleting treat-as entry "+oldID.String())
		}
		return nil
	}

	if err := os.MkdirAll(r.cfg.dir(TreatAs), 0o755); err != nil {
		return corerr.WrapCode(errcode.WriteRegistryError, err, "creating treat-as directory")
	}
	if err := os.WriteFile(path, []byte(newID.String()), 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return errcode.NoPermission
		}
		return corerr.WrapCode(errcode.WriteRegistryError, err, "writing treat-as entry "+oldID.String())
	}
	return nil
}

// DeleteTreatAs deletes id's treat-as entry, equivalent to
// WriteTreatAs(id, guid.Nil).
func (r *Registry) DeleteTreatAs(id guid.Identifier) error {
	return r.WriteTreatAs(id, guid.Nil)
}

// lookupTreatAs reads id's treat-as entry and parses it, returning
// (zero, false, nil) when no entry exists, distinguished from a read
// error (which is returned as a non-nil error).
func (r *Registry) lookupTreatAs(id guid.Identifier) (guid.Identifier, bool, error) {
	text, err := r.Read(TreatAs, id)
	if err != nil {
		if isNotFound(err) {
			return guid.Identifier{}, false, nil
		}
		return guid.Identifier{}, false, err
	}
	mapped, perr := guid.Parse(text)
	if perr != nil {
		return guid.Identifier{}, false, nil
	}
	return mapped, true, nil
}

func isNotFound(err error) bool {
	found := false
	corerr.Walk(err, func(e error) bool {
		if errors.Is(e, os.ErrNotExist) {
			found = true
			return true
		}
		return false
	})
	return found
}

// ResolveTreatAs chases id's treat-as mapping to a fixed point per the
// four-condition termination order in §4.E:
//  1. lookup fails (no mapping) -> return current (success)
//  2. lookup returns current (self-map) -> return it
//  3. lookup returns the original input (cycle back to start) -> return current
//  4. otherwise advance and continue
//
// The resolver always reports success; it detects only a full
// cycle-back-to-start, not arbitrary intermediate cycles, matching
// §4.E and §9's documented limitation.
func (r *Registry) ResolveTreatAs(id guid.Identifier) (guid.Identifier, error) {
	original := id
	current := id
	for {
		mapped, ok, err := r.lookupTreatAs(current)
		if err != nil || !ok {
			return current, nil
		}
		if mapped.Equal(current) {
			return current, nil
		}
		if mapped.Equal(original) {
			return current, nil
		}
		current = mapped
	}
}
