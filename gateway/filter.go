package gateway

import (
	"log/slog"

	"golang.org/x/exp/slices"
)

// FilterMode selects between exposing every accessory and an explicit
// allow-list.
type FilterMode string

const (
	FilterModeAll       FilterMode = "all"
	FilterModeAllowlist FilterMode = "allowlist"
)

// filterFile is the persisted shape of FilterConfig: one JSON document.
type filterFile struct {
	Mode          FilterMode `json:"mode"`
	AllowedIDs    []string   `json:"allowed_ids,omitempty"`
	DefaultHomeID string     `json:"default_home_id,omitempty"`
}

// FilterConfig is the gateway's filtering policy plus the persisted default
// home. It is consulted by every listing, search, and control command and
// mutated only by explicit config commands.
//
// Like Cache, FilterConfig is confined to the graph-owner loop.
type FilterConfig struct {
	path        string
	mode        FilterMode
	allowed     map[string]struct{}
	defaultHome string
}

// LoadFilterConfig restores the persisted filter config, defaulting to
// all-mode with no default home.
func LoadFilterConfig(path string) (*FilterConfig, error) {
	f := &FilterConfig{
		path:    path,
		mode:    FilterModeAll,
		allowed: make(map[string]struct{}),
	}
	var file filterFile
	found, err := readJSONFile(path, &file)
	if err != nil {
		return nil, err
	}
	if found {
		if file.Mode == FilterModeAllowlist {
			f.mode = FilterModeAllowlist
		}
		for _, id := range file.AllowedIDs {
			f.allowed[id] = struct{}{}
		}
		f.defaultHome = file.DefaultHomeID
	}
	return f, nil
}

// Allows reports whether an accessory id is visible to clients.
func (f *FilterConfig) Allows(id string) bool {
	if f.mode == FilterModeAll {
		return true
	}
	_, ok := f.allowed[id]
	return ok
}

// Mode returns the current filter mode.
func (f *FilterConfig) Mode() FilterMode { return f.mode }

// DefaultHome returns the persisted default-home reference (id or name).
func (f *FilterConfig) DefaultHome() string { return f.defaultHome }

// AllowedIDs returns the allow-list, sorted.
func (f *FilterConfig) AllowedIDs() []string {
	ids := make([]string, 0, len(f.allowed))
	for id := range f.allowed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetMode switches the filter mode.
func (f *FilterConfig) SetMode(mode FilterMode) {
	f.mode = mode
	f.persist()
}

// SetAllowed replaces the allow-list.
func (f *FilterConfig) SetAllowed(ids []string) {
	f.allowed = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		f.allowed[id] = struct{}{}
	}
	f.persist()
}

// SetDefaultHome records the default-home reference.
func (f *FilterConfig) SetDefaultHome(ref string) {
	f.defaultHome = ref
	f.persist()
}

func (f *FilterConfig) persist() {
	if f.path == "" {
		return
	}
	file := filterFile{
		Mode:          f.mode,
		AllowedIDs:    f.AllowedIDs(),
		DefaultHomeID: f.defaultHome,
	}
	if err := writeJSONFile(f.path, file); err != nil {
		slog.Warn("failed to persist filter config", "path", f.path, "err", err)
	}
}
