package gateway

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/exp/slices"

	"homegate/directory"
	"homegate/homekit"
	"homegate/protocol"
)

// values adapts the cache for the directory builder.
func (m *Manager) values(id string) directory.Values {
	return directory.Values(m.cache.Values(id))
}

// Status reports readiness, graph counts, and cache statistics.
func (m *Manager) Status(ctx context.Context) (protocol.StatusInfo, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.StatusInfo, error) {
		total := 0
		for _, home := range m.homes {
			total += len(home.Accessories)
		}
		return protocol.StatusInfo{
			Ready:       true,
			Homes:       len(m.homes),
			Accessories: total,
			Visible:     len(m.filteredIDs()),
			Cache:       m.cacheStatus(),
		}, nil
	})
}

func (m *Manager) cacheStatus() protocol.CacheStatus {
	entries, fresh, lastWarm := m.cache.Stats()
	status := protocol.CacheStatus{
		Entries:     entries,
		Fresh:       fresh,
		Fingerprint: m.cache.StoredFingerprint(),
		Warming:     m.warming,
	}
	if !lastWarm.IsZero() {
		status.LastWarm = &lastWarm
	}
	return status
}

// ListHomes lists every home; homes are never filtered, only accessories.
func (m *Manager) ListHomes(ctx context.Context) ([]protocol.HomeInfo, error) {
	return call(m, ctx, func(ctx context.Context) ([]protocol.HomeInfo, error) {
		infos := make([]protocol.HomeInfo, 0, len(m.homes))
		for _, home := range m.homes {
			visible := 0
			for _, acc := range home.Accessories {
				if m.filter.Allows(acc.ID) {
					visible++
				}
			}
			infos = append(infos, protocol.HomeInfo{
				ID:          home.ID,
				Name:        home.Name,
				Primary:     home.Primary,
				Rooms:       len(home.Rooms),
				Accessories: visible,
				Scenes:      len(home.Scenes),
			})
		}
		return infos, nil
	})
}

// ListRooms lists the rooms of the scoped home with their resolved zones.
func (m *Manager) ListRooms(ctx context.Context, homeID string) ([]protocol.RoomInfo, error) {
	return call(m, ctx, func(ctx context.Context) ([]protocol.RoomInfo, error) {
		home, err := m.scopeHome(homeID)
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		for _, acc := range home.Accessories {
			if m.filter.Allows(acc.ID) {
				counts[acc.RoomID]++
			}
		}
		zoneOf := directory.RoomZones(home)
		infos := make([]protocol.RoomInfo, 0, len(home.Rooms))
		for _, room := range home.Rooms {
			infos = append(infos, protocol.RoomInfo{
				ID:          room.ID,
				Name:        room.Name,
				Zone:        zoneOf[room.ID],
				Accessories: counts[room.ID],
			})
		}
		return infos, nil
	})
}

// ListAccessories lists the filtered accessories of the scoped home,
// optionally narrowed to one room by case-insensitive name.
func (m *Manager) ListAccessories(ctx context.Context, args protocol.ListAccessoriesArgs) ([]directory.DeviceSummary, error) {
	return call(m, ctx, func(ctx context.Context) ([]directory.DeviceSummary, error) {
		home, err := m.scopeHome(args.HomeID)
		if err != nil {
			return nil, err
		}
		summaries := directory.Summaries(home, m.filter.Allows, m.values)
		if args.Room != "" {
			filtered := summaries[:0]
			for _, s := range summaries {
				if strings.EqualFold(s.Room, args.Room) {
					filtered = append(filtered, s)
				}
			}
			summaries = filtered
		}
		m.refreshSummaries(summaries)
		return summaries, nil
	})
}

// ListAllAccessories lists every accessory across all homes, ignoring the
// filtering policy. This is the escape hatch for building the allow-list.
func (m *Manager) ListAllAccessories(ctx context.Context) ([]protocol.AccessoryRef, error) {
	return call(m, ctx, func(ctx context.Context) ([]protocol.AccessoryRef, error) {
		var refs []protocol.AccessoryRef
		for _, home := range m.homes {
			for _, acc := range home.Accessories {
				refs = append(refs, protocol.AccessoryRef{
					ID:        acc.ID,
					Name:      acc.Name,
					Home:      home.Name,
					Room:      home.RoomName(acc.RoomID),
					Category:  string(acc.Category),
					Reachable: acc.Reachable,
				})
			}
		}
		slices.SortFunc(refs, func(a, b protocol.AccessoryRef) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		return refs, nil
	})
}

// GetAccessory returns one accessory with its characteristics. Absent and
// filtered-out accessories fail identically, to avoid leaking hidden
// devices.
func (m *Manager) GetAccessory(ctx context.Context, id string) (protocol.AccessoryDetail, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.AccessoryDetail, error) {
		home, acc := m.findAccessoryByID(id)
		if acc == nil || !m.filter.Allows(acc.ID) {
			return protocol.AccessoryDetail{}, Errorf(CodeNotFound, "Accessory not found: %s", id)
		}
		m.refreshIfStale([]string{acc.ID})
		return m.accessoryDetail(home, acc), nil
	})
}

// Search matches the query against names, display names, rooms, zones,
// aliases, and semantic types of the scoped home's visible accessories.
func (m *Manager) Search(ctx context.Context, args protocol.SearchArgs) ([]directory.DeviceSummary, error) {
	return call(m, ctx, func(ctx context.Context) ([]directory.DeviceSummary, error) {
		home, err := m.scopeHome(args.HomeID)
		if err != nil {
			return nil, err
		}
		var category directory.SemanticType
		if args.Category != "" {
			category = directory.SemanticType(strings.ToLower(args.Category))
			if !slices.Contains(directory.SemanticTypes, category) {
				return nil, Errorf(CodeInvalidValue, "Unknown category: %s", args.Category)
			}
		}

		query := strings.ToLower(strings.TrimSpace(args.Query))
		var matches []directory.DeviceSummary
		for _, s := range directory.Summaries(home, m.filter.Allows, m.values) {
			if category != "" && s.Type != category {
				continue
			}
			if query == "" || matchesQuery(s, query) {
				matches = append(matches, s)
			}
		}
		m.refreshSummaries(matches)
		return matches, nil
	})
}

func matchesQuery(s directory.DeviceSummary, query string) bool {
	if strings.Contains(strings.ToLower(s.Name), query) ||
		strings.Contains(strings.ToLower(s.DisplayName), query) ||
		strings.Contains(strings.ToLower(s.Room), query) ||
		strings.Contains(strings.ToLower(s.Zone), query) ||
		strings.Contains(string(s.Type), query) {
		return true
	}
	for _, alias := range s.Aliases {
		if strings.Contains(alias, query) {
			return true
		}
	}
	return false
}

// DeviceMap builds the navigable Home -> Zone -> Room -> device tree of the
// scoped home.
func (m *Manager) DeviceMap(ctx context.Context, homeID string) (directory.DeviceMap, error) {
	return call(m, ctx, func(ctx context.Context) (directory.DeviceMap, error) {
		home, err := m.scopeHome(homeID)
		if err != nil {
			return directory.DeviceMap{}, err
		}
		deviceMap := directory.Build(home, m.filter.Allows, m.values)
		m.refreshIfStale(m.filteredIDs())
		return deviceMap, nil
	})
}

// ListScenes lists the scenes of the scoped home.
func (m *Manager) ListScenes(ctx context.Context, homeID string) ([]protocol.SceneInfo, error) {
	return call(m, ctx, func(ctx context.Context) ([]protocol.SceneInfo, error) {
		home, err := m.scopeHome(homeID)
		if err != nil {
			return nil, err
		}
		infos := make([]protocol.SceneInfo, 0, len(home.Scenes))
		for _, scene := range home.Scenes {
			infos = append(infos, sceneInfo(scene))
		}
		return infos, nil
	})
}

// TriggerScene resolves a scene by id (across homes), then by
// case-insensitive name within the scoped home, and executes it.
func (m *Manager) TriggerScene(ctx context.Context, idOrName string) (protocol.SceneInfo, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.SceneInfo, error) {
		scene := m.findScene(idOrName)
		if scene == nil {
			return protocol.SceneInfo{}, Errorf(CodeNotFound, "Scene not found: %s", idOrName)
		}
		if err := m.sub.ExecuteScene(ctx, scene.ID); err != nil {
			return protocol.SceneInfo{}, Errorf(CodeWriteFailed, "Scene execution failed: %v", err)
		}
		return sceneInfo(scene), nil
	})
}

func (m *Manager) findScene(idOrName string) *homekit.Scene {
	for _, home := range m.homes {
		for _, scene := range home.Scenes {
			if scene.ID == idOrName {
				return scene
			}
		}
	}
	home, err := m.scopeHome("")
	if err != nil {
		return nil
	}
	for _, scene := range home.Scenes {
		if strings.EqualFold(scene.Name, idOrName) {
			return scene
		}
	}
	return nil
}

func sceneInfo(scene *homekit.Scene) protocol.SceneInfo {
	return protocol.SceneInfo{
		ID:      scene.ID,
		Name:    scene.Name,
		Kind:    string(scene.Kind),
		Actions: len(scene.Actions),
	}
}

// GetConfig returns the persisted gateway configuration.
func (m *Manager) GetConfig(ctx context.Context) (protocol.ConfigInfo, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.ConfigInfo, error) {
		return m.configInfo(), nil
	})
}

// SetConfig mutates the persisted configuration. Changing the filter
// changes the filtered-set fingerprint, which invalidates the cache before
// the next warm.
func (m *Manager) SetConfig(ctx context.Context, args protocol.SetConfigArgs) (protocol.ConfigInfo, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.ConfigInfo, error) {
		if args.AccessoryFilterMode != nil {
			mode := FilterMode(*args.AccessoryFilterMode)
			if mode != FilterModeAll && mode != FilterModeAllowlist {
				return protocol.ConfigInfo{}, Errorf(CodeInvalidValue, "Invalid filter mode: %s (expected all or allowlist)", *args.AccessoryFilterMode)
			}
			m.filter.SetMode(mode)
		}
		if args.AllowedAccessoryIDs != nil {
			m.filter.SetAllowed(*args.AllowedAccessoryIDs)
		}
		if args.DefaultHomeID != nil {
			m.filter.SetDefaultHome(*args.DefaultHomeID)
		}
		if m.cache.SetFingerprint(Fingerprint(m.filteredIDs())) {
			slog.Info("filter changed, cache invalidated")
		}
		m.scheduleWarm()
		return m.configInfo(), nil
	})
}

func (m *Manager) configInfo() protocol.ConfigInfo {
	return protocol.ConfigInfo{
		DefaultHomeID:       m.filter.DefaultHome(),
		AccessoryFilterMode: string(m.filter.Mode()),
		AllowedAccessoryIDs: m.filter.AllowedIDs(),
	}
}

// RefreshCache schedules a full warm and reports cache state.
func (m *Manager) RefreshCache(ctx context.Context) (protocol.CacheStatus, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.CacheStatus, error) {
		m.scheduleWarm()
		return m.cacheStatus(), nil
	})
}

func (m *Manager) refreshSummaries(summaries []directory.DeviceSummary) {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	m.refreshIfStale(ids)
}
