// Package directory synthesizes a navigable, machine-friendly view of the
// raw device graph: semantic classification, zone resolution, display-name
// disambiguation, alias generation, and per-device state summaries. All
// functions are pure over a graph snapshot plus cached values; nothing here
// touches the subsystem or persists state.
package directory

import (
	"strings"

	"golang.org/x/exp/slices"

	"homegate/homekit"
)

// DeviceSummary is the per-accessory entry in listings and the device map.
type DeviceSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Room        string       `json:"room,omitempty"`
	Zone        string       `json:"zone,omitempty"`
	Type        SemanticType `json:"type"`
	Aliases     []string     `json:"aliases,omitempty"`
	Reachable   bool         `json:"reachable"`
	State       string       `json:"state"`
}

// RoomGroup is one room's devices inside a device map.
type RoomGroup struct {
	Room    string          `json:"room"`
	Devices []DeviceSummary `json:"devices"`
}

// ZoneGroup is one zone's rooms inside a device map.
type ZoneGroup struct {
	Zone  string      `json:"zone"`
	Rooms []RoomGroup `json:"rooms"`
}

// Stats aggregates a device map.
type Stats struct {
	Devices   int                  `json:"devices"`
	Reachable int                  `json:"reachable"`
	ByType    map[SemanticType]int `json:"by_type,omitempty"`
}

// DeviceMap is the navigable Home -> Zone -> Room -> device tree. Derived,
// never persisted; recomputed per request.
type DeviceMap struct {
	Home   string      `json:"home"`
	HomeID string      `json:"home_id"`
	Zones  []ZoneGroup `json:"zones"`
	Stats  Stats       `json:"stats"`
	Hint   string      `json:"hint,omitempty"`
}

// ValuesFunc looks up the cached values of one accessory.
type ValuesFunc func(accessoryID string) Values

// IncludeFunc is the filtering policy: it decides whether an accessory id is
// visible to clients.
type IncludeFunc func(accessoryID string) bool

// Summaries builds the flat, filtered device summaries of a home, sorted by
// display name. Display-name disambiguation runs over the filtered set,
// since that is the namespace clients see.
func Summaries(home *homekit.Home, include IncludeFunc, values ValuesFunc) []DeviceSummary {
	accessories := visible(home, include)
	displayNames, _ := DisplayNames(home, accessories)
	zoneOf := RoomZones(home)

	summaries := make([]DeviceSummary, 0, len(accessories))
	for _, acc := range accessories {
		summaries = append(summaries, summarize(home, acc, displayNames, zoneOf, values))
	}
	slices.SortFunc(summaries, func(a, b DeviceSummary) int {
		return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	})
	return summaries
}

// Summary builds the summary of a single accessory, with display-name
// disambiguation computed against the rest of the filtered set.
func Summary(home *homekit.Home, acc *homekit.Accessory, include IncludeFunc, values ValuesFunc) DeviceSummary {
	displayNames, _ := DisplayNames(home, visible(home, include))
	return summarize(home, acc, displayNames, RoomZones(home), values)
}

// Build assembles the device map of a home. Empty zones and rooms are
// omitted; a disambiguation hint is attached when any name collision
// occurred.
func Build(home *homekit.Home, include IncludeFunc, values ValuesFunc) DeviceMap {
	accessories := visible(home, include)
	displayNames, collided := DisplayNames(home, accessories)
	zoneOf := RoomZones(home)

	byRoom := make(map[string][]DeviceSummary)
	for _, acc := range accessories {
		s := summarize(home, acc, displayNames, zoneOf, values)
		byRoom[acc.RoomID] = append(byRoom[acc.RoomID], s)
	}

	m := DeviceMap{
		Home:   home.Name,
		HomeID: home.ID,
		Stats:  Stats{ByType: make(map[SemanticType]int)},
	}
	for _, bucket := range resolveZones(home) {
		zg := ZoneGroup{Zone: bucket.name}
		for _, room := range bucket.rooms {
			devices := byRoom[room.ID]
			if len(devices) == 0 {
				continue
			}
			slices.SortFunc(devices, func(a, b DeviceSummary) int {
				return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
			})
			zg.Rooms = append(zg.Rooms, RoomGroup{Room: room.Name, Devices: devices})
		}
		if len(zg.Rooms) > 0 {
			m.Zones = append(m.Zones, zg)
		}
	}

	for _, s := range flatten(m.Zones) {
		m.Stats.Devices++
		if s.Reachable {
			m.Stats.Reachable++
		}
		m.Stats.ByType[s.Type]++
	}
	if collided {
		m.Hint = "some device names occur more than once; use display_name or id to address them"
	}
	return m
}

func summarize(home *homekit.Home, acc *homekit.Accessory, displayNames map[string]string, zoneOf map[string]string, values ValuesFunc) DeviceSummary {
	semantic := SemanticTypeOf(acc)
	var vals Values
	if values != nil {
		vals = values(acc.ID)
	}
	return DeviceSummary{
		ID:          acc.ID,
		Name:        acc.Name,
		DisplayName: displayNames[acc.ID],
		Room:        home.RoomName(acc.RoomID),
		Zone:        zoneOf[acc.RoomID],
		Type:        semantic,
		Aliases:     Aliases(home, acc, semantic),
		Reachable:   acc.Reachable,
		State:       Summarize(acc, semantic, vals),
	}
}

func visible(home *homekit.Home, include IncludeFunc) []*homekit.Accessory {
	var accessories []*homekit.Accessory
	for _, acc := range home.Accessories {
		if include == nil || include(acc.ID) {
			accessories = append(accessories, acc)
		}
	}
	return accessories
}

// RoomZones maps every room id of the home to its resolved zone name,
// including rooms that contain no accessories.
func RoomZones(home *homekit.Home) map[string]string {
	zoneOf := make(map[string]string, len(home.Rooms))
	for _, bucket := range resolveZones(home) {
		for _, room := range bucket.rooms {
			zoneOf[room.ID] = bucket.name
		}
	}
	return zoneOf
}

func flatten(zones []ZoneGroup) []DeviceSummary {
	var all []DeviceSummary
	for _, z := range zones {
		for _, r := range z.Rooms {
			all = append(all, r.Devices...)
		}
	}
	return all
}
