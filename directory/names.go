package directory

import (
	"fmt"
	"strings"

	"homegate/homekit"
)

// DisplayNames computes a display name per accessory in the given set.
// Accessories sharing a name (case-insensitively) get a room-prefixed
// display name; unique names pass through unchanged. The second return
// reports whether any collision occurred, so callers can attach a
// disambiguation hint.
func DisplayNames(home *homekit.Home, accessories []*homekit.Accessory) (map[string]string, bool) {
	counts := make(map[string]int)
	for _, acc := range accessories {
		counts[strings.ToLower(acc.Name)]++
	}

	names := make(map[string]string, len(accessories))
	collided := false
	for _, acc := range accessories {
		if counts[strings.ToLower(acc.Name)] < 2 {
			names[acc.ID] = acc.Name
			continue
		}
		collided = true
		room := home.RoomName(acc.RoomID)
		if room == "" || strings.HasPrefix(strings.ToLower(acc.Name), strings.ToLower(room)) {
			names[acc.ID] = acc.Name
			continue
		}
		names[acc.ID] = fmt.Sprintf("%s %s", room, acc.Name)
	}
	return names, collided
}

// Aliases generates lowercase lookup aliases for an accessory: room+name
// combinations, "{room} light(s)" for lighting devices and plain switches
// (wall switches almost always drive lights), and a manufacturer alias when
// the accessory is the only one of its manufacturer in its room.
func Aliases(home *homekit.Home, acc *homekit.Accessory, semantic SemanticType) []string {
	room := strings.ToLower(home.RoomName(acc.RoomID))
	name := strings.ToLower(acc.Name)
	if room == "" {
		return nil
	}

	seen := make(map[string]bool)
	var aliases []string
	add := func(alias string) {
		if alias == "" || alias == name || seen[alias] {
			return
		}
		seen[alias] = true
		aliases = append(aliases, alias)
	}

	add(room + " " + name)
	add(name + " in " + room)

	if semantic == TypeLighting || acc.Category == homekit.CategorySwitch {
		add(room + " light")
		add(room + " lights")
	}

	if acc.Manufacturer != "" && soleManufacturerInRoom(home, acc) {
		add(room + " " + strings.ToLower(acc.Manufacturer))
	}

	return aliases
}

func soleManufacturerInRoom(home *homekit.Home, acc *homekit.Accessory) bool {
	count := 0
	for _, other := range home.Accessories {
		if other.RoomID == acc.RoomID && strings.EqualFold(other.Manufacturer, acc.Manufacturer) {
			count++
		}
	}
	return count == 1
}
