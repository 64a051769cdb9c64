package directory

import "homegate/homekit"

// UnzonedName groups rooms that belong to no declared zone.
const UnzonedName = "(Unzoned)"

// zoneBucket is one resolved zone with its rooms, in presentation order.
type zoneBucket struct {
	name  string
	rooms []*homekit.Room
}

// resolveZones assigns every declared zone its rooms and groups zone-less
// rooms under a synthetic "(Unzoned)" bucket. A home with no declared zones
// collapses to one implicit zone named after the home.
func resolveZones(home *homekit.Home) []zoneBucket {
	if len(home.Zones) == 0 {
		return []zoneBucket{{name: home.Name, rooms: home.Rooms}}
	}

	zoned := make(map[string]bool)
	var buckets []zoneBucket
	for _, zone := range home.Zones {
		bucket := zoneBucket{name: zone.Name}
		for _, roomID := range zone.RoomIDs {
			if room := home.RoomByID(roomID); room != nil {
				bucket.rooms = append(bucket.rooms, room)
				zoned[roomID] = true
			}
		}
		buckets = append(buckets, bucket)
	}

	var unzoned zoneBucket
	unzoned.name = UnzonedName
	for _, room := range home.Rooms {
		if !zoned[room.ID] {
			unzoned.rooms = append(unzoned.rooms, room)
		}
	}
	if len(unzoned.rooms) > 0 {
		buckets = append(buckets, unzoned)
	}
	return buckets
}
