package directory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homegate/homekit"
)

func mapHome() *homekit.Home {
	return &homekit.Home{
		ID:   "home-1",
		Name: "Main",
		Rooms: []*homekit.Room{
			{ID: "kitchen", Name: "Kitchen"},
			{ID: "hallway", Name: "Hallway"},
			{ID: "bedroom", Name: "Bedroom"},
			{ID: "attic", Name: "Attic"},
		},
		Zones: []*homekit.Zone{
			{Name: "Downstairs", RoomIDs: []string{"kitchen", "hallway"}},
			{Name: "Upstairs", RoomIDs: []string{"bedroom"}},
		},
		Accessories: []*homekit.Accessory{
			{ID: "l1", Name: "Light", RoomID: "kitchen", Category: homekit.CategoryLightbulb, Reachable: true},
			{ID: "l2", Name: "Light", RoomID: "hallway", Category: homekit.CategoryLightbulb, Reachable: true},
			{ID: "lamp", Name: "Lamp", RoomID: "bedroom", Category: homekit.CategoryLightbulb, Reachable: true},
			{ID: "sensor", Name: "Attic Sensor", RoomID: "attic", Category: homekit.CategorySensor, Reachable: false},
		},
	}
}

func staticValues(m map[string]Values) ValuesFunc {
	return func(id string) Values { return m[id] }
}

func TestSummariesSortedByDisplayName(t *testing.T) {
	home := mapHome()
	got := Summaries(home, nil, staticValues(map[string]Values{
		"l1": {"power": "true", "brightness": "75"},
	}))

	require.Len(t, got, 4)
	var order []string
	for _, s := range got {
		order = append(order, s.DisplayName)
	}
	assert.Equal(t, []string{"Attic Sensor", "Hallway Light", "Kitchen Light", "Lamp"}, order)

	assert.Equal(t, "on 75%", got[2].State)
	assert.Equal(t, "unknown", got[1].State)
	assert.Equal(t, "unreachable", got[0].State)
	assert.Equal(t, "Downstairs", got[2].Zone)
	assert.Equal(t, "Upstairs", got[3].Zone)
}

func TestSummariesFilterShrinksNamespace(t *testing.T) {
	home := mapHome()
	include := func(id string) bool { return id != "l2" }

	got := Summaries(home, include, nil)
	require.Len(t, got, 3)
	// With the hallway light hidden there is no collision left, so the
	// kitchen light keeps its plain name.
	assert.Equal(t, "Light", got[2].DisplayName)
}

func TestBuildDeviceMap(t *testing.T) {
	home := mapHome()
	m := Build(home, nil, nil)

	assert.Equal(t, "Main", m.Home)
	assert.Equal(t, "home-1", m.HomeID)
	assert.NotEmpty(t, m.Hint) // two accessories named "Light"

	var zones []string
	for _, z := range m.Zones {
		zones = append(zones, z.Zone)
	}
	assert.Equal(t, []string{"Downstairs", "Upstairs", UnzonedName}, zones)

	require.Len(t, m.Zones[0].Rooms, 2)
	assert.Equal(t, "Kitchen", m.Zones[0].Rooms[0].Room)
	require.Len(t, m.Zones[0].Rooms[0].Devices, 1)
	assert.Equal(t, "Kitchen Light", m.Zones[0].Rooms[0].Devices[0].DisplayName)

	want := Stats{
		Devices:   4,
		Reachable: 3,
		ByType:    map[SemanticType]int{TypeLighting: 3, TypeSensor: 1},
	}
	if diff := cmp.Diff(want, m.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOmitsEmptyRoomsAndZones(t *testing.T) {
	home := mapHome()
	home.Accessories = home.Accessories[:1] // kitchen light only

	m := Build(home, nil, nil)
	require.Len(t, m.Zones, 1)
	assert.Equal(t, "Downstairs", m.Zones[0].Zone)
	require.Len(t, m.Zones[0].Rooms, 1)
	assert.Equal(t, "Kitchen", m.Zones[0].Rooms[0].Room)
	assert.Empty(t, m.Hint)
}

func TestBuildNoZonesCollapsesToHomeZone(t *testing.T) {
	home := mapHome()
	home.Zones = nil

	m := Build(home, nil, nil)
	require.Len(t, m.Zones, 1)
	assert.Equal(t, "Main", m.Zones[0].Zone)
}

func TestBuildRespectsFilter(t *testing.T) {
	home := mapHome()
	include := func(id string) bool { return id == "lamp" }

	m := Build(home, include, nil)
	require.Len(t, m.Zones, 1)
	assert.Equal(t, "Upstairs", m.Zones[0].Zone)
	assert.Equal(t, 1, m.Stats.Devices)
	assert.Empty(t, m.Hint)
}

func TestRoomZonesCoversEmptyRooms(t *testing.T) {
	home := mapHome()
	home.Rooms = append(home.Rooms, &homekit.Room{ID: "study", Name: "Study"})
	home.Zones[0].RoomIDs = append(home.Zones[0].RoomIDs, "study")

	zones := RoomZones(home)
	assert.Equal(t, "Downstairs", zones["kitchen"])
	assert.Equal(t, "Downstairs", zones["study"]) // no accessories in it
	assert.Equal(t, "Upstairs", zones["bedroom"])
	assert.Equal(t, UnzonedName, zones["attic"])
}

func TestSummarySingleAccessory(t *testing.T) {
	home := mapHome()
	s := Summary(home, home.Accessories[0], nil, staticValues(map[string]Values{
		"l1": {"power": "false"},
	}))

	assert.Equal(t, "Kitchen Light", s.DisplayName)
	assert.Equal(t, "Kitchen", s.Room)
	assert.Equal(t, "Downstairs", s.Zone)
	assert.Equal(t, TypeLighting, s.Type)
	assert.Equal(t, "off", s.State)
	assert.Contains(t, s.Aliases, "kitchen light")
}
