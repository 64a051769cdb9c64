package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homegate/directory"
	"homegate/homekit"
	"homegate/protocol"
)

func boolChar(charType, name string, writable bool, value any) homekit.Characteristic {
	return homekit.Characteristic{
		Type: charType, Name: name, Format: homekit.FormatBool,
		Value: value, Readable: true, Writable: writable,
	}
}

func testHomes() []*homekit.Home {
	min, max := 0.0, 100.0
	tempMin, tempMax := 10.0, 38.0
	return []*homekit.Home{
		{
			ID:      "home-main",
			Name:    "Main",
			Primary: true,
			Rooms: []*homekit.Room{
				{ID: "kitchen", Name: "Kitchen"},
				{ID: "hallway", Name: "Hallway"},
				{ID: "bedroom", Name: "Bedroom"},
			},
			Accessories: []*homekit.Accessory{
				{
					ID: "light-kitchen", Name: "Light", RoomID: "kitchen",
					Category: homekit.CategoryLightbulb, Reachable: true,
					Services: []homekit.Service{{
						Type: homekit.ServiceLightbulb,
						Characteristics: []homekit.Characteristic{
							boolChar(homekit.TypePower, "power", true, false),
							{Type: homekit.TypeBrightness, Name: "brightness", Format: homekit.FormatInt,
								Value: 50, Readable: true, Writable: true, Min: &min, Max: &max},
						},
					}},
				},
				{
					ID: "light-hallway", Name: "Light", RoomID: "hallway",
					Category: homekit.CategoryLightbulb, Reachable: true,
					Services: []homekit.Service{{
						Type: homekit.ServiceLightbulb,
						Characteristics: []homekit.Characteristic{
							boolChar(homekit.TypePower, "power", true, false),
						},
					}},
				},
				{
					ID: "lamp-bedroom", Name: "Lamp", RoomID: "bedroom",
					Category: homekit.CategoryLightbulb, Reachable: true, Manufacturer: "Signify",
					Services: []homekit.Service{{
						Type: homekit.ServiceLightbulb,
						Characteristics: []homekit.Characteristic{
							boolChar(homekit.TypePower, "power", true, false),
						},
					}},
				},
				{
					ID: "lock-front", Name: "Front Door", RoomID: "hallway",
					Category: homekit.CategoryDoorLock, Reachable: true,
					Services: []homekit.Service{{
						Type: homekit.ServiceLockMechanism,
						Characteristics: []homekit.Characteristic{
							{Type: homekit.TypeLockState, Name: "lock_state", Format: homekit.FormatInt,
								Value: 1, Readable: true, Writable: false,
								Enum: map[int]string{0: "unlocked", 1: "locked"}},
							{Type: homekit.TypeTargetLockState, Name: "target_lock_state", Format: homekit.FormatInt,
								Value: 1, Readable: true, Writable: true,
								Enum: map[int]string{0: "unlocked", 1: "locked"}},
						},
					}},
				},
				{
					ID: "thermo-kitchen", Name: "Thermostat", RoomID: "kitchen",
					Category: homekit.CategoryThermostat, Reachable: true,
					Services: []homekit.Service{{
						Type: homekit.ServiceThermostat,
						Characteristics: []homekit.Characteristic{
							{Type: homekit.TypeCurrentTemperature, Name: "current_temperature", Format: homekit.FormatFloat,
								Value: 21.5, Readable: true, Writable: false},
							{Type: homekit.TypeTargetTemperature, Name: "target_temperature", Format: homekit.FormatFloat,
								Value: 22.0, Readable: true, Writable: true, Min: &tempMin, Max: &tempMax},
						},
					}},
				},
				{
					ID: "heater-patio", Name: "Patio Heater", RoomID: "hallway",
					Category: homekit.CategoryHeater, Reachable: false,
					Services: []homekit.Service{{
						Type: homekit.ServiceHeaterCooler,
						Characteristics: []homekit.Characteristic{
							boolChar(homekit.TypeActive, "active", true, false),
						},
					}},
				},
			},
			Scenes: []*homekit.Scene{
				{
					ID: "scene-night", Name: "Good Night", Kind: homekit.SceneSleep,
					Actions: []homekit.SceneAction{
						{AccessoryID: "light-kitchen", CharacteristicType: homekit.TypePower, Value: false},
						{AccessoryID: "light-hallway", CharacteristicType: homekit.TypePower, Value: false},
					},
				},
			},
		},
		{
			ID:    "home-cabin",
			Name:  "Cabin",
			Rooms: []*homekit.Room{{ID: "cabin-room", Name: "Main Room"}},
			Accessories: []*homekit.Accessory{
				{
					ID: "cabin-light", Name: "Cabin Light", RoomID: "cabin-room",
					Category: homekit.CategoryLightbulb, Reachable: true,
					Services: []homekit.Service{{
						Type: homekit.ServiceLightbulb,
						Characteristics: []homekit.Characteristic{
							boolChar(homekit.TypePower, "power", true, false),
						},
					}},
				},
			},
		},
	}
}

// newTestGateway starts a Manager over a simulator and blocks until the
// readiness gate opens.
func newTestGateway(t *testing.T, homes []*homekit.Home) (*Manager, *homekit.Simulator) {
	t.Helper()
	sim := homekit.NewSimulator(homes)
	cache := NewCache("", 0)
	filter, err := LoadFilterConfig("")
	require.NoError(t, err)

	mgr := NewManager(sim, cache, filter, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go mgr.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_, err = mgr.Status(waitCtx)
	require.NoError(t, err, "gateway never became ready")
	return mgr, sim
}

func setAllowlist(t *testing.T, mgr *Manager, ids []string) {
	t.Helper()
	mode := string(FilterModeAllowlist)
	_, err := mgr.SetConfig(context.Background(), protocol.SetConfigArgs{
		AccessoryFilterMode: &mode,
		AllowedAccessoryIDs: &ids,
	})
	require.NoError(t, err)
}

func TestStatusCountsAndReadiness(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	status, err := mgr.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Homes)
	assert.Equal(t, 7, status.Accessories)
	assert.Equal(t, 7, status.Visible)
	assert.NotEmpty(t, status.Cache.Fingerprint)
}

func TestWarmPopulatesCache(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	// Six reachable accessories; the patio heater is skipped.
	require.Eventually(t, func() bool {
		status, err := mgr.Status(context.Background())
		return err == nil && status.Cache.Entries == 6 && !status.Cache.Warming
	}, 5*time.Second, 10*time.Millisecond)
}

func TestListHomes(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	homes, err := mgr.ListHomes(context.Background())
	require.NoError(t, err)
	require.Len(t, homes, 2)
	assert.Equal(t, "Main", homes[0].Name)
	assert.True(t, homes[0].Primary)
	assert.Equal(t, 6, homes[0].Accessories)
	assert.Equal(t, 1, homes[0].Scenes)

	// Homes are always listed; only their visible-accessory counts filter.
	setAllowlist(t, mgr, []string{"cabin-light"})
	homes, err = mgr.ListHomes(context.Background())
	require.NoError(t, err)
	require.Len(t, homes, 2)
	assert.Equal(t, 0, homes[0].Accessories)
	assert.Equal(t, 1, homes[1].Accessories)
}

func TestListAccessoriesScopesToPrimaryHome(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	list, err := mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{})
	require.NoError(t, err)
	require.Len(t, list, 6)
	for _, s := range list {
		assert.NotEqual(t, "cabin-light", s.ID)
	}
}

func TestListAccessoriesDefaultHome(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	def := "Cabin"
	_, err := mgr.SetConfig(context.Background(), protocol.SetConfigArgs{DefaultHomeID: &def})
	require.NoError(t, err)

	list, err := mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cabin-light", list[0].ID)

	// An explicit home still overrides the default.
	list, err = mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{HomeID: "Main"})
	require.NoError(t, err)
	assert.Len(t, list, 6)
}

func TestListAccessoriesUnknownHome(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	_, err := mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{HomeID: "Treehouse"})
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.EqualError(t, err, "Home not found: Treehouse")
}

func TestListAccessoriesRoomFilter(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	list, err := mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{Room: "kitchen"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, "Kitchen", s.Room)
	}
}

func TestListRoomsResolvesZonesForEmptyRooms(t *testing.T) {
	homes := []*homekit.Home{{
		ID:      "home-z",
		Name:    "Main",
		Primary: true,
		Rooms: []*homekit.Room{
			{ID: "kitchen", Name: "Kitchen"},
			{ID: "study", Name: "Study"},
			{ID: "attic", Name: "Attic"},
		},
		Zones: []*homekit.Zone{
			{Name: "Downstairs", RoomIDs: []string{"kitchen", "study"}},
		},
		Accessories: []*homekit.Accessory{
			{
				ID: "light-kitchen", Name: "Light", RoomID: "kitchen",
				Category: homekit.CategoryLightbulb, Reachable: true,
				Services: []homekit.Service{{
					Type: homekit.ServiceLightbulb,
					Characteristics: []homekit.Characteristic{
						boolChar(homekit.TypePower, "power", true, false),
					},
				}},
			},
		},
	}}
	mgr, _ := newTestGateway(t, homes)

	rooms, err := mgr.ListRooms(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rooms, 3)

	byName := make(map[string]protocol.RoomInfo)
	for _, r := range rooms {
		byName[r.Name] = r
	}
	assert.Equal(t, "Downstairs", byName["Kitchen"].Zone)
	assert.Equal(t, 1, byName["Kitchen"].Accessories)
	// A room with no accessories still belongs to its declared zone.
	assert.Equal(t, "Downstairs", byName["Study"].Zone)
	assert.Zero(t, byName["Study"].Accessories)
	assert.Equal(t, directory.UnzonedName, byName["Attic"].Zone)

	// Filtering every device out of a room must not strip its zone either.
	setAllowlist(t, mgr, []string{})
	rooms, err = mgr.ListRooms(context.Background(), "")
	require.NoError(t, err)
	for _, r := range rooms {
		if r.Name == "Kitchen" {
			assert.Equal(t, "Downstairs", r.Zone)
			assert.Zero(t, r.Accessories)
		}
	}
}

func TestDisplayNameDisambiguation(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	list, err := mgr.ListAccessories(context.Background(), protocol.ListAccessoriesArgs{})
	require.NoError(t, err)

	names := make(map[string]string)
	for _, s := range list {
		names[s.ID] = s.DisplayName
	}
	assert.Equal(t, "Kitchen Light", names["light-kitchen"])
	assert.Equal(t, "Hallway Light", names["light-hallway"])
	assert.Equal(t, "Lamp", names["lamp-bedroom"])
}

func TestFilteringHidesAccessoriesEverywhere(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	setAllowlist(t, mgr, []string{"lamp-bedroom"})
	ctx := context.Background()

	list, err := mgr.ListAccessories(ctx, protocol.ListAccessoriesArgs{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "lamp-bedroom", list[0].ID)

	matches, err := mgr.Search(ctx, protocol.SearchArgs{Query: "light"})
	require.NoError(t, err)
	for _, s := range matches {
		assert.Equal(t, "lamp-bedroom", s.ID)
	}

	deviceMap, err := mgr.DeviceMap(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, deviceMap.Stats.Devices)
}

func TestHiddenAndAbsentAccessoriesFailIdentically(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	setAllowlist(t, mgr, []string{"lamp-bedroom"})
	ctx := context.Background()

	_, hiddenErr := mgr.GetAccessory(ctx, "light-kitchen")
	_, absentErr := mgr.GetAccessory(ctx, "no-such-id")
	require.Error(t, hiddenErr)
	require.Error(t, absentErr)
	assert.Equal(t, CodeNotFound, CodeOf(hiddenErr))
	assert.Equal(t, CodeNotFound, CodeOf(absentErr))
	assert.EqualError(t, hiddenErr, "Accessory not found: light-kitchen")
	assert.EqualError(t, absentErr, "Accessory not found: no-such-id")

	_, hiddenErr = mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "power", Value: "on"})
	assert.EqualError(t, hiddenErr, "Accessory not found: light-kitchen")
}

func TestListAllAccessoriesIgnoresFilter(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	setAllowlist(t, mgr, []string{"lamp-bedroom"})

	refs, err := mgr.ListAllAccessories(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 7)
}

func TestControlRoundTrip(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	ctx := context.Background()

	detail, err := mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "power", Value: "on"})
	require.NoError(t, err)

	var power string
	for _, c := range detail.Characteristics {
		if c.Name == "power" {
			power = c.Value
		}
	}
	assert.Equal(t, "true", power)
	assert.Equal(t, "on 50%", detail.State)

	// The write landed on the device, not just in the response.
	got, err := mgr.GetAccessory(ctx, "light-kitchen")
	require.NoError(t, err)
	for _, c := range got.Characteristics {
		if c.Name == "power" {
			assert.Equal(t, "true", c.Value)
		}
	}
}

func TestControlByName(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	detail, err := mgr.Control(context.Background(), protocol.ControlArgs{ID: "lamp", Characteristic: "power", Value: "true"})
	require.NoError(t, err)
	assert.Equal(t, "lamp-bedroom", detail.ID)
}

func TestControlEnumValue(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	detail, err := mgr.Control(context.Background(), protocol.ControlArgs{
		ID: "lock-front", Characteristic: "target_lock_state", Value: "unlocked",
	})
	require.NoError(t, err)
	for _, c := range detail.Characteristics {
		if c.Name == "target_lock_state" {
			assert.Equal(t, "unlocked", c.Value)
			assert.Equal(t, []string{"unlocked", "locked"}, c.Choices)
		}
	}
}

func TestEnumChoicesSparseOrdinals(t *testing.T) {
	c := &homekit.Characteristic{
		Name:   "speed_preset",
		Format: homekit.FormatInt,
		Enum:   map[int]string{0: "off", 50: "half", 100: "max"},
	}
	assert.Equal(t, []string{"off", "half", "max"}, enumChoices(c))

	assert.Nil(t, enumChoices(&homekit.Characteristic{Name: "power", Format: homekit.FormatBool}))
}

func TestControlErrors(t *testing.T) {
	mgr, sim := newTestGateway(t, testHomes())
	ctx := context.Background()

	_, err := mgr.Control(ctx, protocol.ControlArgs{ID: "no-such-id", Characteristic: "power", Value: "on"})
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.EqualError(t, err, "Accessory not found: no-such-id")

	_, err = mgr.Control(ctx, protocol.ControlArgs{ID: "heater-patio", Characteristic: "active", Value: "on"})
	assert.Equal(t, CodeUnreachable, CodeOf(err))
	assert.EqualError(t, err, "Accessory unreachable: Patio Heater")

	_, err = mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "volume", Value: "10"})
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.EqualError(t, err, "Characteristic not found: volume on Light")

	_, err = mgr.Control(ctx, protocol.ControlArgs{ID: "thermo-kitchen", Characteristic: "current_temperature", Value: "25"})
	assert.Equal(t, CodeNotWritable, CodeOf(err))
	assert.EqualError(t, err, "Characteristic not writable: current_temperature")

	_, err = mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "brightness", Value: "150"})
	assert.Equal(t, CodeInvalidValue, CodeOf(err))

	sim.FailWrites("light-kitchen", context.DeadlineExceeded)
	_, err = mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "power", Value: "on"})
	assert.Equal(t, CodeWriteFailed, CodeOf(err))
}

func TestSearchAliases(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	ctx := context.Background()

	for _, query := range []string{"bedroom lamp", "lamp in bedroom", "bedroom light", "bedroom lights"} {
		matches, err := mgr.Search(ctx, protocol.SearchArgs{Query: query})
		require.NoError(t, err, "query %q", query)
		found := false
		for _, s := range matches {
			if s.ID == "lamp-bedroom" {
				found = true
			}
		}
		assert.True(t, found, "query %q should match the bedroom lamp", query)
	}
}

func TestSearchCategory(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	ctx := context.Background()

	matches, err := mgr.Search(ctx, protocol.SearchArgs{Category: "lighting"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = mgr.Search(ctx, protocol.SearchArgs{Query: "front", Category: "door_lock"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "lock-front", matches[0].ID)

	_, err = mgr.Search(ctx, protocol.SearchArgs{Category: "gadgets"})
	assert.Equal(t, CodeInvalidValue, CodeOf(err))
	assert.EqualError(t, err, "Unknown category: gadgets")
}

func TestDeviceMapStructure(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	m, err := mgr.DeviceMap(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Main", m.Home)
	require.Len(t, m.Zones, 1) // no zones declared; implicit home zone
	assert.Equal(t, "Main", m.Zones[0].Zone)
	assert.Len(t, m.Zones[0].Rooms, 3)
	assert.Equal(t, 6, m.Stats.Devices)
	assert.Equal(t, 5, m.Stats.Reachable)
	assert.NotEmpty(t, m.Hint)
}

func TestTriggerScene(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	ctx := context.Background()

	_, err := mgr.Control(ctx, protocol.ControlArgs{ID: "light-kitchen", Characteristic: "power", Value: "on"})
	require.NoError(t, err)

	info, err := mgr.TriggerScene(ctx, "Good Night")
	require.NoError(t, err)
	assert.Equal(t, "scene-night", info.ID)
	assert.Equal(t, "sleep", info.Kind)

	got, err := mgr.GetAccessory(ctx, "light-kitchen")
	require.NoError(t, err)
	for _, c := range got.Characteristics {
		if c.Name == "power" {
			assert.Equal(t, "false", c.Value)
		}
	}

	_, err = mgr.TriggerScene(ctx, "Disco Time")
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.EqualError(t, err, "Scene not found: Disco Time")
}

func TestTriggerSceneByID(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	info, err := mgr.TriggerScene(context.Background(), "scene-night")
	require.NoError(t, err)
	assert.Equal(t, "Good Night", info.Name)
}

func TestListScenes(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	scenes, err := mgr.ListScenes(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Good Night", scenes[0].Name)
	assert.Equal(t, 2, scenes[0].Actions)
}

func TestSetConfigValidation(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	bad := "blocklist"
	_, err := mgr.SetConfig(context.Background(), protocol.SetConfigArgs{AccessoryFilterMode: &bad})
	assert.Equal(t, CodeInvalidValue, CodeOf(err))

	cfg, err := mgr.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.AccessoryFilterMode)
}

func TestFilterChangeInvalidatesCache(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())
	ctx := context.Background()

	require.Eventually(t, func() bool {
		status, err := mgr.Status(ctx)
		return err == nil && status.Cache.Entries > 0
	}, 5*time.Second, 10*time.Millisecond)

	before, err := mgr.Status(ctx)
	require.NoError(t, err)

	// Shrinking the visible set changes the fingerprint, so every cached
	// entry is dropped before the next warm.
	setAllowlist(t, mgr, []string{"heater-patio"}) // unreachable, so no re-warm
	after, err := mgr.Status(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.Cache.Fingerprint, after.Cache.Fingerprint)
	assert.Zero(t, after.Cache.Entries)
}

func TestChangeNotificationPatchesCache(t *testing.T) {
	mgr, sim := newTestGateway(t, testHomes())
	ctx := context.Background()

	sim.PushChange("light-kitchen", homekit.TypePower, true)

	require.Eventually(t, func() bool {
		got, err := mgr.GetAccessory(ctx, "light-kitchen")
		if err != nil {
			return false
		}
		for _, c := range got.Characteristics {
			if c.Name == "power" {
				return c.Value == "true"
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRefreshCache(t *testing.T) {
	mgr, _ := newTestGateway(t, testHomes())

	status, err := mgr.RefreshCache(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, status.Fingerprint)

	require.Eventually(t, func() bool {
		s, err := mgr.Status(context.Background())
		return err == nil && s.Cache.Entries == 6
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCallHonorsContext(t *testing.T) {
	sim := homekit.NewSimulator(testHomes())
	cache := NewCache("", 0)
	filter, err := LoadFilterConfig("")
	require.NoError(t, err)
	mgr := NewManager(sim, cache, filter, Options{})
	// Run is never started: the readiness gate stays shut.

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = mgr.Status(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
