package homekit

import "strings"

// Category is the vendor-assigned device category of an accessory. It is a
// hint, not a guarantee: bridged accessories frequently report a generic
// category, so consumers fall back to inspecting services.
type Category string

const (
	CategoryLightbulb        Category = "lightbulb"
	CategorySwitch           Category = "switch"
	CategoryOutlet           Category = "outlet"
	CategoryFan              Category = "fan"
	CategoryThermostat       Category = "thermostat"
	CategoryAirConditioner   Category = "air_conditioner"
	CategoryHeater           Category = "heater"
	CategoryAirPurifier      Category = "air_purifier"
	CategorySensor           Category = "sensor"
	CategorySecuritySystem   Category = "security_system"
	CategoryDoorLock         Category = "door_lock"
	CategoryDoor             Category = "door"
	CategoryWindow           Category = "window"
	CategoryWindowCovering   Category = "window_covering"
	CategoryGarageDoorOpener Category = "garage_door_opener"
	CategoryTelevision       Category = "television"
	CategorySpeaker          Category = "speaker"
	CategoryRouter           Category = "router"
	CategoryBridge           Category = "bridge"
	CategoryRangeExtender    Category = "range_extender"
	CategoryOther            Category = "other"
)

// Service type identifiers, as reported by the automation subsystem.
const (
	ServiceLightbulb      = "lightbulb"
	ServiceSwitch         = "switch"
	ServiceOutlet         = "outlet"
	ServiceFan            = "fan"
	ServiceThermostat     = "thermostat"
	ServiceHeaterCooler   = "heater_cooler"
	ServiceSecuritySystem = "security_system"
	ServiceLockMechanism  = "lock_mechanism"
	ServiceDoor           = "door"
	ServiceGarageDoor     = "garage_door"
	ServiceWindowCovering = "window_covering"
	ServiceTelevision     = "television"
	ServiceSpeaker        = "speaker"
	ServiceWiFiRouter     = "wifi_router"
	ServiceMotionSensor   = "motion_sensor"
	ServiceContactSensor  = "contact_sensor"
	ServiceTempSensor     = "temperature_sensor"
	ServiceHumiditySensor = "humidity_sensor"
	ServiceBattery        = "battery"
	ServiceAccessoryInfo  = "accessory_information"
)

// Characteristic type identifiers (short form, as the subsystem reports them).
const (
	TypePower              = "25"
	TypeBrightness         = "8"
	TypeHue                = "13"
	TypeSaturation         = "2F"
	TypeColorTemperature   = "CE"
	TypeCurrentTemperature = "11"
	TypeTargetTemperature  = "35"
	TypeMode               = "33"
	TypeLockState          = "1D"
	TypeTargetLockState    = "1E"
	TypeDoorState          = "E"
	TypePosition           = "6D"
	TypeTargetPosition     = "7C"
	TypeActive             = "B0"
	TypeRotationSpeed      = "29"
	TypeVolume             = "119"
	TypeMotion             = "22"
	TypeContact            = "6A"
	TypeHumidity           = "10"
	TypeBatteryLevel       = "68"
)

// ValueFormat is the declared value format of a characteristic.
type ValueFormat string

const (
	FormatBool   ValueFormat = "bool"
	FormatInt    ValueFormat = "int"
	FormatFloat  ValueFormat = "float"
	FormatString ValueFormat = "string"
)

// Characteristic is one readable or writable attribute of an accessory.
type Characteristic struct {
	Type     string         `json:"type"`           // raw type identifier
	Name     string         `json:"name"`           // human name, e.g. "power"
	Format   ValueFormat    `json:"format"`
	Value    any            `json:"value,omitempty"`
	Readable bool           `json:"readable"`
	Writable bool           `json:"writable"`
	Min      *float64       `json:"min,omitempty"`
	Max      *float64       `json:"max,omitempty"`
	Step     *float64       `json:"step,omitempty"`
	Unit     string         `json:"unit,omitempty"`
	Enum     map[int]string `json:"enum,omitempty"` // ordinal -> symbolic name
}

// Service groups characteristics; services are not separately addressed by
// gateway clients.
type Service struct {
	Type            string           `json:"type"`
	Name            string           `json:"name,omitempty"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Accessory is one smart-home device exposed by the automation subsystem.
type Accessory struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Model        string    `json:"model,omitempty"`
	Reachable    bool      `json:"reachable"`
	Bridged      bool      `json:"bridged,omitempty"`
	Category     Category  `json:"category"`
	RoomID       string    `json:"room_id,omitempty"`
	Services     []Service `json:"services"`
}

// Room belongs to exactly one Home.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Zone groups rooms within a Home.
type Zone struct {
	Name    string   `json:"name"`
	RoomIDs []string `json:"room_ids"`
}

// SceneKind classifies a scene.
type SceneKind string

const (
	SceneWake      SceneKind = "wake"
	SceneSleep     SceneKind = "sleep"
	SceneArrival   SceneKind = "arrival"
	SceneDeparture SceneKind = "departure"
	SceneUser      SceneKind = "user"
)

// SceneAction is one characteristic write inside a scene.
type SceneAction struct {
	AccessoryID        string `json:"accessory_id"`
	CharacteristicType string `json:"characteristic_type"`
	Value              any    `json:"value"`
}

// Scene is a named bundle of characteristic writes executed atomically by
// the subsystem.
type Scene struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Kind    SceneKind     `json:"kind"`
	Actions []SceneAction `json:"actions,omitempty"`
}

// Home is the root of the device graph. It is owned exclusively by the
// automation subsystem; the gateway only observes it.
type Home struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Primary     bool         `json:"primary"`
	Rooms       []*Room      `json:"rooms"`
	Zones       []*Zone      `json:"zones,omitempty"`
	Accessories []*Accessory `json:"accessories"`
	Scenes      []*Scene     `json:"scenes,omitempty"`
}

// RoomByID returns the room with the given id, or nil.
func (h *Home) RoomByID(id string) *Room {
	for _, r := range h.Rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RoomName returns the name of the room with the given id, or "" when the
// accessory has no room assignment.
func (h *Home) RoomName(id string) string {
	if r := h.RoomByID(id); r != nil {
		return r.Name
	}
	return ""
}

// AccessoryByID returns the accessory with the given id, or nil.
func (h *Home) AccessoryByID(id string) *Accessory {
	for _, a := range h.Accessories {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Characteristics returns all characteristics of the accessory across its
// services, excluding the accessory-information service.
func (a *Accessory) Characteristics() []*Characteristic {
	var result []*Characteristic
	for si := range a.Services {
		svc := &a.Services[si]
		if svc.Type == ServiceAccessoryInfo {
			continue
		}
		for ci := range svc.Characteristics {
			result = append(result, &svc.Characteristics[ci])
		}
	}
	return result
}

// FindCharacteristic resolves a characteristic by human name
// (case-insensitive) or by raw type identifier. Returns nil when absent.
func (a *Accessory) FindCharacteristic(nameOrType string) *Characteristic {
	for _, c := range a.Characteristics() {
		if strings.EqualFold(c.Name, nameOrType) || c.Type == nameOrType {
			return c
		}
	}
	return nil
}

// HasService reports whether the accessory exposes a service of the given type.
func (a *Accessory) HasService(serviceType string) bool {
	for _, svc := range a.Services {
		if svc.Type == serviceType {
			return true
		}
	}
	return false
}
