// Package protocol defines the wire protocol between the gateway and its
// clients: newline-delimited JSON, one request per connection. A request is
// {"command": <string>, "args": <object?>}; a response is either
// {"success": true, "data": <any>} or {"success": false, "error": <string>}.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"homegate/directory"
)

// Command names accepted by the gateway.
const (
	CommandStatus             = "status"
	CommandListHomes          = "list_homes"
	CommandListRooms          = "list_rooms"
	CommandListAccessories    = "list_accessories"
	CommandGetAccessory       = "get_accessory"
	CommandControl            = "control"
	CommandListScenes         = "list_scenes"
	CommandTriggerScene       = "trigger_scene"
	CommandSearch             = "search"
	CommandDeviceMap          = "device_map"
	CommandGetConfig          = "get_config"
	CommandSetConfig          = "set_config"
	CommandRefreshCache       = "refresh_cache"
	CommandListAllAccessories = "list_all_accessories"
)

// Request is one client command.
type Request struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response is the reply to one Request. Exactly one of Data and Error is
// populated; there is no partial-success shape.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OK builds a success response carrying data.
func OK(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail(fmt.Sprintf("encoding response: %v", err))
	}
	return Response{Success: true, Data: raw}
}

// Fail builds an error response.
func Fail(message string) Response {
	return Response{Success: false, Error: message}
}

// HomeArgs scopes a command to one home. Empty means the default home.
type HomeArgs struct {
	HomeID string `json:"home_id,omitempty"`
}

// ListAccessoriesArgs narrows list_accessories.
type ListAccessoriesArgs struct {
	HomeID string `json:"home_id,omitempty"`
	Room   string `json:"room,omitempty"`
}

// GetAccessoryArgs identifies one accessory.
type GetAccessoryArgs struct {
	ID string `json:"id"`
}

// ControlArgs is a characteristic write. Value is the canonical string form;
// enums accept symbolic names or raw ordinals.
type ControlArgs struct {
	ID             string `json:"id"`
	Characteristic string `json:"characteristic"`
	Value          string `json:"value"`
}

// TriggerSceneArgs identifies a scene by id or case-insensitive name.
type TriggerSceneArgs struct {
	ID string `json:"id"`
}

// SearchArgs is a free-text device search, optionally narrowed by semantic
// type and home.
type SearchArgs struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	HomeID   string `json:"home_id,omitempty"`
}

// SetConfigArgs mutates the persisted gateway configuration. Nil fields are
// left unchanged.
type SetConfigArgs struct {
	DefaultHomeID       *string   `json:"default_home_id,omitempty"`
	AccessoryFilterMode *string   `json:"accessory_filter_mode,omitempty"`
	AllowedAccessoryIDs *[]string `json:"allowed_accessory_ids,omitempty"`
}

// HomeInfo is one home in list_homes output.
type HomeInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Primary     bool   `json:"primary"`
	Rooms       int    `json:"rooms"`
	Accessories int    `json:"accessories"`
	Scenes      int    `json:"scenes"`
}

// RoomInfo is one room in list_rooms output.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Zone        string `json:"zone,omitempty"`
	Accessories int    `json:"accessories"`
}

// SceneInfo is one scene in list_scenes / trigger_scene output.
type SceneInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Actions int    `json:"actions"`
}

// CharacteristicInfo is one characteristic in get_accessory output. Value is
// the canonical string form, served from cache when available.
type CharacteristicInfo struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Format   string   `json:"format"`
	Value    string   `json:"value,omitempty"`
	Readable bool     `json:"readable"`
	Writable bool     `json:"writable"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     *float64 `json:"step,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Choices  []string `json:"choices,omitempty"`
}

// AccessoryDetail is the full get_accessory / control response.
type AccessoryDetail struct {
	directory.DeviceSummary
	Manufacturer    string               `json:"manufacturer,omitempty"`
	Model           string               `json:"model,omitempty"`
	Bridged         bool                 `json:"bridged,omitempty"`
	Home            string               `json:"home"`
	Characteristics []CharacteristicInfo `json:"characteristics"`
}

// AccessoryRef is one entry in list_all_accessories output: enough to
// identify a device for the allow-list, nothing more.
type AccessoryRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Home      string `json:"home"`
	Room      string `json:"room,omitempty"`
	Category  string `json:"category"`
	Reachable bool   `json:"reachable"`
}

// ConfigInfo is the get_config / set_config response.
type ConfigInfo struct {
	DefaultHomeID       string   `json:"default_home_id,omitempty"`
	AccessoryFilterMode string   `json:"accessory_filter_mode"`
	AllowedAccessoryIDs []string `json:"allowed_accessory_ids,omitempty"`
}

// CacheStatus summarizes the characteristic cache.
type CacheStatus struct {
	Entries     int        `json:"entries"`
	Fresh       int        `json:"fresh"`
	LastWarm    *time.Time `json:"last_warm,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Warming     bool       `json:"warming"`
}

// StatusInfo is the status response.
type StatusInfo struct {
	Ready       bool        `json:"ready"`
	Homes       int         `json:"homes"`
	Accessories int         `json:"accessories"`
	Visible     int         `json:"visible"`
	Cache       CacheStatus `json:"cache"`
}
