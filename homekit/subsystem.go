package homekit

import "context"

// DiscoveryFunc receives the full Home list. It is called once after the
// subsystem finishes its initial discovery and again whenever the device
// graph changes.
type DiscoveryFunc func(homes []*Home)

// ChangeFunc receives a device-set characteristic change for a subscribed
// accessory. The value carries the new raw value in the characteristic's
// declared format.
type ChangeFunc func(accessoryID string, characteristicType string, value any)

// Subsystem is the interface to the home-automation subsystem. Only one
// privileged process may hold this connection, which is why the gateway
// exists at all.
//
// Callbacks are delivered from the subsystem's own context; implementations
// make no ordering guarantee between a callback and a concurrent read. The
// gateway funnels everything through its single graph-owner loop.
type Subsystem interface {
	// Discover registers fn to receive the full Home list. fn is invoked
	// when initial discovery completes and again on every graph change.
	Discover(fn DiscoveryFunc)

	// SubscribeChanges arms change notifications for one accessory. It must
	// be re-called after every discovery delivery; the subsystem may have
	// replaced the underlying accessory objects.
	SubscribeChanges(accessoryID string, fn ChangeFunc) error

	// ReadCharacteristic reads the current value of one characteristic from
	// the device. Slow: this round-trips to the device over the air.
	ReadCharacteristic(ctx context.Context, accessoryID, characteristicType string) (any, error)

	// WriteCharacteristic writes a value to one characteristic.
	WriteCharacteristic(ctx context.Context, accessoryID, characteristicType string, value any) error

	// ExecuteScene runs a scene by id.
	ExecuteScene(ctx context.Context, sceneID string) error
}
