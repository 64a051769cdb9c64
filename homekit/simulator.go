package homekit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Simulator is an in-process Subsystem backed by a fixture instead of real
// hardware. It is the development driver (main can run against it) and the
// test double for everything above the Subsystem boundary.
type Simulator struct {
	mu         sync.Mutex
	homes      []*Home
	discoverFn DiscoveryFunc
	subs       map[string]ChangeFunc
	latency    time.Duration
	writeErrs  map[string]error
}

// NewSimulator creates a simulator over the given homes.
func NewSimulator(homes []*Home) *Simulator {
	return &Simulator{
		homes:     homes,
		subs:      make(map[string]ChangeFunc),
		writeErrs: make(map[string]error),
	}
}

// LoadFixture reads a homes fixture (a JSON array of homes) from disk.
func LoadFixture(path string) ([]*Home, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var homes []*Home
	if err := json.Unmarshal(data, &homes); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return homes, nil
}

// SetLatency adds a per-operation delay to reads and writes, approximating
// slow wireless devices.
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Discover registers the discovery callback and delivers the current Home
// list from a separate goroutine, as the real subsystem does.
func (s *Simulator) Discover(fn DiscoveryFunc) {
	s.mu.Lock()
	s.discoverFn = fn
	homes := s.homes
	s.mu.Unlock()
	go fn(homes)
}

// DeliverDiscovery re-fires the discovery callback, simulating a device
// graph change.
func (s *Simulator) DeliverDiscovery() {
	s.mu.Lock()
	fn := s.discoverFn
	homes := s.homes
	s.mu.Unlock()
	if fn != nil {
		go fn(homes)
	}
}

// SubscribeChanges arms change notifications for one accessory.
func (s *Simulator) SubscribeChanges(accessoryID string, fn ChangeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findAccessory(accessoryID) == nil {
		return fmt.Errorf("no such accessory: %s", accessoryID)
	}
	s.subs[accessoryID] = fn
	return nil
}

// ReadCharacteristic returns the current value of one characteristic.
func (s *Simulator) ReadCharacteristic(ctx context.Context, accessoryID, characteristicType string) (any, error) {
	s.mu.Lock()
	latency := s.latency
	acc := s.findAccessory(accessoryID)
	s.mu.Unlock()

	if err := s.wait(ctx, latency); err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("no such accessory: %s", accessoryID)
	}
	if !acc.Reachable {
		return nil, fmt.Errorf("accessory %s is not reachable", accessoryID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCharacteristic(acc, characteristicType)
	if c == nil {
		return nil, fmt.Errorf("accessory %s has no characteristic %s", accessoryID, characteristicType)
	}
	return c.Value, nil
}

// WriteCharacteristic sets the value of one characteristic and notifies the
// accessory's change subscriber, mirroring how a real device echoes state.
func (s *Simulator) WriteCharacteristic(ctx context.Context, accessoryID, characteristicType string, value any) error {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()
	if err := s.wait(ctx, latency); err != nil {
		return err
	}

	s.mu.Lock()
	if err, ok := s.writeErrs[accessoryID]; ok {
		s.mu.Unlock()
		return err
	}
	acc := s.findAccessory(accessoryID)
	if acc == nil {
		s.mu.Unlock()
		return fmt.Errorf("no such accessory: %s", accessoryID)
	}
	if !acc.Reachable {
		s.mu.Unlock()
		return fmt.Errorf("accessory %s is not reachable", accessoryID)
	}
	c := s.findCharacteristic(acc, characteristicType)
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("accessory %s has no characteristic %s", accessoryID, characteristicType)
	}
	c.Value = value
	fn := s.subs[accessoryID]
	s.mu.Unlock()

	if fn != nil {
		go fn(accessoryID, characteristicType, value)
	}
	return nil
}

// ExecuteScene applies all actions of a scene.
func (s *Simulator) ExecuteScene(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	var scene *Scene
	for _, h := range s.homes {
		for _, sc := range h.Scenes {
			if sc.ID == sceneID {
				scene = sc
			}
		}
	}
	s.mu.Unlock()
	if scene == nil {
		return fmt.Errorf("no such scene: %s", sceneID)
	}
	for _, action := range scene.Actions {
		if err := s.WriteCharacteristic(ctx, action.AccessoryID, action.CharacteristicType, action.Value); err != nil {
			return fmt.Errorf("scene %s: %w", scene.Name, err)
		}
	}
	return nil
}

// SetReachable flips an accessory's reachability, for tests and demos.
func (s *Simulator) SetReachable(accessoryID string, reachable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc := s.findAccessory(accessoryID); acc != nil {
		acc.Reachable = reachable
	}
}

// FailWrites makes every write to the accessory fail with err. Pass nil to
// clear.
func (s *Simulator) FailWrites(accessoryID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErrs, accessoryID)
		return
	}
	s.writeErrs[accessoryID] = err
}

// PushChange updates a value device-side and fires the change notification,
// as if the device reported it spontaneously.
func (s *Simulator) PushChange(accessoryID, characteristicType string, value any) {
	s.mu.Lock()
	acc := s.findAccessory(accessoryID)
	if acc != nil {
		if c := s.findCharacteristic(acc, characteristicType); c != nil {
			c.Value = value
		}
	}
	fn := s.subs[accessoryID]
	s.mu.Unlock()
	if fn != nil {
		fn(accessoryID, characteristicType, value)
	}
}

func (s *Simulator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callers hold s.mu
func (s *Simulator) findAccessory(id string) *Accessory {
	for _, h := range s.homes {
		if acc := h.AccessoryByID(id); acc != nil {
			return acc
		}
	}
	return nil
}

// callers hold s.mu
func (s *Simulator) findCharacteristic(acc *Accessory, characteristicType string) *Characteristic {
	for _, c := range acc.Characteristics() {
		if c.Type == characteristicType {
			return c
		}
	}
	return nil
}
