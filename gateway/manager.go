// Package gateway owns the gateway's mutable state: the borrowed view of
// the device graph, the characteristic cache, and the filtering policy.
//
// All of it is confined to one run-loop goroutine (the "graph-owner"),
// because the automation subsystem's callbacks and I/O are only valid from
// a single designated context. Everything else talks to the graph-owner by
// submitting tasks and awaiting their results.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"homegate/homekit"
)

// Options tunes the Manager.
type Options struct {
	// WarmInterval is the period of the background cache warm. Zero
	// disables the timer; warms still run on discovery and refresh_cache.
	WarmInterval time.Duration
}

// Manager is the graph manager: it holds the sole connection to the
// automation subsystem and serializes every operation that touches the
// graph, the cache, or the filter config.
type Manager struct {
	sub    homekit.Subsystem
	cache  *Cache
	filter *FilterConfig

	tasks     chan func()
	ready     chan struct{}
	readyOnce sync.Once

	warmInterval time.Duration

	// Everything below is confined to the run loop.
	ctx       context.Context
	homes     []*homekit.Home
	warming   bool
	warmQueue []string
}

// NewManager wires a Manager over the subsystem. Run must be called before
// any command method.
func NewManager(sub homekit.Subsystem, cache *Cache, filter *FilterConfig, opts Options) *Manager {
	return &Manager{
		sub:          sub,
		cache:        cache,
		filter:       filter,
		tasks:        make(chan func(), 256),
		ready:        make(chan struct{}),
		warmInterval: opts.WarmInterval,
	}
}

// Run subscribes to discovery and processes tasks until ctx is cancelled.
// Tasks execute in FIFO order; a cache warm in progress yields to queued
// tasks between accessories so commands are not starved.
func (m *Manager) Run(ctx context.Context) {
	m.ctx = ctx
	m.sub.Discover(func(homes []*homekit.Home) {
		m.enqueue(func() { m.applyDiscovery(homes) })
	})

	var tick <-chan time.Time
	if m.warmInterval > 0 {
		ticker := time.NewTicker(m.warmInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if m.warming {
			// Drain queued tasks first; warm only when idle.
			select {
			case <-ctx.Done():
				return
			case task := <-m.tasks:
				task()
			case <-tick:
				m.scheduleWarm()
			default:
				m.warmStep()
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case task := <-m.tasks:
			task()
		case <-tick:
			m.scheduleWarm()
		}
	}
}

// enqueue hands a task to the run loop from an outside context.
func (m *Manager) enqueue(task func()) {
	if m.ctx == nil {
		m.tasks <- task
		return
	}
	select {
	case m.tasks <- task:
	case <-m.ctx.Done():
	}
}

// call suspends until the gateway is Ready, then runs fn on the graph-owner
// loop and returns its result. This is the bridge every command crosses:
// the caller blocks on a one-shot channel while the loop does the work.
func call[T any](m *Manager, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case <-m.ready:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	select {
	case m.tasks <- func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		// The task may still run; its result lands in the buffered
		// channel and is dropped.
		return zero, ctx.Err()
	}
}

// applyDiscovery replaces the home list, re-arms per-accessory change
// subscriptions, and schedules a warm. The first delivery opens the
// readiness gate; the gate never closes again.
func (m *Manager) applyDiscovery(homes []*homekit.Home) {
	m.homes = homes
	total := 0
	for _, home := range homes {
		for _, acc := range home.Accessories {
			total++
			if err := m.sub.SubscribeChanges(acc.ID, m.onChange); err != nil {
				slog.Warn("change subscription failed", "accessory", acc.Name, "err", err)
			}
		}
	}
	slog.Info("discovery applied", "homes", len(homes), "accessories", total)
	m.scheduleWarm()
	m.readyOnce.Do(func() { close(m.ready) })
}

// onChange is the per-accessory change notification; it patches exactly one
// cache field, without a full warm.
func (m *Manager) onChange(accessoryID, characteristicType string, value any) {
	m.enqueue(func() {
		if !m.filter.Allows(accessoryID) {
			return
		}
		_, acc := m.findAccessoryByID(accessoryID)
		if acc == nil {
			return
		}
		var char *homekit.Characteristic
		for _, c := range acc.Characteristics() {
			if c.Type == characteristicType {
				char = c
				break
			}
		}
		if char == nil || !Interesting(char.Name) {
			return
		}
		m.cache.Patch(accessoryID, char.Name, homekit.FormatValue(char, value))
	})
}

// scheduleWarm starts a cache warm over the filtered, reachable accessory
// set. A warm already in progress makes this a no-op. The filtered-set
// fingerprint is re-checked first; on mismatch the whole cache is
// invalidated before repopulation.
func (m *Manager) scheduleWarm() {
	if m.warming {
		return
	}
	if m.cache.SetFingerprint(Fingerprint(m.filteredIDs())) {
		slog.Info("device set changed, cache invalidated")
	}

	var queue []string
	for _, home := range m.homes {
		for _, acc := range home.Accessories {
			if acc.Reachable && m.filter.Allows(acc.ID) {
				queue = append(queue, acc.ID)
			}
		}
	}
	if len(queue) == 0 {
		return
	}
	m.warming = true
	m.warmQueue = queue
	slog.Debug("cache warm scheduled", "accessories", len(queue))
}

// warmStep reads one accessory's interesting characteristics. The run loop
// calls it only when no tasks are queued, which is the cooperative yield.
func (m *Manager) warmStep() {
	if len(m.warmQueue) == 0 {
		m.warming = false
		return
	}
	id := m.warmQueue[0]
	m.warmQueue = m.warmQueue[1:]
	if len(m.warmQueue) == 0 {
		defer func() { m.warming = false }()
	}

	_, acc := m.findAccessoryByID(id)
	if acc == nil || !acc.Reachable || !m.filter.Allows(id) {
		return
	}
	m.cache.Put(id, m.readInteresting(acc))
}

// readInteresting reads the allow-listed characteristics of one accessory
// from the device and returns their formatted values. Read failures skip
// the field rather than failing the warm.
func (m *Manager) readInteresting(acc *homekit.Accessory) map[string]string {
	values := make(map[string]string)
	for _, c := range acc.Characteristics() {
		if !c.Readable || !Interesting(c.Name) {
			continue
		}
		v, err := m.sub.ReadCharacteristic(m.ctx, acc.ID, c.Type)
		if err != nil {
			slog.Debug("characteristic read failed", "accessory", acc.Name, "characteristic", c.Name, "err", err)
			continue
		}
		values[c.Name] = homekit.FormatValue(c, v)
	}
	return values
}

// refreshIfStale schedules an async warm when any of the given accessories
// has no fresh cache entry. Reads never block on staleness.
func (m *Manager) refreshIfStale(ids []string) {
	for _, id := range ids {
		if !m.cache.Fresh(id) {
			m.scheduleWarm()
			return
		}
	}
}

// filteredIDs returns the ids of all accessories visible through the
// filtering policy, across all homes.
func (m *Manager) filteredIDs() []string {
	var ids []string
	for _, home := range m.homes {
		for _, acc := range home.Accessories {
			if m.filter.Allows(acc.ID) {
				ids = append(ids, acc.ID)
			}
		}
	}
	return ids
}

// scopeHome resolves the home a scoped command operates on. With one home
// it is a no-op; with multiple and no explicit ref, the persisted default
// (by id, then name) wins, then the primary home, then the first. Mixing
// homes in one response would make ids ambiguous.
func (m *Manager) scopeHome(ref string) (*homekit.Home, error) {
	if len(m.homes) == 0 {
		return nil, Errorf(CodeNotFound, "no homes available")
	}
	if ref != "" {
		if home := m.findHome(ref); home != nil {
			return home, nil
		}
		return nil, Errorf(CodeNotFound, "Home not found: %s", ref)
	}
	if len(m.homes) == 1 {
		return m.homes[0], nil
	}
	if def := m.filter.DefaultHome(); def != "" {
		if home := m.findHome(def); home != nil {
			return home, nil
		}
	}
	for _, home := range m.homes {
		if home.Primary {
			return home, nil
		}
	}
	return m.homes[0], nil
}

// findHome resolves a home by id, then by case-insensitive name.
func (m *Manager) findHome(ref string) *homekit.Home {
	for _, home := range m.homes {
		if home.ID == ref {
			return home
		}
	}
	for _, home := range m.homes {
		if strings.EqualFold(home.Name, ref) {
			return home
		}
	}
	return nil
}

// findAccessoryByID searches all homes, ignoring the filter.
func (m *Manager) findAccessoryByID(id string) (*homekit.Home, *homekit.Accessory) {
	for _, home := range m.homes {
		if acc := home.AccessoryByID(id); acc != nil {
			return home, acc
		}
	}
	return nil, nil
}
