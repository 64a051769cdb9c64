package gateway

import (
	"context"
	"strings"

	"golang.org/x/exp/slices"

	"homegate/directory"
	"homegate/homekit"
	"homegate/protocol"
)

// Control writes one characteristic of one accessory and returns a
// refreshed summary. The accessory resolves by id across homes, then by
// case-insensitive name within the scoped home; filtered-out accessories
// fail exactly like absent ones.
func (m *Manager) Control(ctx context.Context, args protocol.ControlArgs) (protocol.AccessoryDetail, error) {
	return call(m, ctx, func(ctx context.Context) (protocol.AccessoryDetail, error) {
		home, acc, err := m.resolveAccessory(args.ID)
		if err != nil {
			return protocol.AccessoryDetail{}, err
		}
		if !acc.Reachable {
			return protocol.AccessoryDetail{}, Errorf(CodeUnreachable, "Accessory unreachable: %s", acc.Name)
		}
		char := acc.FindCharacteristic(args.Characteristic)
		if char == nil {
			return protocol.AccessoryDetail{}, Errorf(CodeNotFound, "Characteristic not found: %s on %s", args.Characteristic, acc.Name)
		}
		if !char.Writable {
			return protocol.AccessoryDetail{}, Errorf(CodeNotWritable, "Characteristic not writable: %s", char.Name)
		}
		value, err := homekit.ParseValue(char, args.Value)
		if err != nil {
			return protocol.AccessoryDetail{}, Errorf(CodeInvalidValue, "%v", err)
		}

		if err := m.sub.WriteCharacteristic(ctx, acc.ID, char.Type, value); err != nil {
			return protocol.AccessoryDetail{}, Errorf(CodeWriteFailed, "Write failed on %s: %v", acc.Name, err)
		}

		// Re-read the interesting state so the returned summary and the
		// cache reflect the device, not just the request.
		values := m.readInteresting(acc)
		if Interesting(char.Name) {
			if _, ok := values[char.Name]; !ok {
				values[char.Name] = homekit.FormatValue(char, value)
			}
		}
		m.cache.Put(acc.ID, values)
		return m.accessoryDetail(home, acc), nil
	})
}

// resolveAccessory finds an accessory by id across all homes, then by
// case-insensitive name within the scoped home. Hidden and absent
// accessories return the same NotFound.
func (m *Manager) resolveAccessory(idOrName string) (*homekit.Home, *homekit.Accessory, error) {
	if home, acc := m.findAccessoryByID(idOrName); acc != nil {
		if !m.filter.Allows(acc.ID) {
			return nil, nil, Errorf(CodeNotFound, "Accessory not found: %s", idOrName)
		}
		return home, acc, nil
	}
	home, err := m.scopeHome("")
	if err != nil {
		return nil, nil, err
	}
	for _, acc := range home.Accessories {
		if strings.EqualFold(acc.Name, idOrName) && m.filter.Allows(acc.ID) {
			return home, acc, nil
		}
	}
	return nil, nil, Errorf(CodeNotFound, "Accessory not found: %s", idOrName)
}

// accessoryDetail assembles the full client view of one accessory.
// Characteristic values come from the cache when present, falling back to
// the last value the graph reported.
func (m *Manager) accessoryDetail(home *homekit.Home, acc *homekit.Accessory) protocol.AccessoryDetail {
	cached := m.cache.Values(acc.ID)
	var chars []protocol.CharacteristicInfo
	for _, c := range acc.Characteristics() {
		info := protocol.CharacteristicInfo{
			Type:     c.Type,
			Name:     c.Name,
			Format:   string(c.Format),
			Readable: c.Readable,
			Writable: c.Writable,
			Min:      c.Min,
			Max:      c.Max,
			Step:     c.Step,
			Unit:     c.Unit,
			Choices:  enumChoices(c),
		}
		if v, ok := cached[c.Name]; ok {
			info.Value = v
		} else {
			info.Value = homekit.FormatValue(c, c.Value)
		}
		chars = append(chars, info)
	}

	return protocol.AccessoryDetail{
		DeviceSummary:   directory.Summary(home, acc, m.filter.Allows, m.values),
		Manufacturer:    acc.Manufacturer,
		Model:           acc.Model,
		Bridged:         acc.Bridged,
		Home:            home.Name,
		Characteristics: chars,
	}
}

func enumChoices(c *homekit.Characteristic) []string {
	if len(c.Enum) == 0 {
		return nil
	}
	ordinals := make([]int, 0, len(c.Enum))
	for ordinal := range c.Enum {
		ordinals = append(ordinals, ordinal)
	}
	slices.Sort(ordinals)
	choices := make([]string, 0, len(ordinals))
	for _, ordinal := range ordinals {
		choices = append(choices, c.Enum[ordinal])
	}
	return choices
}
