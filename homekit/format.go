package homekit

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// FormatValue renders a raw characteristic value as its canonical string
// form: "true"/"false" for bools, the symbolic enum name for known enum
// ordinals, plain decimal otherwise. Unknown or nil values render as "".
func FormatValue(c *Characteristic, value any) string {
	if value == nil {
		return ""
	}
	switch c.Format {
	case FormatBool:
		b, ok := toBool(value)
		if !ok {
			return ""
		}
		return strconv.FormatBool(b)
	case FormatInt:
		n, ok := toInt(value)
		if !ok {
			return ""
		}
		if name, ok := c.Enum[n]; ok {
			return name
		}
		return strconv.Itoa(n)
	case FormatFloat:
		f, ok := toFloat(value)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// ParseValue parses a client-supplied string into a raw value matching the
// characteristic's declared format. Enum characteristics accept symbolic
// names ("locked", "open") case-insensitively as well as raw ordinals.
// Numeric values are checked against the declared min/max.
func ParseValue(c *Characteristic, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch c.Format {
	case FormatBool:
		switch strings.ToLower(raw) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q for %s", raw, c.Name)
	case FormatInt:
		if len(c.Enum) > 0 {
			for ordinal, name := range c.Enum {
				if strings.EqualFold(name, raw) {
					return ordinal, nil
				}
			}
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			if len(c.Enum) > 0 {
				return nil, fmt.Errorf("invalid value %q for %s: expected one of %s or a number", raw, c.Name, enumNames(c))
			}
			return nil, fmt.Errorf("invalid integer %q for %s", raw, c.Name)
		}
		if len(c.Enum) > 0 {
			if _, ok := c.Enum[n]; !ok {
				return nil, fmt.Errorf("value %d out of range for %s: expected one of %s", n, c.Name, enumNames(c))
			}
			return n, nil
		}
		if err := checkRange(c, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case FormatFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q for %s", raw, c.Name)
		}
		if err := checkRange(c, f); err != nil {
			return nil, err
		}
		return f, nil
	case FormatString:
		return raw, nil
	}
	return nil, fmt.Errorf("unsupported format %q for %s", c.Format, c.Name)
}

func checkRange(c *Characteristic, v float64) error {
	if c.Min != nil && v < *c.Min {
		return fmt.Errorf("value %v below minimum %v for %s", v, *c.Min, c.Name)
	}
	if c.Max != nil && v > *c.Max {
		return fmt.Errorf("value %v above maximum %v for %s", v, *c.Max, c.Name)
	}
	return nil
}

func enumNames(c *Characteristic) string {
	ordinals := make([]int, 0, len(c.Enum))
	for ordinal := range c.Enum {
		ordinals = append(ordinals, ordinal)
	}
	slices.Sort(ordinals)
	names := make([]string, 0, len(ordinals))
	for _, ordinal := range ordinals {
		names = append(names, c.Enum[ordinal])
	}
	return strings.Join(names, "|")
}

// toBool normalizes the loosely-typed values the subsystem and JSON
// decoding produce.
func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case int:
		return t != 0, true
	case float64:
		return t != 0, true
	}
	return false, false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
