package directory

import (
	"fmt"
	"strings"

	"homegate/homekit"
)

// Values is the cached formatted state of one accessory, keyed by
// characteristic name.
type Values map[string]string

// Summarize renders a one-line state summary for an accessory from its
// cached values. Returns "unreachable" when the device is offline and
// "unknown" when nothing relevant is cached.
func Summarize(acc *homekit.Accessory, semantic SemanticType, values Values) string {
	if !acc.Reachable {
		return "unreachable"
	}
	if len(values) == 0 {
		return "unknown"
	}

	switch semantic {
	case TypeLighting:
		return onOffSummary(values, true)
	case TypeClimate:
		return climateSummary(values)
	case TypeDoorLock:
		if v, ok := values["lock_state"]; ok {
			return v
		}
	case TypeSecurity:
		if v, ok := values["lock_state"]; ok {
			return v
		}
		if v, ok := values["door_state"]; ok {
			return v
		}
	case TypeWindowCovering:
		if v, ok := values["position"]; ok {
			return v + "% open"
		}
	case TypeMedia:
		return activeSummary(values, "volume")
	case TypeSensor:
		if s := sensorSummary(values); s != "" {
			return s
		}
	}

	return onOffSummary(values, false)
}

// onOffSummary renders power state, with brightness appended for lighting.
func onOffSummary(values Values, withBrightness bool) string {
	power, ok := values["power"]
	if !ok {
		return "unknown"
	}
	if power != "true" {
		return "off"
	}
	if withBrightness {
		if b, ok := values["brightness"]; ok {
			return fmt.Sprintf("on %s%%", b)
		}
	}
	if speed, ok := values["rotation_speed"]; ok {
		return fmt.Sprintf("on, speed %s%%", speed)
	}
	return "on"
}

func climateSummary(values Values) string {
	var parts []string
	if cur, ok := values["current_temperature"]; ok {
		parts = append(parts, cur+"°C")
	}
	if mode, ok := values["mode"]; ok {
		parts = append(parts, mode)
	}
	if target, ok := values["target_temperature"]; ok {
		parts = append(parts, "target "+target+"°C")
	}
	if len(parts) == 0 {
		return activeSummary(values, "rotation_speed")
	}
	return strings.Join(parts, ", ")
}

func activeSummary(values Values, levelName string) string {
	active, ok := values["active"]
	if !ok {
		return onOffSummary(values, false)
	}
	if active != "true" {
		return "off"
	}
	if level, ok := values[levelName]; ok {
		return fmt.Sprintf("on, %s %s%%", strings.ReplaceAll(levelName, "_", " "), level)
	}
	return "on"
}

func sensorSummary(values Values) string {
	var parts []string
	if v, ok := values["current_temperature"]; ok {
		parts = append(parts, v+"°C")
	}
	if v, ok := values["humidity"]; ok {
		parts = append(parts, v+"% humidity")
	}
	if v, ok := values["motion"]; ok {
		if v == "true" {
			parts = append(parts, "motion")
		} else {
			parts = append(parts, "no motion")
		}
	}
	if v, ok := values["contact"]; ok {
		parts = append(parts, v)
	}
	if v, ok := values["battery_level"]; ok {
		parts = append(parts, "battery "+v+"%")
	}
	return strings.Join(parts, " ")
}
