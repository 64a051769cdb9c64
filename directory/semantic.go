package directory

import "homegate/homekit"

// SemanticType is a coarse device-classification bucket used for search,
// aliases, and menu assembly. It is distinct from the vendor category.
type SemanticType string

const (
	TypeLighting       SemanticType = "lighting"
	TypeClimate        SemanticType = "climate"
	TypeSecurity       SemanticType = "security"
	TypeDoorLock       SemanticType = "door_lock"
	TypeWindowCovering SemanticType = "window_covering"
	TypeSensor         SemanticType = "sensor"
	TypePower          SemanticType = "power"
	TypeMedia          SemanticType = "media"
	TypeNetwork        SemanticType = "network"
	TypeOther          SemanticType = "other"
)

// SemanticTypes lists every bucket, for validating search filters.
var SemanticTypes = []SemanticType{
	TypeLighting, TypeClimate, TypeSecurity, TypeDoorLock, TypeWindowCovering,
	TypeSensor, TypePower, TypeMedia, TypeNetwork, TypeOther,
}

// categoryTypes maps a vendor category to a bucket. Categories absent here
// are considered generic and resolved from the accessory's services instead.
var categoryTypes = map[homekit.Category]SemanticType{
	homekit.CategoryLightbulb:        TypeLighting,
	homekit.CategorySwitch:           TypePower,
	homekit.CategoryOutlet:           TypePower,
	homekit.CategoryFan:              TypeClimate,
	homekit.CategoryThermostat:       TypeClimate,
	homekit.CategoryAirConditioner:   TypeClimate,
	homekit.CategoryHeater:           TypeClimate,
	homekit.CategoryAirPurifier:      TypeClimate,
	homekit.CategorySensor:           TypeSensor,
	homekit.CategorySecuritySystem:   TypeSecurity,
	homekit.CategoryDoorLock:         TypeDoorLock,
	homekit.CategoryDoor:             TypeSecurity,
	homekit.CategoryWindow:           TypeWindowCovering,
	homekit.CategoryWindowCovering:   TypeWindowCovering,
	homekit.CategoryGarageDoorOpener: TypeSecurity,
	homekit.CategoryTelevision:       TypeMedia,
	homekit.CategorySpeaker:          TypeMedia,
	homekit.CategoryRouter:           TypeNetwork,
	homekit.CategoryRangeExtender:    TypeNetwork,
}

// serviceTypes maps a service type to a bucket, for accessories whose vendor
// category is generic (bridged devices often report "other" or "bridge").
var serviceTypes = map[string]SemanticType{
	homekit.ServiceLightbulb:      TypeLighting,
	homekit.ServiceSwitch:         TypePower,
	homekit.ServiceOutlet:         TypePower,
	homekit.ServiceFan:            TypeClimate,
	homekit.ServiceThermostat:     TypeClimate,
	homekit.ServiceHeaterCooler:   TypeClimate,
	homekit.ServiceSecuritySystem: TypeSecurity,
	homekit.ServiceLockMechanism:  TypeDoorLock,
	homekit.ServiceDoor:           TypeSecurity,
	homekit.ServiceGarageDoor:     TypeSecurity,
	homekit.ServiceWindowCovering: TypeWindowCovering,
	homekit.ServiceTelevision:     TypeMedia,
	homekit.ServiceSpeaker:        TypeMedia,
	homekit.ServiceWiFiRouter:     TypeNetwork,
	homekit.ServiceMotionSensor:   TypeSensor,
	homekit.ServiceContactSensor:  TypeSensor,
	homekit.ServiceTempSensor:     TypeSensor,
	homekit.ServiceHumiditySensor: TypeSensor,
}

// fallbackPriority orders the buckets for the service scan: a device with
// both a lock mechanism and a contact sensor is a lock, not a sensor.
var fallbackPriority = []SemanticType{
	TypeSecurity, TypeDoorLock, TypeClimate, TypeWindowCovering,
	TypeLighting, TypeMedia, TypePower, TypeNetwork, TypeSensor,
}

// SemanticTypeOf infers the bucket of an accessory from its vendor category,
// falling back to its services when the category is generic.
func SemanticTypeOf(acc *homekit.Accessory) SemanticType {
	if t, ok := categoryTypes[acc.Category]; ok {
		return t
	}
	present := make(map[SemanticType]bool)
	for _, svc := range acc.Services {
		if t, ok := serviceTypes[svc.Type]; ok {
			present[t] = true
		}
	}
	for _, t := range fallbackPriority {
		if present[t] {
			return t
		}
	}
	return TypeOther
}
