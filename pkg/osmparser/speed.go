package osmparser

import (
	"strconv"
	"strings"
)

const defaultMaxSpeed = 30.0

// parseMaxSpeed reads an OSM maxspeed value into km/h. Bare numbers are km/h.
func parseMaxSpeed(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(value, "mph"):
		factor = 1.60934
		value = strings.TrimSuffix(value, "mph")
	case strings.HasSuffix(value, "km/h"):
		value = strings.TrimSuffix(value, "km/h")
	case strings.HasSuffix(value, "knots"):
		factor = 1.852
		value = strings.TrimSuffix(value, "knots")
	}

	speed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || speed <= 0 {
		return 0, false
	}
	return speed * factor, true
}

// roadTypeMaxSpeed is the speed assumed for a highway class without a usable maxspeed tag, in km/h.
func roadTypeMaxSpeed(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 100
	case "trunk":
		return 70
	case "primary":
		return 65
	case "secondary":
		return 60
	case "tertiary":
		return 50
	case "unclassified":
		return 40
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 70
	case "trunk_link":
		return 65
	case "primary_link":
		return 60
	case "secondary_link":
		return 50
	case "tertiary_link":
		return 40
	case "living_street":
		return 5
	case "road":
		return 20
	case "track":
		return 15
	case "motorroad":
		return 90
	default:
		return defaultMaxSpeed
	}
}
