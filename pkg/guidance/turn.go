package guidance

import (
	"math"

	"github.com/lintang-b-s/streetmap/pkg/geo"
)

type TurnSign int

const (
	TURN_SHARP_LEFT    TurnSign = -3
	TURN_LEFT          TurnSign = -2
	TURN_SLIGHT_LEFT   TurnSign = -1
	CONTINUE_ON_STREET TurnSign = 0
	TURN_SLIGHT_RIGHT  TurnSign = 1
	TURN_RIGHT         TurnSign = 2
	TURN_SHARP_RIGHT   TurnSign = 3
	FINISH             TurnSign = 4
	START              TurnSign = 101
)

func (s TurnSign) String() string {
	switch s {
	case TURN_SHARP_LEFT:
		return "TURN_SHARP_LEFT"
	case TURN_LEFT:
		return "TURN_LEFT"
	case TURN_SLIGHT_LEFT:
		return "TURN_SLIGHT_LEFT"
	case CONTINUE_ON_STREET:
		return "CONTINUE_ON_STREET"
	case TURN_SLIGHT_RIGHT:
		return "TURN_SLIGHT_RIGHT"
	case TURN_RIGHT:
		return "TURN_RIGHT"
	case TURN_SHARP_RIGHT:
		return "TURN_SHARP_RIGHT"
	case FINISH:
		return "FINISH"
	case START:
		return "START"
	}
	return "UNKNOWN"
}

func (s TurnSign) verb() string {
	switch s {
	case TURN_SHARP_LEFT:
		return "Turn sharp left onto"
	case TURN_LEFT:
		return "Turn left onto"
	case TURN_SLIGHT_LEFT:
		return "Turn slight left onto"
	case TURN_SLIGHT_RIGHT:
		return "Turn slight right onto"
	case TURN_RIGHT:
		return "Turn right onto"
	case TURN_SHARP_RIGHT:
		return "Turn sharp right onto"
	}
	return "Continue onto"
}

// initialBearing of the piece a->b in degrees [0,360).
func initialBearing(a, b geo.Coordinate) float64 {
	return geo.BearingTo(a.Lat, a.Lon, b.Lat, b.Lon)
}

// deltaBearing is bearing - prevBearing in degrees, wrapped into (-180, 180]. Positive values turn clockwise
// (right).
func deltaBearing(prevBearing, bearing float64) float64 {
	dif := bearing - prevBearing
	if dif > 180 {
		dif -= 360
	} else if dif <= -180 {
		dif += 360
	}
	return dif
}

func getTurnDirection(prevBearing, bearing float64) TurnSign {
	delta := deltaBearing(prevBearing, bearing)
	deltaDegree := math.Abs(delta)
	switch {
	case deltaDegree < 12:
		return CONTINUE_ON_STREET
	case deltaDegree < 40:
		if delta < 0 {
			return TURN_SLIGHT_LEFT
		}
		return TURN_SLIGHT_RIGHT
	case deltaDegree < 105:
		if delta < 0 {
			return TURN_LEFT
		}
		return TURN_RIGHT
	case delta < 0:
		return TURN_SHARP_LEFT
	default:
		return TURN_SHARP_RIGHT
	}
}

var compassPoints = [...]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

func compassDirection(bearing float64) string {
	idx := int(math.Floor(math.Mod(bearing+22.5, 360) / 45))
	return compassPoints[idx%len(compassPoints)]
}
