package guidance

import (
	"fmt"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
)

const unnamedStreet = "unnamed road"

// DrivingDirection is one step of a route: everything driven on one street after a single maneuver.
type DrivingDirection struct {
	Instruction string                `json:"instruction"`
	StreetName  string                `json:"street_name"`
	TurnSign    TurnSign              `json:"turn_sign"`
	TurnType    string                `json:"turn_type"`
	TurnBearing float64               `json:"turn_bearing"`
	Distance    float64               `json:"distance"`
	TravelTime  float64               `json:"travel_time"`
	Segments    []da.StreetSegmentIdx `json:"segments"`
	Polyline    string                `json:"polyline"`
}

type DirectionBuilder struct {
	graph   Graph
	streets StreetNames

	directions []DrivingDirection
	points     []geo.Coordinate
	curr       da.IntersectionIdx
	prevStreet da.StreetIdx
	// bearing of the last piece driven
	prevBearing float64
}

func NewDirectionBuilder(graph Graph, streets StreetNames) *DirectionBuilder {
	return &DirectionBuilder{
		graph:      graph,
		streets:    streets,
		prevStreet: da.INVALID_STREET_ID,
	}
}

// GetDrivingDirections groups path, driven from source, into one step per street and classifies the
// maneuver between consecutive steps by the change of bearing. The last step is the arrival.
func (db *DirectionBuilder) GetDrivingDirections(source da.IntersectionIdx, path []da.StreetSegmentIdx) []DrivingDirection {
	db.directions = make([]DrivingDirection, 0, 4)
	db.curr = source
	db.prevStreet = da.INVALID_STREET_ID
	if len(path) == 0 {
		return db.directions
	}

	for i, seg := range path {
		db.buildInstruction(i, seg)
	}
	db.flushPolyline()
	db.buildFinalInstruction()
	return db.directions
}

func (db *DirectionBuilder) buildInstruction(i int, seg da.StreetSegmentIdx) {
	geometry := db.graph.GetSegmentGeometry(seg, db.curr)
	street := db.graph.GetStreetID(seg)
	bearing := initialBearing(geometry[0], geometry[1])

	if i == 0 || street != db.prevStreet {
		db.flushPolyline()
		name := db.streetName(street)

		var (
			sign        TurnSign
			instruction string
		)
		if i == 0 {
			sign = START
			instruction = fmt.Sprintf("Head %s on %s", compassDirection(bearing), name)
		} else {
			sign = getTurnDirection(db.prevBearing, bearing)
			instruction = fmt.Sprintf("%s %s", sign.verb(), name)
		}

		db.directions = append(db.directions, DrivingDirection{
			Instruction: instruction,
			StreetName:  name,
			TurnSign:    sign,
			TurnType:    sign.String(),
			TurnBearing: bearing,
			Segments:    make([]da.StreetSegmentIdx, 0, 4),
		})
		db.points = append(db.points[:0], geometry[0])
	}

	step := &db.directions[len(db.directions)-1]
	step.Distance += db.graph.GetSegmentLength(seg)
	step.TravelTime += db.graph.GetSegmentTravelTime(seg)
	step.Segments = append(step.Segments, seg)
	db.points = append(db.points, geometry[1:]...)

	n := len(geometry)
	db.prevBearing = initialBearing(geometry[n-2], geometry[n-1])
	db.prevStreet = street
	db.curr = db.graph.OtherEndpoint(seg, db.curr)
}

func (db *DirectionBuilder) flushPolyline() {
	if len(db.directions) == 0 || len(db.points) == 0 {
		return
	}
	db.directions[len(db.directions)-1].Polyline = geo.PolylineFromCoords(db.points)
	db.points = db.points[:0]
}

func (db *DirectionBuilder) buildFinalInstruction() {
	last := db.directions[len(db.directions)-1]
	db.directions = append(db.directions, DrivingDirection{
		Instruction: fmt.Sprintf("Arrive at destination on %s", last.StreetName),
		StreetName:  last.StreetName,
		TurnSign:    FINISH,
		TurnType:    FINISH.String(),
		TurnBearing: db.prevBearing,
		Segments:    []da.StreetSegmentIdx{},
	})
}

func (db *DirectionBuilder) streetName(street da.StreetIdx) string {
	if street < 0 || int(street) >= db.streets.NumStreets() {
		return unnamedStreet
	}
	if name := db.streets.StreetName(street); name != "" {
		return name
	}
	return unnamedStreet
}

// DrivingDirections is NewDirectionBuilder(graph, streets).GetDrivingDirections(source, path).
func DrivingDirections(graph Graph, streets StreetNames, source da.IntersectionIdx,
	path []da.StreetSegmentIdx) []DrivingDirection {
	return NewDirectionBuilder(graph, streets).GetDrivingDirections(source, path)
}
