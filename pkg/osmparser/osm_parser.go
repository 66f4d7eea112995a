package osmparser

import (
	"context"
	"fmt"
	"math"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

type NodeType uint8

const (
	END_NODE NodeType = iota + 1
	BETWEEN_NODE
	JUNCTION_NODE
)

const (
	UNKNOWN_STREET = "<unknown>"
	logEvery       = 50000
)

type node struct {
	id    osm.NodeID
	coord geo.Coordinate
}

type osmWay struct {
	id     osm.WayID
	nodes  []osm.NodeID
	name   string
	speed  float64 // km/h
	oneWay bool
	// forward is false for one-way streets drawn against their driving direction
	forward bool
}

type osmFeature struct {
	name        string
	featureType string
	nodes       []osm.NodeID
}

// OsmParser converts an OpenStreetMap extract into a street database. Drivable ways are split into street
// segments at every node shared with another way and at access=no barriers; the nodes in between become
// curve points. Named amenity and shop nodes become points of interest, closed natural, landuse, leisure,
// water and building ways become features.
type OsmParser struct {
	logger *zap.Logger

	wayNodeMap      map[osm.NodeID]NodeType
	featureNodes    map[osm.NodeID]struct{}
	acceptedNodeMap map[osm.NodeID]geo.Coordinate
	barrierNodes    map[osm.NodeID]bool
	nodeIDMap       map[osm.NodeID]da.IntersectionIdx
	streetIDMap     map[string]da.StreetIdx
	ways            []osmWay
	features        []osmFeature
	nextCopyID      osm.NodeID

	db *streetdb.MemoryDatabase
}

func NewOSMParser(logger *zap.Logger) *OsmParser {
	return &OsmParser{
		logger:          logger,
		wayNodeMap:      make(map[osm.NodeID]NodeType),
		featureNodes:    make(map[osm.NodeID]struct{}),
		acceptedNodeMap: make(map[osm.NodeID]geo.Coordinate),
		barrierNodes:    make(map[osm.NodeID]bool),
		nodeIDMap:       make(map[osm.NodeID]da.IntersectionIdx),
		streetIDMap:     make(map[string]da.StreetIdx),
		nextCopyID:      -1,
		db:              streetdb.NewMemoryDatabase(),
	}
}

var (
	// https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
	acceptedHighway = map[string]struct{}{
		"motorway":         {},
		"motorway_link":    {},
		"trunk":            {},
		"trunk_link":       {},
		"primary":          {},
		"primary_link":     {},
		"secondary":        {},
		"secondary_link":   {},
		"residential":      {},
		"residential_link": {},
		"service":          {},
		"tertiary":         {},
		"tertiary_link":    {},
		"road":             {},
		"track":            {},
		"unclassified":     {},
		"undefined":        {},
		"unknown":          {},
		"living_street":    {},
		"private":          {},
		"motorroad":        {},
	}

	// https://wiki.openstreetmap.org/wiki/Key:barrier
	// a barrier only splits the street when its access tag is "no"
	acceptedBarrierType = map[string]struct{}{
		"bollard":        {},
		"swing_gate":     {},
		"jersey_barrier": {},
		"lift_gate":      {},
		"block":          {},
		"gate":           {},
	}

	featureKeys = []string{"natural", "landuse", "leisure", "water", "building"}

	poiKeys = []string{"amenity", "shop", "tourism"}
)

// Parse reads the map twice from scanners produced by open: ways first, then nodes.
func (p *OsmParser) Parse(ctx context.Context, open ScannerFactory) (*streetdb.MemoryDatabase, error) {
	if err := p.scanWays(ctx, open); err != nil {
		return nil, err
	}
	if err := p.scanNodes(ctx, open); err != nil {
		return nil, err
	}

	for i, way := range p.ways {
		if (i+1)%logEvery == 0 {
			p.logger.Info("building street segments", zap.Int("ways", i+1))
		}
		p.processWay(way)
	}
	for _, f := range p.features {
		p.addFeature(f)
	}

	p.logger.Info("openstreetmap extract parsed",
		zap.Int("intersections", p.db.NumIntersections()),
		zap.Int("street_segments", p.db.NumStreetSegments()),
		zap.Int("streets", p.db.NumStreets()),
		zap.Int("points_of_interest", p.db.NumPointsOfInterest()),
		zap.Int("features", p.db.NumFeatures()))
	return p.db, nil
}

func (p *OsmParser) scanWays(ctx context.Context, open ScannerFactory) error {
	scanner, err := open(ctx)
	if err != nil {
		return err
	}
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok || len(way.Nodes) < 2 {
			continue
		}

		if !acceptOsmWay(way) {
			if f, ok := featureOf(way); ok {
				for _, id := range f.nodes {
					p.featureNodes[id] = struct{}{}
				}
				p.features = append(p.features, f)
			}
			continue
		}

		if (countWays+1)%logEvery == 0 {
			p.logger.Info("reading openstreetmap ways", zap.Int("ways", countWays+1))
		}
		countWays++

		for i, wn := range way.Nodes {
			if _, ok := p.wayNodeMap[wn.ID]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[wn.ID] = END_NODE
				} else {
					p.wayNodeMap[wn.ID] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[wn.ID] = JUNCTION_NODE
			}
		}
		p.ways = append(p.ways, newOsmWay(way))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan openstreetmap ways: %w", err)
	}
	return nil
}

func (p *OsmParser) scanNodes(ctx context.Context, open ScannerFactory) error {
	scanner, err := open(ctx)
	if err != nil {
		return err
	}
	defer scanner.Close()

	countNodes := 0
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if (countNodes+1)%logEvery == 0 {
			p.logger.Info("reading openstreetmap nodes", zap.Int("nodes", countNodes+1))
		}
		countNodes++

		coord := geo.NewCoordinate(n.Lat, n.Lon)
		_, onWay := p.wayNodeMap[n.ID]
		_, onFeature := p.featureNodes[n.ID]
		if onWay || onFeature {
			p.acceptedNodeMap[n.ID] = coord
		}

		barrierType := n.Tags.Find("barrier")
		if _, ok := acceptedBarrierType[barrierType]; ok && n.Tags.Find("access") == "no" {
			p.barrierNodes[n.ID] = true
		}

		if name := n.Tags.Find("name"); name != "" {
			for _, key := range poiKeys {
				if v := n.Tags.Find(key); v != "" {
					p.db.AddPointOfInterest(name, v, coord)
					break
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan openstreetmap nodes: %w", err)
	}
	return nil
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		_, ok := acceptedHighway[highway]
		return ok
	}
	return junction != ""
}

func featureOf(way *osm.Way) (osmFeature, bool) {
	if way.Nodes[0].ID != way.Nodes[len(way.Nodes)-1].ID {
		return osmFeature{}, false
	}
	for _, key := range featureKeys {
		v := way.Tags.Find(key)
		if v == "" {
			continue
		}
		if v == "yes" {
			v = key
		}
		nodes := make([]osm.NodeID, len(way.Nodes))
		for i, wn := range way.Nodes {
			nodes[i] = wn.ID
		}
		return osmFeature{name: way.Tags.Find("name"), featureType: v, nodes: nodes}, true
	}
	return osmFeature{}, false
}

func newOsmWay(way *osm.Way) osmWay {
	w := osmWay{
		id:      way.ID,
		name:    way.Tags.Find("name"),
		forward: true,
		nodes:   make([]osm.NodeID, len(way.Nodes)),
	}
	for i, wn := range way.Nodes {
		w.nodes[i] = wn.ID
	}

	okvf, okmvf, okvb, okmvb := getReversedOneWay(way)
	oneWay := way.Tags.Find("oneway")
	if oneWay == "yes" || oneWay == "1" || oneWay == "true" || oneWay == "-1" || okvf || okmvf || okvb || okmvb {
		w.oneWay = true
	}
	if way.Tags.Find("junction") == "roundabout" && oneWay != "no" {
		w.oneWay = true
	}
	if oneWay == "-1" || okvf || okmvf {
		// okvf / okmvf = not allowed forward
		w.forward = false
	}

	maxSpeed, ok := parseMaxSpeed(way.Tags.Find("maxspeed"))
	if !ok {
		maxSpeed = roadTypeMaxSpeed(way.Tags.Find("highway"))
	}
	w.speed = maxSpeed
	return w
}

func isRestricted(value string) bool {
	return value == "no" || value == "restricted"
}

func getReversedOneWay(way *osm.Way) (bool, bool, bool, bool) {
	vehicleForward := way.Tags.Find("vehicle:forward")
	motorVehicleForward := way.Tags.Find("motor_vehicle:forward")
	vehicleBackward := way.Tags.Find("vehicle:backward")
	motorVehicleBackward := way.Tags.Find("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward), isRestricted(vehicleBackward),
		isRestricted(motorVehicleBackward)
}

func (p *OsmParser) isJunctionNode(id osm.NodeID) bool {
	return p.wayNodeMap[id] == JUNCTION_NODE
}

func (p *OsmParser) processWay(way osmWay) {
	waySegment := make([]node, 0, len(way.nodes))
	for _, id := range way.nodes {
		coord, ok := p.acceptedNodeMap[id]
		if !ok {
			// node outside the extract
			if len(waySegment) > 1 {
				p.processSegment(waySegment, way)
			}
			waySegment = waySegment[:0]
			continue
		}
		nodeData := node{id: id, coord: coord}
		waySegment = append(waySegment, nodeData)
		if p.isJunctionNode(id) {
			p.processSegment(waySegment, way)
			waySegment = []node{nodeData}
		}
	}
	if len(waySegment) > 1 {
		p.processSegment(waySegment, way)
	}
}

func (p *OsmParser) processSegment(segment []node, way osmWay) {
	if len(segment) == 2 && segment[0].id == segment[1].id {
		return
	} else if len(segment) > 2 && segment[0].id == segment[len(segment)-1].id {
		// loop
		p.splitAtBarriers(segment[0:len(segment)-1], way)
		p.splitAtBarriers(segment[len(segment)-2:], way)
	} else {
		p.splitAtBarriers(segment, way)
	}
}

func (p *OsmParser) splitAtBarriers(segment []node, way osmWay) {
	waySegment := make([]node, 0, len(segment))
	for i, nodeData := range segment {
		if p.barrierNodes[nodeData.id] && i > 0 && i < len(segment)-1 {
			waySegment = append(waySegment, nodeData)
			p.addSegment(waySegment, way)
			// the street continues from a copy of the barrier, so both sides stay disconnected
			waySegment = []node{p.copyNode(nodeData)}
			continue
		}
		waySegment = append(waySegment, nodeData)
	}
	if len(waySegment) > 1 {
		p.addSegment(waySegment, way)
	}
}

// copyNode returns a node at the same position with an id that no OSM node uses.
func (p *OsmParser) copyNode(nodeData node) node {
	id := p.nextCopyID
	p.nextCopyID--
	p.acceptedNodeMap[id] = nodeData.coord
	return node{id: id, coord: nodeData.coord}
}

func (p *OsmParser) intersection(n node) da.IntersectionIdx {
	if id, ok := p.nodeIDMap[n.id]; ok {
		return id
	}
	name := ""
	if n.id > 0 {
		name = fmt.Sprintf("node/%d", n.id)
	}
	id := p.db.AddIntersection(name, n.coord)
	p.nodeIDMap[n.id] = id
	return id
}

func (p *OsmParser) street(name string) da.StreetIdx {
	if name == "" {
		name = UNKNOWN_STREET
	}
	if id, ok := p.streetIDMap[name]; ok {
		return id
	}
	id := p.db.AddStreet(name)
	p.streetIDMap[name] = id
	return id
}

func (p *OsmParser) addSegment(segment []node, way osmWay) {
	first := segment[0]
	last := segment[len(segment)-1]
	if first.id == last.id && len(segment) == 2 {
		return
	}
	if !way.forward {
		reversed := make([]node, len(segment))
		for i, n := range segment {
			reversed[len(segment)-1-i] = n
		}
		segment = reversed
		first, last = last, first
	}

	curve := make([]geo.Coordinate, 0, len(segment)-2)
	for _, n := range segment[1 : len(segment)-1] {
		curve = append(curve, n.coord)
	}

	info := da.StreetSegmentInfo{
		From:        p.intersection(first),
		To:          p.intersection(last),
		OneWay:      way.oneWay,
		SpeedLimit:  math.Max(way.speed, 0) / 3.6,
		StreetID:    p.street(way.name),
		CurvePoints: curve,
	}
	if _, err := p.db.AddStreetSegment(info); err != nil {
		p.logger.Warn("skipping street segment", zap.Int64("way", int64(way.id)), zap.Error(err))
	}
}

func (p *OsmParser) addFeature(f osmFeature) {
	points := make([]geo.Coordinate, 0, len(f.nodes))
	for _, id := range f.nodes {
		coord, ok := p.acceptedNodeMap[id]
		if !ok {
			return
		}
		points = append(points, coord)
	}
	p.db.AddFeature(f.name, f.featureType, points)
}
