package guidance

import (
	"testing"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneMeterDeg = 1 / (geo.EarthRadiusMeters * geo.DegreeToRadian)

func meters(lat, lon float64) geo.Coordinate {
	return geo.NewCoordinate(lat*oneMeterDeg, lon*oneMeterDeg)
}

func TestGetTurnDirection(t *testing.T) {
	testCases := []struct {
		name        string
		prevBearing float64
		bearing     float64
		want        TurnSign
	}{
		{name: "straight", prevBearing: 90, bearing: 95, want: CONTINUE_ON_STREET},
		{name: "slight right across north", prevBearing: 350, bearing: 10, want: TURN_SLIGHT_RIGHT},
		{name: "slight left across north", prevBearing: 10, bearing: 340, want: TURN_SLIGHT_LEFT},
		{name: "right", prevBearing: 0, bearing: 90, want: TURN_RIGHT},
		{name: "left", prevBearing: 90, bearing: 0, want: TURN_LEFT},
		{name: "sharp right", prevBearing: 90, bearing: 210, want: TURN_SHARP_RIGHT},
		{name: "sharp left", prevBearing: 90, bearing: 330, want: TURN_SHARP_LEFT},
		{name: "just under the slight threshold", prevBearing: 0, bearing: 11.9, want: CONTINUE_ON_STREET},
		{name: "just over the turn threshold", prevBearing: 0, bearing: 40.1, want: TURN_RIGHT},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, getTurnDirection(tc.prevBearing, tc.bearing))
		})
	}
}

func TestCompassDirection(t *testing.T) {
	testCases := []struct {
		bearing float64
		want    string
	}{
		{bearing: 0, want: "north"},
		{bearing: 359, want: "north"},
		{bearing: 44, want: "northeast"},
		{bearing: 90, want: "east"},
		{bearing: 200, want: "south"},
		{bearing: 280, want: "west"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, compassDirection(tc.bearing))
		})
	}
}

type crossing struct {
	db                          *streetdb.MemoryDatabase
	graph                       *da.Graph
	w                           da.IntersectionIdx
	wc, ce, cn, cSharp, cSlight da.StreetSegmentIdx
}

// newCrossing has Main Street running west to east through C, Second Avenue going north from C and two
// unnamed streets leaving C south-south-west and east-north-east.
func newCrossing(t *testing.T) crossing {
	db := streetdb.NewMemoryDatabase()
	c := db.AddIntersection("C", meters(0, 0))
	w := db.AddIntersection("W", meters(0, -10))
	e := db.AddIntersection("E", meters(0, 10))
	n := db.AddIntersection("N", meters(10, 0))
	ssw := db.AddIntersection("SSW", meters(-10, -3))
	ene := db.AddIntersection("ENE", meters(3, 10))

	mainSt := db.AddStreet("Main Street")
	second := db.AddStreet("Second Avenue")
	sharp := db.AddStreet("")
	slight := db.AddStreet("Slight Lane")

	add := func(from, to da.IntersectionIdx, street da.StreetIdx) da.StreetSegmentIdx {
		id, err := db.AddStreetSegment(da.StreetSegmentInfo{From: from, To: to, StreetID: street, SpeedLimit: 5})
		require.NoError(t, err)
		return id
	}
	cr := crossing{db: db, w: w}
	cr.wc = add(w, c, mainSt)
	cr.ce = add(c, e, mainSt)
	cr.cn = add(c, n, second)
	cr.cSharp = add(c, ssw, sharp)
	cr.cSlight = add(c, ene, slight)
	cr.graph = da.NewGraph(db)
	return cr
}

func TestDrivingDirections(t *testing.T) {
	cr := newCrossing(t)

	testCases := []struct {
		name  string
		path  []da.StreetSegmentIdx
		signs []TurnSign
		names []string
		steps [][]da.StreetSegmentIdx
	}{
		{
			name:  "one street",
			path:  []da.StreetSegmentIdx{cr.wc, cr.ce},
			signs: []TurnSign{START, FINISH},
			names: []string{"Main Street", "Main Street"},
			steps: [][]da.StreetSegmentIdx{{cr.wc, cr.ce}, {}},
		},
		{
			name:  "left turn",
			path:  []da.StreetSegmentIdx{cr.wc, cr.cn},
			signs: []TurnSign{START, TURN_LEFT, FINISH},
			names: []string{"Main Street", "Second Avenue", "Second Avenue"},
			steps: [][]da.StreetSegmentIdx{{cr.wc}, {cr.cn}, {}},
		},
		{
			name:  "sharp right onto an unnamed street",
			path:  []da.StreetSegmentIdx{cr.wc, cr.cSharp},
			signs: []TurnSign{START, TURN_SHARP_RIGHT, FINISH},
			names: []string{"Main Street", unnamedStreet, unnamedStreet},
			steps: [][]da.StreetSegmentIdx{{cr.wc}, {cr.cSharp}, {}},
		},
		{
			name:  "slight left",
			path:  []da.StreetSegmentIdx{cr.wc, cr.cSlight},
			signs: []TurnSign{START, TURN_SLIGHT_LEFT, FINISH},
			names: []string{"Main Street", "Slight Lane", "Slight Lane"},
			steps: [][]da.StreetSegmentIdx{{cr.wc}, {cr.cSlight}, {}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dirs := DrivingDirections(cr.graph, cr.db, cr.w, tc.path)
			require.Len(t, dirs, len(tc.signs))

			total := 0.0
			for i, d := range dirs {
				assert.Equal(t, tc.signs[i], d.TurnSign)
				assert.Equal(t, tc.signs[i].String(), d.TurnType)
				assert.Equal(t, tc.names[i], d.StreetName)
				assert.Equal(t, tc.steps[i], d.Segments)
				total += d.Distance
			}
			assert.Equal(t, "Head east on Main Street", dirs[0].Instruction)
			assert.NotEmpty(t, dirs[0].Polyline)
			assert.Empty(t, dirs[len(dirs)-1].Polyline)

			want := 0.0
			for _, seg := range tc.path {
				want += cr.graph.GetSegmentLength(seg)
			}
			assert.InDelta(t, want, total, 1e-9)
		})
	}
}

func TestDrivingDirectionsEmptyPath(t *testing.T) {
	cr := newCrossing(t)
	assert.Empty(t, DrivingDirections(cr.graph, cr.db, cr.w, nil))
}

func TestDrivingDirectionsPolylineFollowsStep(t *testing.T) {
	cr := newCrossing(t)
	dirs := DrivingDirections(cr.graph, cr.db, cr.w, []da.StreetSegmentIdx{cr.wc, cr.ce})
	require.Len(t, dirs, 2)

	coords, err := geo.CoordsFromPolyline(dirs[0].Polyline)
	require.NoError(t, err)
	require.Len(t, coords, 3)
	assert.InDelta(t, meters(0, -10).Lon, coords[0].Lon, 1e-5)
	assert.InDelta(t, meters(0, 10).Lon, coords[2].Lon, 1e-5)

	dirs = DrivingDirections(cr.graph, cr.db, cr.w, []da.StreetSegmentIdx{cr.wc, cr.cn})
	assert.Equal(t, "Turn left onto Second Avenue", dirs[1].Instruction)
	assert.Equal(t, "Arrive at destination on Second Avenue", dirs[2].Instruction)
}
