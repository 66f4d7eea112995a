package osmparser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testExtract = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="-7.7900" lon="110.3600"/>
  <node id="2" lat="-7.7900" lon="110.3610"/>
  <node id="3" lat="-7.7900" lon="110.3620"/>
  <node id="4" lat="-7.7890" lon="110.3610"/>
  <node id="5" lat="-7.7880" lon="110.3610">
    <tag k="barrier" v="gate"/>
    <tag k="access" v="no"/>
  </node>
  <node id="6" lat="-7.7870" lon="110.3610"/>
  <node id="10" lat="-7.7895" lon="110.3605">
    <tag k="amenity" v="cafe"/>
    <tag k="name" v="Kopi Joss"/>
  </node>
  <node id="11" lat="-7.7896" lon="110.3606">
    <tag k="amenity" v="bench"/>
  </node>
  <node id="20" lat="-7.8000" lon="110.3600"/>
  <node id="21" lat="-7.8000" lon="110.3610"/>
  <node id="22" lat="-7.8010" lon="110.3610"/>
  <node id="23" lat="-7.8010" lon="110.3600"/>
  <way id="100">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="primary"/>
    <tag k="name" v="Jalan Malioboro"/>
    <tag k="maxspeed" v="40"/>
  </way>
  <way id="101">
    <nd ref="2"/>
    <nd ref="4"/>
    <nd ref="5"/>
    <nd ref="6"/>
    <tag k="highway" v="residential"/>
    <tag k="oneway" v="-1"/>
    <tag k="name" v="Jalan Mataram"/>
  </way>
  <way id="102">
    <nd ref="1"/>
    <nd ref="4"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="103">
    <nd ref="20"/>
    <nd ref="21"/>
    <nd ref="22"/>
    <nd ref="23"/>
    <nd ref="20"/>
    <tag k="leisure" v="park"/>
    <tag k="name" v="Alun-alun"/>
  </way>
</osm>`

func intersectionsByName(db *streetdb.MemoryDatabase) map[string]da.IntersectionIdx {
	res := make(map[string]da.IntersectionIdx)
	for i := 0; i < db.NumIntersections(); i++ {
		res[db.IntersectionName(da.IntersectionIdx(i))] = da.IntersectionIdx(i)
	}
	return res
}

func TestParseXML(t *testing.T) {
	db, err := NewOSMParser(zap.NewNop()).Parse(context.Background(), XMLScanner([]byte(testExtract)))
	require.NoError(t, err)

	// nodes 1, 2, 3, 5, 6 and the far side of the gate; node 4 is a curve point
	assert.Equal(t, 6, db.NumIntersections())
	assert.Equal(t, 4, db.NumStreetSegments())
	require.Equal(t, 2, db.NumStreets())
	assert.Equal(t, "Jalan Malioboro", db.StreetName(0))
	assert.Equal(t, "Jalan Mataram", db.StreetName(1))

	names := intersectionsByName(db)
	for _, n := range []string{"node/1", "node/2", "node/3", "node/5", "node/6"} {
		assert.Contains(t, names, n)
	}
	assert.NotContains(t, names, "node/4")

	t.Run("primary street", func(t *testing.T) {
		info := db.StreetSegmentInfo(0)
		assert.Equal(t, names["node/1"], info.From)
		assert.Equal(t, names["node/2"], info.To)
		assert.False(t, info.OneWay)
		assert.InDelta(t, 40/3.6, info.SpeedLimit, 1e-9)
		assert.Empty(t, info.CurvePoints)
	})

	t.Run("reversed one way split at the gate", func(t *testing.T) {
		info := db.StreetSegmentInfo(2)
		assert.Equal(t, names["node/5"], info.From)
		assert.Equal(t, names["node/2"], info.To)
		assert.True(t, info.OneWay)
		assert.InDelta(t, 30/3.6, info.SpeedLimit, 1e-9)
		require.Len(t, info.CurvePoints, 1)
		assert.InDelta(t, -7.7890, info.CurvePoints[0].Lat, 1e-9)

		beyond := db.StreetSegmentInfo(3)
		assert.Equal(t, names["node/6"], beyond.From)
		assert.NotEqual(t, names["node/5"], beyond.To, "the gate must not connect both sides")
		assert.Equal(t, db.IntersectionPosition(names["node/5"]), db.IntersectionPosition(beyond.To))
	})

	t.Run("driving directions", func(t *testing.T) {
		g := da.NewGraph(db)
		connected := func(a, b da.IntersectionIdx) bool {
			found := false
			g.ForOutEdgesOf(a, func(_ da.OutEdgeIdx, e da.OutEdge) {
				found = found || e.GetHead() == b
			})
			return found
		}
		assert.True(t, connected(names["node/1"], names["node/2"]))
		assert.True(t, connected(names["node/2"], names["node/1"]))
		assert.True(t, connected(names["node/5"], names["node/2"]))
		assert.False(t, connected(names["node/2"], names["node/5"]))
		assert.False(t, connected(names["node/1"], names["node/5"]), "footways are not streets")
	})

	t.Run("points of interest", func(t *testing.T) {
		require.Equal(t, 1, db.NumPointsOfInterest())
		assert.Equal(t, "Kopi Joss", db.POIName(0))
		assert.Equal(t, "cafe", db.POIType(0))
	})

	t.Run("features", func(t *testing.T) {
		require.Equal(t, 1, db.NumFeatures())
		assert.Equal(t, "Alun-alun", db.FeatureName(0))
		assert.Equal(t, "park", db.FeatureType(0))
		assert.Len(t, db.FeaturePoints(0), 5)
	})
}

func TestParseMaxSpeed(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  float64
		ok    bool
	}{
		{name: "bare number", value: "50", want: 50, ok: true},
		{name: "km/h", value: "60 km/h", want: 60, ok: true},
		{name: "mph", value: "30 mph", want: 30 * 1.60934, ok: true},
		{name: "knots", value: "20 knots", want: 20 * 1.852, ok: true},
		{name: "symbolic", value: "signals"},
		{name: "empty", value: ""},
		{name: "negative", value: "-5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseMaxSpeed(tc.value)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestRoadTypeMaxSpeed(t *testing.T) {
	assert.Equal(t, 100.0, roadTypeMaxSpeed("motorway"))
	assert.Equal(t, 5.0, roadTypeMaxSpeed("living_street"))
	assert.Equal(t, defaultMaxSpeed, roadTypeMaxSpeed("something_else"))
}

func TestFileScannerMissingFile(t *testing.T) {
	_, err := FileScanner("testdata/does-not-exist.osm")(context.Background())
	assert.Error(t, err)
}

func TestLoadMap(t *testing.T) {
	dir := t.TempDir()
	extract := filepath.Join(dir, "yogyakarta.osm")
	require.NoError(t, os.WriteFile(extract, []byte(testExtract), 0o644))

	parsed, err := LoadMap(context.Background(), extract, zap.NewNop())
	require.NoError(t, err)

	snapshot := filepath.Join(dir, "yogyakarta"+SnapshotSuffix)
	require.NoError(t, streetdb.WriteMapFile(snapshot, parsed))

	loaded, err := LoadMap(context.Background(), snapshot, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, parsed.NumIntersections(), loaded.NumIntersections())
	assert.Equal(t, parsed.NumStreetSegments(), loaded.NumStreetSegments())
	assert.Equal(t, parsed.StreetName(0), loaded.StreetName(0))
	assert.Equal(t, parsed.NumPointsOfInterest(), loaded.NumPointsOfInterest())
}
