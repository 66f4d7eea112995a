package streetdb

import (
	"errors"
	"testing"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDatabaseSegments(t *testing.T) {
	db := NewMemoryDatabase()
	a := db.AddIntersection("a", geo.NewCoordinate(0, 0))
	b := db.AddIntersection("b", geo.NewCoordinate(0, 0.001))
	mainSt := db.AddStreet("Main Street")

	ab, err := db.AddStreetSegment(da.StreetSegmentInfo{From: a, To: b, StreetID: mainSt, SpeedLimit: 10})
	require.NoError(t, err)
	loop, err := db.AddStreetSegment(da.StreetSegmentInfo{From: b, To: b, StreetID: mainSt, SpeedLimit: 10,
		CurvePoints: []geo.Coordinate{geo.NewCoordinate(0.001, 0.001), geo.NewCoordinate(0.001, 0.002)}})
	require.NoError(t, err)

	assert.Equal(t, 2, db.NumIntersections())
	assert.Equal(t, 2, db.NumStreetSegments())
	assert.Equal(t, []da.StreetSegmentIdx{ab}, db.IntersectionStreetSegments(a))
	assert.Equal(t, []da.StreetSegmentIdx{ab, loop}, db.IntersectionStreetSegments(b))
	assert.Equal(t, "Main Street", db.StreetName(db.StreetSegmentInfo(ab).StreetID))
	assert.Equal(t, "b", db.IntersectionName(b))
}

func TestMemoryDatabaseRejectsBadSegments(t *testing.T) {
	db := NewMemoryDatabase()
	a := db.AddIntersection("a", geo.NewCoordinate(0, 0))
	street := db.AddStreet("x")

	testCases := []struct {
		name string
		info da.StreetSegmentInfo
	}{
		{name: "unknown to", info: da.StreetSegmentInfo{From: a, To: 5, StreetID: street}},
		{name: "negative from", info: da.StreetSegmentInfo{From: -1, To: a, StreetID: street}},
		{name: "unknown street", info: da.StreetSegmentInfo{From: a, To: a, StreetID: 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := db.AddStreetSegment(tc.info)
			require.Error(t, err)
			assert.Equal(t, da.INVALID_EDGE_ID, id)

			var uerr *util.Error
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, util.ErrBadParamInput, uerr.Code())
		})
	}
	assert.Equal(t, 0, db.NumStreetSegments())
}

func TestMemoryDatabasePOIAndFeatures(t *testing.T) {
	db := NewMemoryDatabase()
	p := db.AddPointOfInterest("Tim Hortons", "cafe", geo.NewCoordinate(1, 2))
	f := db.AddFeature("Pond", "water", []geo.Coordinate{geo.NewCoordinate(0, 0)})

	assert.Equal(t, 1, db.NumPointsOfInterest())
	assert.Equal(t, "Tim Hortons", db.POIName(p))
	assert.Equal(t, "cafe", db.POIType(p))
	assert.Equal(t, geo.NewCoordinate(1, 2), db.POIPosition(p))

	assert.Equal(t, 1, db.NumFeatures())
	assert.Equal(t, "Pond", db.FeatureName(f))
	assert.Equal(t, "water", db.FeatureType(f))
	assert.Len(t, db.FeaturePoints(f), 1)
}
