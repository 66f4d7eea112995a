package landmark

import (
	"math"
	"path/filepath"
	"testing"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

const oneMeterDeg = 1 / (geo.EarthRadiusMeters * geo.DegreeToRadian)

func randomGraph(t *testing.T, rng *rand.Rand, n, m int) *da.Graph {
	db := streetdb.NewMemoryDatabase()
	for i := 0; i < n; i++ {
		db.AddIntersection("", geo.NewCoordinate(rng.Float64()*300*oneMeterDeg, rng.Float64()*300*oneMeterDeg))
	}
	street := db.AddStreet("")
	for i := 0; i < m; i++ {
		from := da.IntersectionIdx(rng.Intn(n))
		to := (from + 1 + da.IntersectionIdx(rng.Intn(n-1))) % da.IntersectionIdx(n)
		_, err := db.AddStreetSegment(da.StreetSegmentInfo{
			From: from, To: to, StreetID: street, SpeedLimit: 5 + rng.Float64()*10, OneWay: rng.Intn(3) == 0,
		})
		require.NoError(t, err)
	}
	return da.NewGraph(db)
}

func TestLowerBoundIsAdmissible(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := randomGraph(t, rng, 30, 60)

	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(g, 6, zap.NewNop()))
	require.NotEmpty(t, lm.Landmarks())

	for s := 0; s < g.NumberOfVertices(); s++ {
		exact := travelTimes(g, da.IntersectionIdx(s), false)
		for v := 0; v < g.NumberOfVertices(); v++ {
			lb := lm.LowerBound(da.IntersectionIdx(s), da.IntersectionIdx(v))
			assert.GreaterOrEqual(t, lb, 0.0)
			if !math.IsInf(exact[v], 1) {
				assert.LessOrEqual(t, lb, exact[v]+1e-9, "%d->%d", s, v)
			}
		}
	}

	// the bound is exact towards a landmark reached along a shortest path
	l := lm.Landmarks()[0]
	for v := 0; v < g.NumberOfVertices(); v++ {
		d := lm.vlw[0][v]
		if !math.IsInf(d, 1) && !math.IsInf(lm.lw[0][v], 1) {
			assert.InDelta(t, d, lm.LowerBound(da.IntersectionIdx(v), l), 1e-9)
		}
	}
}

func TestTravelTimesReverse(t *testing.T) {
	db := streetdb.NewMemoryDatabase()
	a := db.AddIntersection("a", geo.NewCoordinate(0, 0))
	b := db.AddIntersection("b", geo.NewCoordinate(0, 10*oneMeterDeg))
	c := db.AddIntersection("c", geo.NewCoordinate(0, 20*oneMeterDeg))
	street := db.AddStreet("s")
	for _, s := range []da.StreetSegmentInfo{
		{From: a, To: b, StreetID: street, SpeedLimit: 10, OneWay: true},
		{From: b, To: c, StreetID: street, SpeedLimit: 5, OneWay: true},
	} {
		_, err := db.AddStreetSegment(s)
		require.NoError(t, err)
	}
	g := da.NewGraph(db)

	forward := travelTimes(g, a, false)
	assert.InDelta(t, 0, forward[a], 1e-9)
	assert.InDelta(t, 1, forward[b], 1e-6)
	assert.InDelta(t, 3, forward[c], 1e-6)

	backward := travelTimes(g, c, true)
	assert.InDelta(t, 3, backward[a], 1e-6)
	assert.InDelta(t, 2, backward[b], 1e-6)

	fromB := travelTimes(g, b, false)
	assert.True(t, math.IsInf(fromB[a], 1))
}

func TestSelectLandmarks(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := randomGraph(t, rng, 40, 90)

	landmarks := SelectLandmarks(g, 4)
	assert.NotEmpty(t, landmarks)
	assert.LessOrEqual(t, len(landmarks), 5)

	components, count := g.StronglyConnectedComponents()
	largest := da.LargestComponent(components, count)
	seen := map[da.IntersectionIdx]bool{}
	for _, l := range landmarks {
		assert.False(t, seen[l], "duplicate landmark %d", l)
		seen[l] = true
		assert.Equal(t, components[largest[0]], components[l])
	}

	assert.Empty(t, SelectLandmarks(da.NewGraph(streetdb.NewMemoryDatabase()), 4))
}

func TestPreprocessALTTooManyLandmarks(t *testing.T) {
	g := da.NewGraph(streetdb.NewMemoryDatabase())
	assert.Error(t, NewLandmark().PreprocessALT(g, MaxLandmarks+1, zap.NewNop()))
}

func TestLandmarkFileRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	g := randomGraph(t, rng, 12, 20)

	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(g, 3, zap.NewNop()))

	filename := filepath.Join(t.TempDir(), "landmarks.txt.bz2")
	require.NoError(t, lm.WriteLandmark(filename))

	read, err := ReadLandmark(filename)
	require.NoError(t, err)
	assert.Equal(t, lm.landmarks, read.landmarks)
	assert.Equal(t, lm.lw, read.lw)
	assert.Equal(t, lm.vlw, read.vlw)
	assert.Equal(t, 12, read.NumIntersections())

	_, err = ReadLandmark(filepath.Join(t.TempDir(), "missing.bz2"))
	assert.Error(t, err)
}
