package landmark

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const MaxLandmarks = 64

// Landmark holds the travel times between a few landmark intersections and every intersection, giving
// A* a triangle inequality lower bound on the remaining travel time (ALT).
type Landmark struct {
	lw        [][]float64 // lw[i][v]: travel time from landmark i to v
	vlw       [][]float64 // vlw[i][v]: travel time from v to landmark i
	landmarks []da.IntersectionIdx
}

func NewLandmark() *Landmark {
	return &Landmark{}
}

func (lm *Landmark) Landmarks() []da.IntersectionIdx {
	return lm.landmarks
}

// NumIntersections is the size of the graph the travel times were computed on.
func (lm *Landmark) NumIntersections() int {
	if len(lm.lw) == 0 {
		return 0
	}
	return len(lm.lw[0])
}

/*
planar landmark selection, section 7 of:
Goldberg, A.V. and Harrelson, C. (2005) 'Computing the shortest path: A search meets graph theory', SODA '05,
pp. 156-165.

the bounding box is cut into k sectors around its center and the intersection furthest along each sector
direction becomes a landmark, plus the intersection closest to the center. Only intersections of the
largest strongly connected component are used so that every landmark reaches most of the map.
*/
func SelectLandmarks(g *da.Graph, k int) []da.IntersectionIdx {
	components, count := g.StronglyConnectedComponents()
	candidates := da.LargestComponent(components, count)
	if len(candidates) == 0 || k <= 0 {
		return []da.IntersectionIdx{}
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, v := range candidates {
		c := g.GetVertexCoordinate(v)
		minLat, maxLat = math.Min(minLat, c.Lat), math.Max(maxLat, c.Lat)
		minLon, maxLon = math.Min(minLon, c.Lon), math.Max(maxLon, c.Lon)
	}
	centerLat := (minLat + maxLat) / 2
	centerLon := (minLon + maxLon) / 2

	seen := make(map[da.IntersectionIdx]struct{}, k+1)
	landmarks := make([]da.IntersectionIdx, 0, k+1)
	add := func(v da.IntersectionIdx) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		landmarks = append(landmarks, v)
	}

	thetaDif := 360.0 / float64(k)
	for i := 0; i < k; i++ {
		thetaRad := util.DegreeToRadians(thetaDif * float64(i))
		sint, cost := math.Sin(thetaRad), math.Cos(thetaRad)

		best, bestProj := candidates[0], math.Inf(-1)
		for _, v := range candidates {
			c := g.GetVertexCoordinate(v)
			if proj := (c.Lon-centerLon)*cost + (c.Lat-centerLat)*sint; proj > bestProj {
				best, bestProj = v, proj
			}
		}
		add(best)
	}

	mid, minMidDist := candidates[0], math.Inf(1)
	for _, v := range candidates {
		c := g.GetVertexCoordinate(v)
		if d := math.Hypot(c.Lat-centerLat, c.Lon-centerLon); d < minMidDist {
			mid, minMidDist = v, d
		}
	}
	add(mid)

	return landmarks
}

/*
preprocessing phase of A*, landmarks and triangle inequality (ALT):
one forward and one backward Dijkstra per landmark, O((n+m) log n * k).
*/
func (lm *Landmark) PreprocessALT(g *da.Graph, k int, logger *zap.Logger) error {
	if k > MaxLandmarks {
		return fmt.Errorf("too many landmarks: %d, the maximum is %d", k, MaxLandmarks)
	}
	logger.Info("computing landmarks", zap.Int("k", k))

	lm.landmarks = SelectLandmarks(g, k)
	lm.lw = make([][]float64, len(lm.landmarks))
	lm.vlw = make([][]float64, len(lm.landmarks))

	var eg errgroup.Group
	for i, l := range lm.landmarks {
		i, l := i, l
		eg.Go(func() error {
			lm.lw[i] = travelTimes(g, l, false)
			return nil
		})
		eg.Go(func() error {
			lm.vlw[i] = travelTimes(g, l, true)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logger.Info("done computing landmarks", zap.Int("landmarks", len(lm.landmarks)))
	return nil
}

/*
tightest triangle inequality lower bound on the travel time from u to t, section 6 of Goldberg and
Harrelson (2005):

	d(u,t) >= d(u,L) - d(t,L)
	d(u,t) >= d(L,t) - d(L,u)

landmarks that can not reach or be reached from u or t give no bound. The result is clamped at zero.
*/
func (lm *Landmark) LowerBound(u, t da.IntersectionIdx) float64 {
	best := 0.0
	for i := range lm.landmarks {
		if math.IsInf(lm.vlw[i][u], 1) || math.IsInf(lm.lw[i][t], 1) ||
			math.IsInf(lm.vlw[i][t], 1) || math.IsInf(lm.lw[i][u], 1) {
			continue
		}
		best = math.Max(best, lm.vlw[i][u]-lm.vlw[i][t])
		best = math.Max(best, lm.lw[i][t]-lm.lw[i][u])
	}
	return best
}

// WriteLandmark stores the landmark travel times as bzip2 compressed text.
func (lm *Landmark) WriteLandmark(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)
	fmt.Fprintf(w, "%d %d\n", len(lm.landmarks), lm.NumIntersections())

	writeRow := func(row []float64) {
		for v, d := range row {
			if v > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(d, 'f', -1, 64))
		}
		w.WriteByte('\n')
	}
	for i, l := range lm.landmarks {
		fmt.Fprintf(w, "%d\n", l)
		writeRow(lm.lw[i])
		writeRow(lm.vlw[i])
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return bz.Close()
}

func ReadLandmark(filename string) (*Landmark, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrNotFound, "open landmark file %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()
	br := bufio.NewReader(bz)

	header, err := readFields(br)
	if err != nil {
		return nil, err
	}
	if len(header) != 2 {
		return nil, errors.New("landmark file: malformed header")
	}
	k, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("landmark file: %w", err)
	}
	n, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("landmark file: %w", err)
	}
	if k < 0 || k > MaxLandmarks || n < 0 {
		return nil, fmt.Errorf("landmark file: bad header %d %d", k, n)
	}

	lm := &Landmark{
		landmarks: make([]da.IntersectionIdx, k),
		lw:        make([][]float64, k),
		vlw:       make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		ff, err := readFields(br)
		if err != nil {
			return nil, err
		}
		if len(ff) != 1 {
			return nil, fmt.Errorf("landmark file: expected landmark id, got %d fields", len(ff))
		}
		id, err := strconv.ParseInt(ff[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("landmark file: %w", err)
		}
		lm.landmarks[i] = da.IntersectionIdx(id)

		if lm.lw[i], err = readRow(br, n); err != nil {
			return nil, err
		}
		if lm.vlw[i], err = readRow(br, n); err != nil {
			return nil, err
		}
	}
	return lm, nil
}

func readFields(br *bufio.Reader) ([]string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, fmt.Errorf("landmark file: %w", err)
	}
	return strings.Fields(line), nil
}

func readRow(br *bufio.Reader, n int) ([]float64, error) {
	ff, err := readFields(br)
	if err != nil {
		return nil, err
	}
	if len(ff) != n {
		return nil, fmt.Errorf("landmark file: expected %d travel times, got %d", n, len(ff))
	}
	row := make([]float64, n)
	for v, s := range ff {
		if row[v], err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("landmark file: %w", err)
		}
	}
	return row, nil
}
