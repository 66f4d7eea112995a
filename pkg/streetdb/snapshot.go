package streetdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/util"
)

const snapshotHeader = "streetmap-snapshot 1"

// WriteMapFile stores db as a bzip2 compressed text snapshot. Names are written as Go quoted strings so a
// line always holds exactly one record.
func WriteMapFile(filename string, db da.MapDatabase) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	if err := WriteMap(bz, db); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

// WriteMap writes the uncompressed snapshot of db to w.
func WriteMap(out io.Writer, db da.MapDatabase) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "%s\n", snapshotHeader)
	fmt.Fprintf(w, "%d %d %d %d %d\n", db.NumIntersections(), db.NumStreetSegments(), db.NumStreets(),
		db.NumPointsOfInterest(), db.NumFeatures())

	for i := 0; i < db.NumIntersections(); i++ {
		id := da.IntersectionIdx(i)
		fmt.Fprintf(w, "%s %s\n", formatCoord(db.IntersectionPosition(id)), strconv.Quote(db.IntersectionName(id)))
	}

	for i := 0; i < db.NumStreetSegments(); i++ {
		info := db.StreetSegmentInfo(da.StreetSegmentIdx(i))
		fmt.Fprintf(w, "%d %d %t %s %d %d", info.From, info.To, info.OneWay,
			strconv.FormatFloat(info.SpeedLimit, 'f', -1, 64), info.StreetID, len(info.CurvePoints))
		for _, p := range info.CurvePoints {
			fmt.Fprintf(w, " %s", formatCoord(p))
		}
		fmt.Fprintf(w, "\n")
	}

	for i := 0; i < db.NumStreets(); i++ {
		fmt.Fprintf(w, "%s\n", strconv.Quote(db.StreetName(da.StreetIdx(i))))
	}

	for i := 0; i < db.NumPointsOfInterest(); i++ {
		id := da.POIIdx(i)
		fmt.Fprintf(w, "%s %s %s\n", formatCoord(db.POIPosition(id)), strconv.Quote(db.POIName(id)),
			strconv.Quote(db.POIType(id)))
	}

	for i := 0; i < db.NumFeatures(); i++ {
		id := da.FeatureIdx(i)
		points := db.FeaturePoints(id)
		fmt.Fprintf(w, "%s %s %d", strconv.Quote(db.FeatureName(id)), strconv.Quote(db.FeatureType(id)), len(points))
		for _, p := range points {
			fmt.Fprintf(w, " %s", formatCoord(p))
		}
		fmt.Fprintf(w, "\n")
	}

	return w.Flush()
}

func formatCoord(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + " " + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// ReadMapFile loads a snapshot written by WriteMapFile.
func ReadMapFile(filename string) (*MemoryDatabase, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrNotFound, "open map snapshot %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return ReadMap(bz)
}

type snapshotReader struct {
	br     *bufio.Reader
	lineNo int
}

func (r *snapshotReader) next() ([]string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("map snapshot truncated at line %d", r.lineNo+1)
		}
		return nil, err
	}
	r.lineNo++
	tokens, err := splitFields(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return nil, fmt.Errorf("map snapshot line %d: %w", r.lineNo, err)
	}
	return tokens, nil
}

func (r *snapshotReader) errorf(format string, a ...interface{}) error {
	return util.WrapErrorf(nil, util.ErrBadParamInput, "map snapshot line %d: %s", r.lineNo, fmt.Sprintf(format, a...))
}

// ReadMap parses an uncompressed snapshot.
func ReadMap(in io.Reader) (*MemoryDatabase, error) {
	r := &snapshotReader{br: bufio.NewReaderSize(in, 1<<16)}

	tokens, err := r.next()
	if err != nil {
		return nil, err
	}
	if strings.Join(tokens, " ") != snapshotHeader {
		return nil, r.errorf("not a street map snapshot")
	}

	tokens, err = r.next()
	if err != nil {
		return nil, err
	}
	if len(tokens) != 5 {
		return nil, r.errorf("expected 5 counts, got %d", len(tokens))
	}
	counts := make([]int, 5)
	for i, tok := range tokens {
		if counts[i], err = strconv.Atoi(tok); err != nil || counts[i] < 0 {
			return nil, r.errorf("bad count %q", tok)
		}
	}
	numIntersections, numSegments, numStreets, numPOIs, numFeatures :=
		counts[0], counts[1], counts[2], counts[3], counts[4]

	db := NewMemoryDatabase()
	for i := 0; i < numIntersections; i++ {
		tokens, err := r.next()
		if err != nil {
			return nil, err
		}
		if len(tokens) != 3 {
			return nil, r.errorf("intersection needs 3 fields, got %d", len(tokens))
		}
		pos, err := parseCoord(tokens[0], tokens[1])
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		db.AddIntersection(tokens[2], pos)
	}

	segments := make([]da.StreetSegmentInfo, 0, numSegments)
	for i := 0; i < numSegments; i++ {
		tokens, err := r.next()
		if err != nil {
			return nil, err
		}
		info, err := parseSegment(tokens)
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		segments = append(segments, info)
	}

	for i := 0; i < numStreets; i++ {
		tokens, err := r.next()
		if err != nil {
			return nil, err
		}
		if len(tokens) != 1 {
			return nil, r.errorf("street needs 1 field, got %d", len(tokens))
		}
		db.AddStreet(tokens[0])
	}

	// streets come after segments in the file but must exist before segments are registered
	for _, info := range segments {
		if _, err := db.AddStreetSegment(info); err != nil {
			return nil, err
		}
	}

	for i := 0; i < numPOIs; i++ {
		tokens, err := r.next()
		if err != nil {
			return nil, err
		}
		if len(tokens) != 4 {
			return nil, r.errorf("point of interest needs 4 fields, got %d", len(tokens))
		}
		pos, err := parseCoord(tokens[0], tokens[1])
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		db.AddPointOfInterest(tokens[2], tokens[3], pos)
	}

	for i := 0; i < numFeatures; i++ {
		tokens, err := r.next()
		if err != nil {
			return nil, err
		}
		if len(tokens) < 3 {
			return nil, r.errorf("feature needs at least 3 fields, got %d", len(tokens))
		}
		points, err := parseCoords(tokens[2], tokens[3:])
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		db.AddFeature(tokens[0], tokens[1], points)
	}

	return db, nil
}

func parseSegment(tokens []string) (da.StreetSegmentInfo, error) {
	if len(tokens) < 6 {
		return da.StreetSegmentInfo{}, fmt.Errorf("street segment needs at least 6 fields, got %d", len(tokens))
	}
	from, err := strconv.ParseInt(tokens[0], 10, 32)
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	to, err := strconv.ParseInt(tokens[1], 10, 32)
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	oneWay, err := strconv.ParseBool(tokens[2])
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	speed, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	street, err := strconv.ParseInt(tokens[4], 10, 32)
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	curve, err := parseCoords(tokens[5], tokens[6:])
	if err != nil {
		return da.StreetSegmentInfo{}, err
	}
	return da.StreetSegmentInfo{
		From:        da.IntersectionIdx(from),
		To:          da.IntersectionIdx(to),
		OneWay:      oneWay,
		SpeedLimit:  speed,
		StreetID:    da.StreetIdx(street),
		CurvePoints: curve,
	}, nil
}

func parseCoords(count string, tokens []string) ([]geo.Coordinate, error) {
	n, err := strconv.Atoi(count)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad point count %q", count)
	}
	if len(tokens) != 2*n {
		return nil, fmt.Errorf("expected %d coordinates, got %d values", n, len(tokens))
	}
	points := make([]geo.Coordinate, n)
	for i := 0; i < n; i++ {
		if points[i], err = parseCoord(tokens[2*i], tokens[2*i+1]); err != nil {
			return nil, err
		}
	}
	return points, nil
}

func parseCoord(lat, lon string) (geo.Coordinate, error) {
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lonF, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.NewCoordinate(latF, lonF), nil
}

// splitFields splits line on spaces, keeping Go quoted strings as single unquoted tokens.
func splitFields(line string) ([]string, error) {
	tokens := make([]string, 0, 8)
	for {
		line = strings.TrimLeft(line, " ")
		if line == "" {
			return tokens, nil
		}
		if line[0] == '"' {
			quoted, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, err
			}
			s, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, s)
			line = line[len(quoted):]
			continue
		}
		end := strings.IndexByte(line, ' ')
		if end < 0 {
			end = len(line)
		}
		tokens = append(tokens, line[:end])
		line = line[end:]
	}
}
