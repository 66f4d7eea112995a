package osmparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

// Scanner is implemented by osmpbf.Scanner and osmxml.Scanner.
type Scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// ScannerFactory opens a fresh scanner over the same extract every time it is called.
type ScannerFactory func(ctx context.Context) (Scanner, error)

type fileScanner struct {
	Scanner
	closers []io.Closer
}

func (fs *fileScanner) Close() error {
	err := fs.Scanner.Close()
	for i := len(fs.closers) - 1; i >= 0; i-- {
		if cerr := fs.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// FileScanner opens .osm.pbf, .osm / .xml and bzip2 compressed .osm.bz2 extracts.
func FileScanner(mapFile string) ScannerFactory {
	return func(ctx context.Context) (Scanner, error) {
		f, err := os.Open(mapFile)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrNotFound, "open map file %s", mapFile)
		}

		switch {
		case strings.HasSuffix(mapFile, ".pbf"):
			return &fileScanner{Scanner: osmpbf.New(ctx, f, runtime.GOMAXPROCS(0)), closers: []io.Closer{f}}, nil
		case strings.HasSuffix(mapFile, ".bz2"):
			bz, err := bzip2.NewReader(f, nil)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("open bzip2 stream %s: %w", mapFile, err)
			}
			return &fileScanner{Scanner: osmxml.New(ctx, bz), closers: []io.Closer{f, bz}}, nil
		case strings.HasSuffix(mapFile, ".osm"), strings.HasSuffix(mapFile, ".xml"):
			return &fileScanner{Scanner: osmxml.New(ctx, f), closers: []io.Closer{f}}, nil
		default:
			f.Close()
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unsupported map file format: %s", mapFile)
		}
	}
}

// XMLScanner scans an in-memory OSM XML document.
func XMLScanner(data []byte) ScannerFactory {
	return func(ctx context.Context) (Scanner, error) {
		return osmxml.New(ctx, bytes.NewReader(data)), nil
	}
}

// SnapshotSuffix marks map files written by streetdb.WriteMapFile.
const SnapshotSuffix = ".streetmap.bz2"

// LoadMap reads a snapshot when mapFile ends in SnapshotSuffix and parses an openstreetmap extract
// otherwise.
func LoadMap(ctx context.Context, mapFile string, logger *zap.Logger) (*streetdb.MemoryDatabase, error) {
	if strings.HasSuffix(mapFile, SnapshotSuffix) {
		logger.Info("reading street map snapshot", zap.String("file", mapFile))
		return streetdb.ReadMapFile(mapFile)
	}
	return ParseFile(ctx, mapFile, logger)
}

// ParseFile is NewOSMParser(logger).Parse(ctx, FileScanner(mapFile)).
func ParseFile(ctx context.Context, mapFile string, logger *zap.Logger) (*streetdb.MemoryDatabase, error) {
	logger.Info("parsing openstreetmap extract", zap.String("file", mapFile))
	return NewOSMParser(logger).Parse(ctx, FileScanner(mapFile))
}
