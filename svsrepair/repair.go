package svsrepair

import (
	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/lockfile"
	"github.com/pspoerri/wsitile/jpegcrop"
	"github.com/pspoerri/wsitile/jpegheader"
	"github.com/pspoerri/wsitile/tiffmodel"
	"github.com/pspoerri/wsitile/wsierr"
)

// blankTileLuminance is the fill value for the per-image sparse-tile
// substitute (§7 SparseFrame: "fill_whole_image at white").
const blankTileLuminance = 255

// GetTile returns the tile at (level, p): a normal read with tables
// spliced in, the repaired replacement if p sits on a corrupt edge with a
// zero bytecount (§4.7), or the per-image blank tile if p has a zero
// bytecount but isn't a detected corrupt edge (§7 SparseFrame — recovered
// locally, never surfaced to the caller).
func (pyr *Pyramid) GetTile(level int, p geom.Point) ([]byte, error) {
	if level < 0 || level >= len(pyr.levels) {
		return nil, &wsierr.OutOfBounds{Position: p, Bound: geom.Size{W: len(pyr.levels), H: 1}}
	}
	lvl := pyr.levels[level]
	if p.X < 0 || p.Y < 0 || p.X >= lvl.tiledSize.W || p.Y >= lvl.tiledSize.H {
		return nil, &wsierr.OutOfBounds{Position: p, Bound: lvl.tiledSize}
	}

	bytecounts := lvl.tiff.Bytecounts()
	offsets := lvl.tiff.Offsets()
	idx := p.Y*lvl.tiledSize.W + p.X
	if idx >= len(offsets) || idx >= len(bytecounts) {
		return nil, &wsierr.JpegStructureError{Op: "svs_get_tile", Missing: "tile index in range"}
	}

	if bytecounts[idx] == 0 {
		if lvl.isCorruptEdge(p) {
			return pyr.getOrBuildFixedTile(level, p)
		}
		return pyr.getOrBuildBlankTile(lvl)
	}

	return pyr.readPlainTile(lvl, int64(offsets[idx]), int(bytecounts[idx]))
}

// readPlainTile reads one natively-tiled SVS tile and splices in the
// page's jpeg_tables, adding the Adobe RGB fix when the page's
// photometric interpretation calls for it (C2).
func (pyr *Pyramid) readPlainTile(lvl *Level, offset int64, length int) ([]byte, error) {
	buf, err := lvl.handle.Read(lockfile.Range{Offset: offset, Length: length})
	if err != nil {
		return nil, err
	}
	if tables := lvl.tiff.JPEGTables(); tables != nil {
		buf, err = jpegheader.SpliceTables(buf, tables)
		if err != nil {
			return nil, err
		}
	}
	if lvl.tiff.Photometric() == tiffmodel.PhotometricRGB {
		buf, err = jpegheader.AddRGBColorspaceFix(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// getOrBuildBlankTile returns lvl's cached sparse-tile substitute,
// building it on first request.
func (pyr *Pyramid) getOrBuildBlankTile(lvl *Level) ([]byte, error) {
	lvl.blankMu.Lock()
	defer lvl.blankMu.Unlock()
	if lvl.blankTile != nil {
		return lvl.blankTile, nil
	}
	buf, err := pyr.buildBlankTile(lvl)
	if err != nil {
		return nil, err
	}
	lvl.blankTile = buf
	return buf, nil
}

// buildBlankTile implements §7 SparseFrame's recovery recipe: take the
// first non-empty frame on this level, splice in tables (and the RGB fix,
// same as any other plain read), then blank every MCU to white via the
// whole-image DCT fill (C5).
func (pyr *Pyramid) buildBlankTile(lvl *Level) ([]byte, error) {
	offsets := lvl.tiff.Offsets()
	bytecounts := lvl.tiff.Bytecounts()
	for i, bc := range bytecounts {
		if bc == 0 {
			continue
		}
		frame, err := pyr.readPlainTile(lvl, int64(offsets[i]), int(bc))
		if err != nil {
			return nil, err
		}
		return jpegcrop.FillWholeImage(frame, lvl.tileSize, blankTileLuminance)
	}
	return nil, &wsierr.SparseFrame{Index: -1}
}

// getOrBuildFixedTile returns the cached repaired tile at (level, p),
// building it on first request.
func (pyr *Pyramid) getOrBuildFixedTile(level int, p geom.Point) ([]byte, error) {
	lvl := pyr.levels[level]

	lvl.fixedMu.Lock()
	if buf, ok := lvl.fixedTiles[p]; ok {
		lvl.fixedMu.Unlock()
		return buf, nil
	}
	lvl.fixedMu.Unlock()

	if lvl.parentIndex < 0 {
		return nil, &wsierr.EdgeCorruption{Position: p, Level: level, MissingLevel: -1}
	}
	parent := pyr.levels[lvl.parentIndex]

	buf, err := pyr.resampleFromParent(lvl, parent, p)
	if err != nil {
		return nil, err
	}

	lvl.fixedMu.Lock()
	lvl.fixedTiles[p] = buf
	lvl.fixedMu.Unlock()

	pyr.metrics.ObserveSVSRepair()
	return buf, nil
}
