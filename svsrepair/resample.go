package svsrepair

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/pspoerri/wsitile/geom"
)

// repairJPEGQuality is the fixed encode quality the spec names for SVS
// edge repair (§4.7 step 5).
const repairJPEGQuality = 95

// resampleFromParent builds a replacement tile for (lvl, p) by decoding
// the scale x scale block of tiles the parent (finer) level holds at
// p*scale, compositing them into one buffer, and bilinear-downsampling
// to lvl's tile size.
//
// This is the only place on a tile-serving path that decodes JPEG to
// pixels and re-encodes; the other decode paths are the decoded-tile
// accessors and GetAllTiles(false).
func (pyr *Pyramid) resampleFromParent(lvl, parent *Level, p geom.Point) ([]byte, error) {
	scale := 1 << uint(lvl.pyramidIdx-parent.pyramidIdx)
	if scale < 1 {
		scale = 1
	}

	composite := image.NewRGBA(image.Rect(0, 0, lvl.tileSize.W*scale, lvl.tileSize.H*scale))
	base := p.Mul(geom.Size{W: scale, H: scale})

	for dy := 0; dy < scale; dy++ {
		for dx := 0; dx < scale; dx++ {
			childPos := geom.Point{X: base.X + dx, Y: base.Y + dy}
			if childPos.X >= parent.tiledSize.W || childPos.Y >= parent.tiledSize.H {
				continue // partial block past the parent's own edge: leave black
			}
			childBytes, err := pyr.GetTile(lvl.parentIndex, childPos)
			if err != nil {
				return nil, err
			}
			childImg, err := jpeg.Decode(bytes.NewReader(childBytes))
			if err != nil {
				return nil, err
			}
			dstRect := image.Rect(dx*lvl.tileSize.W, dy*lvl.tileSize.H, (dx+1)*lvl.tileSize.W, (dy+1)*lvl.tileSize.H)
			draw.Draw(composite, dstRect, childImg, childImg.Bounds().Min, draw.Src)
		}
	}

	resampled := image.NewRGBA(image.Rect(0, 0, lvl.tileSize.W, lvl.tileSize.H))
	draw.BiLinear.Scale(resampled, resampled.Bounds(), composite, composite.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, resampled, &jpeg.Options{Quality: repairJPEGQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
