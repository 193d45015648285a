// Package tiffmodel models the external TIFF-reader contract: the
// immutable per-image geometry, offsets/bytecounts arrays, and embedded
// JPEG header/tables blobs that the NDPI and SVS synthesizers consume.
// Parsing the TIFF directory itself is out of scope (spec.md §1 assigns
// it to an external collaborator); this package only describes the shape
// that collaborator must hand back.
package tiffmodel

import "github.com/pspoerri/wsitile/geom"

// Compression enumerates the TIFF compression tags this module cares
// about. Only JPEG is synthesized; everything else is surfaced so a
// caller can reject it with wsierr.UnsupportedCompression before reaching
// the synthesis path.
type Compression int

const (
	CompressionUnknown Compression = iota
	CompressionJPEG
	CompressionLZW
	CompressionJPEG2000
)

func (c Compression) String() string {
	switch c {
	case CompressionJPEG:
		return "JPEG"
	case CompressionLZW:
		return "LZW"
	case CompressionJPEG2000:
		return "JPEG2000"
	default:
		return "unknown"
	}
}

// PhotometricInterpretation records whether pixel data is stored as
// YCbCr (the common JPEG default) or RGB (requiring the Adobe APP14 fix
// when spliced into an interchange stream, per §4.2/§6).
type PhotometricInterpretation int

const (
	PhotometricYCbCr PhotometricInterpretation = iota
	PhotometricRGB
)

// Subsampling is the JPEG chroma subsampling factor pair (h, v) as it
// appears in SOF0 component sampling factors: (1,1), (2,1), or (2,2).
type Subsampling struct {
	H, V int
}

// MCUSize derives the pixel dimensions of one Minimum Coded Unit from a
// subsampling factor. Unrecognized factors are the caller's
// wsierr.UnsupportedCompression to raise; this helper just reports zero.
func (s Subsampling) MCUSize() geom.Size {
	switch s {
	case Subsampling{1, 1}:
		return geom.Size{W: 8, H: 8}
	case Subsampling{2, 1}:
		return geom.Size{W: 16, H: 8}
	case Subsampling{2, 2}:
		return geom.Size{W: 16, H: 16}
	default:
		return geom.Size{}
	}
}

// Valid reports whether s is one of the three subsampling factors this
// module's JPEG-domain machinery understands.
func (s Subsampling) Valid() bool {
	return s.MCUSize() != (geom.Size{})
}

// PageKind distinguishes the role a pyramid page plays in a multi-series
// scanner file (volume data vs. auxiliary label/overview/macro images),
// mirroring the page-kind dispatch a real vendor-format reader performs
// before handing pages to this module. This package only threads the
// value through; classifying pages is out of scope.
type PageKind int

const (
	PageKindVolume PageKind = iota
	PageKindOverview
	PageKindLabel
	PageKindMacro
)

// TiffImage is the read-only contract the external TIFF reader provides
// for one pyramid page. All fields are immutable for the page's lifetime.
type TiffImage interface {
	ImageSize() geom.Size
	TileSize() geom.Size // zero Size means "untiled" (NDPI striped/one-frame)
	StripeSize() geom.Size
	StripedSize() geom.Size

	Offsets() []uint64
	Bytecounts() []uint64

	JPEGHeader() []byte // present for NDPI striped pages
	JPEGTables() []byte // present for natively tiled pages

	Compression() Compression
	Photometric() PhotometricInterpretation
	Subsampling() Subsampling
	SamplesPerPixel() int
	BitDepth() int

	PyramidIndex() int
	Kind() PageKind
	MPP() (x, y float64, ok bool)
	OpticalPath() string
	FocalPlane() int
}

// TiledSize returns ceil(ImageSize/TileSize), or a zero Size for an
// untiled page.
func TiledSize(img TiffImage) geom.Size {
	ts := img.TileSize()
	if ts.IsZero() {
		return geom.Size{}
	}
	return img.ImageSize().CeilDiv(ts)
}

// StaticImage is a concrete, directly-populated TiffImage for tests and
// for simple in-memory callers that have already parsed a TIFF directory
// and just want to hand geometry + byte slices to this module.
type StaticImage struct {
	Size           geom.Size
	Tile           geom.Size
	Stripe         geom.Size
	Striped        geom.Size
	OffsetsField   []uint64
	BytecountsField []uint64
	Header         []byte
	Tables         []byte
	CompressionVal Compression
	PhotometricVal PhotometricInterpretation
	SubsamplingVal Subsampling
	SamplesPerPx   int
	BitDepthVal    int
	PyramidIdx     int
	KindVal        PageKind
	MPPX, MPPY     float64
	HasMPP         bool
	OpticalPathVal string
	FocalPlaneVal  int
}

func (s *StaticImage) ImageSize() geom.Size                 { return s.Size }
func (s *StaticImage) TileSize() geom.Size                  { return s.Tile }
func (s *StaticImage) StripeSize() geom.Size                { return s.Stripe }
func (s *StaticImage) StripedSize() geom.Size               { return s.Striped }
func (s *StaticImage) Offsets() []uint64                    { return s.OffsetsField }
func (s *StaticImage) Bytecounts() []uint64                 { return s.BytecountsField }
func (s *StaticImage) JPEGHeader() []byte                   { return s.Header }
func (s *StaticImage) JPEGTables() []byte                   { return s.Tables }
func (s *StaticImage) Compression() Compression             { return s.CompressionVal }
func (s *StaticImage) Photometric() PhotometricInterpretation { return s.PhotometricVal }
func (s *StaticImage) Subsampling() Subsampling             { return s.SubsamplingVal }
func (s *StaticImage) SamplesPerPixel() int                 { return s.SamplesPerPx }
func (s *StaticImage) BitDepth() int                        { return s.BitDepthVal }
func (s *StaticImage) PyramidIndex() int                    { return s.PyramidIdx }
func (s *StaticImage) Kind() PageKind                       { return s.KindVal }
func (s *StaticImage) OpticalPath() string                  { return s.OpticalPathVal }
func (s *StaticImage) FocalPlane() int                      { return s.FocalPlaneVal }
func (s *StaticImage) MPP() (x, y float64, ok bool) {
	return s.MPPX, s.MPPY, s.HasMPP
}
