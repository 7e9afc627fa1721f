// Package curve converts projected 3D points into scalar locality keys.
//
// A key is built by quantizing each coordinate to a fixed number of bits and
// interleaving the bits of the three quantized coordinates (Morton order, a
// recursive space-filling curve). Points close in 3D space tend to receive
// numerically close keys. The property is probabilistic, not exact: curve
// boundaries scatter some neighbors, which the query engine corrects during
// exact re-ranking.
package curve

import (
	"fmt"

	"github.com/hupe1980/trigo/projection"
)

// Key is a scalar locality key. With the default configuration it uses
// 63 bits: 21 per coordinate.
type Key uint64

// DefaultBitsPerDim is the default quantization width per coordinate.
const DefaultBitsPerDim = 21

// keyWidth is the number of usable bits in a Key. One bit of the uint64 is
// unusable because three interleaved coordinates must fit evenly.
const keyWidth = 63

// ErrInvalidBits indicates an encoder configuration whose interleaved width
// exceeds the key capacity. Raised at configuration time, before any data is
// encoded.
type ErrInvalidBits struct {
	BitsPerDim uint8
}

func (e *ErrInvalidBits) Error() string {
	return fmt.Sprintf("invalid bits per dimension: %d (3*%d exceeds %d-bit key)", e.BitsPerDim, e.BitsPerDim, keyWidth)
}

// ErrInvalidRange indicates a value range with non-positive extent.
type ErrInvalidRange struct {
	Min, Max float64
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid value range: [%g, %g)", e.Min, e.Max)
}

// Options contains configuration options for the encoder.
type Options struct {
	// BitsPerDim is the quantization width per coordinate.
	// 3*BitsPerDim must fit into the 64-bit key.
	BitsPerDim uint8

	// Min and Max bound the coordinate values mapped onto the quantization
	// grid. Coordinates outside [Min, Max] are clamped to the boundary
	// cells (see Encoder.Encode).
	Min, Max float64
}

// DefaultOptions contains the default configuration options for the encoder.
// The [-1, 1] range covers projections of L2-normalized embeddings onto
// unit-length basis vectors.
var DefaultOptions = Options{
	BitsPerDim: DefaultBitsPerDim,
	Min:        -1,
	Max:        1,
}

// Encoder maps projected points to locality keys. It is immutable after
// construction and safe to share across goroutines without synchronization.
// The configuration must be stored alongside the index it serves so that
// insert-time and query-time encodings agree.
type Encoder struct {
	bitsPerDim uint8
	min        float64
	scale      float64 // maps [min, max] onto [0, maxCell]
	maxCell    uint64  // 2^bitsPerDim - 1
}

// New creates a new encoder.
func New(optFns ...func(o *Options)) (*Encoder, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BitsPerDim == 0 || int(opts.BitsPerDim)*3 > keyWidth {
		return nil, &ErrInvalidBits{BitsPerDim: opts.BitsPerDim}
	}
	if opts.Max <= opts.Min {
		return nil, &ErrInvalidRange{Min: opts.Min, Max: opts.Max}
	}

	maxCell := uint64(1)<<opts.BitsPerDim - 1
	return &Encoder{
		bitsPerDim: opts.BitsPerDim,
		min:        opts.Min,
		scale:      float64(maxCell) / (opts.Max - opts.Min),
		maxCell:    maxCell,
	}, nil
}

// BitsPerDim returns the configured quantization width per coordinate.
func (e *Encoder) BitsPerDim() uint8 { return e.bitsPerDim }

// Range returns the configured coordinate value range.
func (e *Encoder) Range() (min, max float64) {
	return e.min, e.min + float64(e.maxCell)/e.scale
}

// Encode converts a projected point into a locality key.
//
// Each coordinate is linearly scaled into [0, 2^BitsPerDim) and the three
// quantized values are bit-interleaved. Out-of-range coordinates are clamped
// to the boundary cell — a named policy, not silent data loss: a clamped
// point still lands in the nearest edge region of the curve, and stage-2
// re-ranking sees its exact vector regardless.
//
// Encode is total and deterministic; it has no failure path.
func (e *Encoder) Encode(p projection.Point) Key {
	x := e.quantize(p.X)
	y := e.quantize(p.Y)
	z := e.quantize(p.Z)
	return Key(spread3(x) | spread3(y)<<1 | spread3(z)<<2)
}

// Quantize maps a single coordinate to its grid cell, applying the boundary
// clamp policy. Exported for the spatial index's bulk loader, which orders
// cells directly.
func (e *Encoder) Quantize(v float64) uint64 {
	return e.quantize(v)
}

func (e *Encoder) quantize(v float64) uint64 {
	scaled := (v - e.min) * e.scale
	if scaled <= 0 {
		return 0
	}
	cell := uint64(scaled)
	if cell > e.maxCell {
		return e.maxCell
	}
	return cell
}

// spread3 distributes the low 21 bits of v so that consecutive input bits
// end up three positions apart (the classic Morton spreading constants).
func spread3(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// compact3 is the inverse of spread3.
func compact3(v uint64) uint64 {
	v &= 0x1249249249249249
	v = (v ^ v>>2) & 0x10c30c30c30c30c3
	v = (v ^ v>>4) & 0x100f00f00f00f00f
	v = (v ^ v>>8) & 0x1f0000ff0000ff
	v = (v ^ v>>16) & 0x1f00000000ffff
	v = (v ^ v>>32) & 0x1fffff
	return v
}

// Decode recovers the quantized grid cell coordinates of a key. Primarily a
// diagnostics and test helper; the original floating coordinates are only
// recoverable up to grid resolution.
func (e *Encoder) Decode(k Key) (x, y, z uint64) {
	return compact3(uint64(k)), compact3(uint64(k) >> 1), compact3(uint64(k) >> 2)
}
