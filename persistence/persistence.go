// Package persistence serializes the shape an index must persist: the
// engine configuration plus one (id, point, key) triple per entry. Original
// high-dimensional vectors are never written — they belong to the caller's
// storage layer, and a restored index re-fetches them through the vector
// store at query time.
//
// Container layout (little-endian):
//
//	[magic u32][version u8][compression u8]
//	[dimension u32][seed u64][metric u8][oversample u32]
//	[bitsPerDim u8][rangeMin f64][rangeMax f64]
//	[entryCount u64]
//	[payload: entryCount * 40 bytes, block-compressed]
//	[crc32c u32 over everything above]
package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/index/rtree"
	"github.com/hupe1980/trigo/projection"
)

const (
	magic          = 0x54524731 // "TRG1"
	formatVersion  = 1
	entryWireSize  = 40 // id u64 + 3*f64 + key u64
	maxSaneEntries = 1 << 40

	// maxCompressionOverhead bounds how much larger than the raw payload a
	// stored block may claim to be. Both codecs fall back to (near-)raw
	// storage for incompressible data, so anything beyond framing overhead
	// marks a corrupt or hostile header.
	maxCompressionOverhead = 1 << 16
)

// CompressionType defines the compression algorithm used for the entry
// payload.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD compression (better ratio).
	CompressionZSTD CompressionType = 2
)

var (
	// ErrBadMagic indicates the reader is not positioned at a snapshot.
	ErrBadMagic = errors.New("bad snapshot magic")

	// ErrUnsupportedVersion indicates a snapshot from an unknown format
	// revision.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrChecksum indicates snapshot corruption.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// crc32cTable is pre-computed for the CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Snapshot is the persistable state of an index.
type Snapshot struct {
	Dimension        int
	Seed             uint64
	Metric           distance.Metric
	OversampleFactor int
	BitsPerDim       uint8
	RangeMin         float64
	RangeMax         float64
	Entries          []rtree.Entry
}

// Options contains configuration options for Save.
type Options struct {
	// Compression selects the payload codec.
	Compression CompressionType
}

// DefaultOptions contains the default configuration options for Save.
var DefaultOptions = Options{
	Compression: CompressionZSTD,
}

// Save writes the snapshot to w.
func Save(w io.Writer, snap *Snapshot, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	crc := crc32.New(crc32cTable)
	out := io.MultiWriter(w, crc)

	header := make([]byte, 0, 64)
	header = binary.LittleEndian.AppendUint32(header, magic)
	header = append(header, formatVersion, byte(opts.Compression))
	header = binary.LittleEndian.AppendUint32(header, uint32(snap.Dimension))
	header = binary.LittleEndian.AppendUint64(header, snap.Seed)
	header = append(header, byte(snap.Metric))
	header = binary.LittleEndian.AppendUint32(header, uint32(snap.OversampleFactor))
	header = append(header, snap.BitsPerDim)
	header = binary.LittleEndian.AppendUint64(header, math.Float64bits(snap.RangeMin))
	header = binary.LittleEndian.AppendUint64(header, math.Float64bits(snap.RangeMax))
	header = binary.LittleEndian.AppendUint64(header, uint64(len(snap.Entries)))
	if _, err := out.Write(header); err != nil {
		return err
	}

	payload := make([]byte, 0, len(snap.Entries)*entryWireSize)
	for _, e := range snap.Entries {
		payload = binary.LittleEndian.AppendUint64(payload, e.ID)
		payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(e.Point.X))
		payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(e.Point.Y))
		payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(e.Point.Z))
		payload = binary.LittleEndian.AppendUint64(payload, uint64(e.Key))
	}

	compressed, err := compress(payload, opts.Compression)
	if err != nil {
		return err
	}

	var sizes [8]byte
	binary.LittleEndian.PutUint64(sizes[:], uint64(len(compressed)))
	if _, err := out.Write(sizes[:]); err != nil {
		return err
	}
	if _, err := out.Write(compressed); err != nil {
		return err
	}

	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], crc.Sum32())
	_, err = w.Write(footer[:])
	return err
}

// SaveToFile writes the snapshot to a file, replacing any existing content.
func SaveToFile(filename string, snap *Snapshot, optFns ...func(o *Options)) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := Save(bw, snap, optFns...); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads a snapshot from r, verifying the trailing checksum.
func Load(r io.Reader) (*Snapshot, error) {
	crc := crc32.New(crc32cTable)
	in := io.TeeReader(r, crc)

	header := make([]byte, 48)
	if _, err := io.ReadFull(in, header); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[0:]) != magic {
		return nil, ErrBadMagic
	}
	if header[4] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header[4])
	}
	compression := CompressionType(header[5])

	snap := &Snapshot{
		Dimension:        int(binary.LittleEndian.Uint32(header[6:])),
		Seed:             binary.LittleEndian.Uint64(header[10:]),
		Metric:           distance.Metric(header[18]),
		OversampleFactor: int(binary.LittleEndian.Uint32(header[19:])),
		BitsPerDim:       header[23],
		RangeMin:         math.Float64frombits(binary.LittleEndian.Uint64(header[24:])),
		RangeMax:         math.Float64frombits(binary.LittleEndian.Uint64(header[32:])),
	}
	count := binary.LittleEndian.Uint64(header[40:])
	if count > maxSaneEntries {
		return nil, fmt.Errorf("implausible entry count: %d", count)
	}

	var sizes [8]byte
	if _, err := io.ReadFull(in, sizes[:]); err != nil {
		return nil, err
	}
	compressedLen := binary.LittleEndian.Uint64(sizes[:])
	if compressedLen > count*entryWireSize+maxCompressionOverhead {
		// Reject before allocating; the checksum cannot be trusted to gate
		// the allocation since it is only verified after the payload is read.
		return nil, fmt.Errorf("implausible compressed length: %d", compressedLen)
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(in, compressed); err != nil {
		return nil, err
	}

	var footer [4]byte
	if _, err := io.ReadFull(r, footer[:]); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(footer[:]) != crc.Sum32() {
		return nil, ErrChecksum
	}

	payload, err := decompress(compressed, compression, count*entryWireSize)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != count*entryWireSize {
		return nil, fmt.Errorf("payload size mismatch: got %d, want %d", len(payload), count*entryWireSize)
	}

	snap.Entries = make([]rtree.Entry, count)
	for i := range snap.Entries {
		off := i * entryWireSize
		snap.Entries[i] = rtree.Entry{
			ID: binary.LittleEndian.Uint64(payload[off:]),
			Point: projection.Point{
				X: math.Float64frombits(binary.LittleEndian.Uint64(payload[off+8:])),
				Y: math.Float64frombits(binary.LittleEndian.Uint64(payload[off+16:])),
				Z: math.Float64frombits(binary.LittleEndian.Uint64(payload[off+24:])),
			},
			Key: curve.Key(binary.LittleEndian.Uint64(payload[off+32:])),
		}
	}

	return snap, nil
}

// LoadFromFile reads a snapshot from a file.
func LoadFromFile(filename string) (*Snapshot, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(bufio.NewReader(f))
}

func compress(data []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		dst := make([]byte, bound)
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(data) {
			// Incompressible; store raw. Load detects this by the payload
			// length matching the uncompressed size exactly.
			return data, nil
		}
		return dst[:n], nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", compression)
	}
}

func decompress(data []byte, compression CompressionType, uncompressedSize uint64) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		if uint64(len(data)) == uncompressedSize {
			// Raw fallback written by an incompressible save.
			return data, nil
		}
		dst := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
	default:
		return nil, fmt.Errorf("unknown compression type: %d", compression)
	}
}
