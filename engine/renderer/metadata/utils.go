package metadata

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

func GetAligned(operand, granularity uint64) uint64 {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}

// HashBytes returns the FNV-1a 64 hash of b.
func HashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// hasher accumulates descriptor fields in a fixed little-endian layout so equal
// descriptors always hash to the same value.
type hasher struct {
	buf []byte
}

func (h *hasher) u32(values ...uint32) {
	for _, v := range values {
		h.buf = binary.LittleEndian.AppendUint32(h.buf, v)
	}
}

func (h *hasher) f32(values ...float32) {
	for _, v := range values {
		h.buf = binary.LittleEndian.AppendUint32(h.buf, math.Float32bits(v))
	}
}

func (h *hasher) bool(values ...bool) {
	for _, v := range values {
		if v {
			h.buf = append(h.buf, 1)
		} else {
			h.buf = append(h.buf, 0)
		}
	}
}

func (h *hasher) str(s string) {
	h.u32(uint32(len(s)))
	h.buf = append(h.buf, s...)
}

func (h *hasher) sum() uint64 {
	return HashBytes(h.buf)
}
