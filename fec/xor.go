package fec

import "encoding/binary"

// Bulk GF(2) block arithmetic. These three kernels are the solver's inner
// loop; everything above them deals in whole blocks so the word-at-a-time
// body below can be swapped for a vectorized one without touching the solver.
// All three require non-overlapping buffers.

// xorBlock adds src into dst: dst ^= src.
func xorBlock(dst, src []byte, n int) {
	i := 0
	for ; i+8 <= n; i += 8 {
		v := binary.LittleEndian.Uint64(dst[i:]) ^ binary.LittleEndian.Uint64(src[i:])
		binary.LittleEndian.PutUint64(dst[i:], v)
	}
	for ; i < n; i++ {
		dst[i] ^= src[i]
	}
}

// xorSet writes the sum of a and b: dst = a ^ b.
func xorSet(dst, a, b []byte, n int) {
	i := 0
	for ; i+8 <= n; i += 8 {
		v := binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:])
		binary.LittleEndian.PutUint64(dst[i:], v)
	}
	for ; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

// xorAdd folds the sum of a and b into dst: dst ^= a ^ b.
func xorAdd(dst, a, b []byte, n int) {
	i := 0
	for ; i+8 <= n; i += 8 {
		v := binary.LittleEndian.Uint64(dst[i:]) ^
			binary.LittleEndian.Uint64(a[i:]) ^
			binary.LittleEndian.Uint64(b[i:])
		binary.LittleEndian.PutUint64(dst[i:], v)
	}
	for ; i < n; i++ {
		dst[i] ^= a[i] ^ b[i]
	}
}
