package fec

import "math/bits"

// prng32 is a small deterministic generator built from two lagged 32-bit
// multiply-with-carry streams. It is not a source of security, only of
// reproducibility: an encoder and a decoder seeded with the same words must
// draw bit-identical sequences, because the generator matrix exists only as
// the stream of draws.
type prng32 struct {
	x, y uint64
}

const (
	prngMulX = 0xfffd21a7
	prngMulY = 0xfffd1361
)

// seed2 hashes both seed words through a 64-bit avalanche finalizer so that
// adjacent seeds (consecutive row ids) do not correlate in the first draws.
func (p *prng32) seed2(a, b uint32) {
	const c1 = 0xff51afd7ed558ccd
	const c2 = 0xc4ceb9fe1a85ec53

	b += a

	x := 0x9368e53c2f6af274 ^ uint64(a)
	y := 0x586dcd208f7cd3fd ^ uint64(b)

	x *= c1
	x ^= x >> 33
	x *= c2
	x ^= x >> 29

	y *= c1
	y ^= y >> 33
	y *= c2
	y ^= y >> 29

	p.x, p.y = x, y

	// Discard one draw so the seed words never leak straight into output.
	p.next()
}

func (p *prng32) seed(s uint32) {
	p.seed2(s, s)
}

func (p *prng32) next() uint32 {
	p.x = prngMulX*uint64(uint32(p.x)) + (p.x >> 32)
	p.y = prngMulY*uint64(uint32(p.y)) + (p.y >> 32)
	return bits.RotateLeft32(uint32(p.x), 7) + uint32(p.y)
}
