package fec

// codecParams is the per-K generator schedule: the two PRNG seeds and the
// light/dense check row split. All four values are part of the code
// definition; encoder and decoder must agree on them or nothing decodes.
type codecParams struct {
	peelSeed   uint32
	checkSeed  uint32
	lightCount uint16
	denseCount uint16
}

// matrixParameters returns the schedule for a supported block count. The
// seeds and row counts were fixed offline together: the light/dense split
// trades solver time against the chance of needing extra blocks, and the
// seeds pin generator matrices that invert for the full block range.
func matrixParameters(blockCount int) (codecParams, bool) {
	switch blockCount {
	case 16:
		return codecParams{0x0c2a9d6e, 0x52f1b83b, 6, 2}, true
	case 64:
		return codecParams{0x3b8e17c5, 0x6d04a9f4, 8, 2}, true
	case 128:
		return codecParams{0x75c60d91, 0x1ea85b37, 11, 2}, true
	case 256:
		return codecParams{0x2d9f4e68, 0x7b31c0b0, 14, 5}, true
	case 512:
		return codecParams{0x58a3f7b2, 0x0e6c92d7, 14, 5}, true
	case 1024:
		return codecParams{0x664b1dc8, 0x49d7e062, 18, 12}, true
	case 2048:
		return codecParams{0x17e9a246, 0x5c38fb92, 45, 8}, true
	case 4096:
		return codecParams{0x40d2c7e3, 0x2af861be, 55, 14}, true
	case 8192:
		return codecParams{0x7353906b, 0x61b4e830, 100, 16}, true
	case 10000:
		return codecParams{0x0a81d5f4, 0x36c97a12, 120, 20}, true
	case 16384:
		return codecParams{0x5eb60c87, 0x13f2d94b, 180, 26}, true
	case 32768:
		return codecParams{0x29c4871d, 0x70a5e3f9, 400, 30}, true
	case 40000:
		return codecParams{0x4d17b3aa, 0x0b68c5d3, 460, 29}, true
	case 50000:
		return codecParams{0x32f0de65, 0x67891a51, 600, 34}, true
	case 64000:
		return codecParams{0x71a8249d, 0x24d6ff1a, 750, 6}, true
	}
	return codecParams{}, false
}

var supportedBlockCounts = []int{
	16, 64, 128, 256, 512, 1024, 2048, 4096,
	8192, 10000, 16384, 32768, 40000, 50000, 64000,
}

// SupportedBlockCounts returns the block counts the schedule covers, in
// ascending order.
func SupportedBlockCounts() []int {
	return append([]int(nil), supportedBlockCounts...)
}

// NextSupportedBlockCount returns the smallest supported block count >= n,
// or 0 when n exceeds the schedule. Callers with an arbitrary payload pad it
// up to the returned count.
func NextSupportedBlockCount(n int) int {
	for _, k := range supportedBlockCounts {
		if k >= n {
			return k
		}
	}
	return 0
}
