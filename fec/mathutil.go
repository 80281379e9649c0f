package fec

// 16-bit integer square root seeded from a 256-entry table, with a single
// correction step. The table holds floor(16*sqrt(i)), capped at 255.
var sqrtSeedTable = [256]uint8{
	0, 16, 22, 27, 32, 35, 39, 42, 45, 48, 50, 53, 55, 57,
	59, 61, 64, 65, 67, 69, 71, 73, 75, 76, 78, 80, 81, 83,
	84, 86, 87, 89, 90, 91, 93, 94, 96, 97, 98, 99, 101, 102,
	103, 104, 106, 107, 108, 109, 110, 112, 113, 114, 115, 116, 117, 118,
	119, 120, 121, 122, 123, 124, 125, 126, 128, 128, 129, 130, 131, 132,
	133, 134, 135, 136, 137, 138, 139, 140, 141, 142, 143, 144, 144, 145,
	146, 147, 148, 149, 150, 150, 151, 152, 153, 154, 155, 155, 156, 157,
	158, 159, 160, 160, 161, 162, 163, 163, 164, 165, 166, 167, 167, 168,
	169, 170, 170, 171, 172, 173, 173, 174, 175, 176, 176, 177, 178, 178,
	179, 180, 181, 181, 182, 183, 183, 184, 185, 185, 186, 187, 187, 188,
	189, 189, 190, 191, 192, 192, 193, 193, 194, 195, 195, 196, 197, 197,
	198, 199, 199, 200, 201, 201, 202, 203, 203, 204, 204, 205, 206, 206,
	207, 208, 208, 209, 209, 210, 211, 211, 212, 212, 213, 214, 214, 215,
	215, 216, 217, 217, 218, 218, 219, 219, 220, 221, 221, 222, 222, 223,
	224, 224, 225, 225, 226, 226, 227, 227, 228, 229, 229, 230, 230, 231,
	231, 232, 232, 233, 234, 234, 235, 235, 236, 236, 237, 237, 238, 238,
	239, 240, 240, 241, 241, 242, 242, 243, 243, 244, 244, 245, 245, 246,
	246, 247, 247, 248, 248, 249, 249, 250, 250, 251, 251, 252, 252, 253,
	253, 254, 254, 255,
}

// squareRoot16 returns floor(sqrt(x)).
func squareRoot16(x uint16) uint16 {
	if x < 0x100 {
		return uint16(sqrtSeedTable[x] >> 4)
	}
	var r uint16
	switch {
	case x >= 0x4000:
		r = uint16(sqrtSeedTable[x>>8]) + 1
	case x >= 0x1000:
		r = uint16(sqrtSeedTable[x>>6]>>1) + 1
	case x >= 0x400:
		r = uint16(sqrtSeedTable[x>>4]>>2) + 1
	default:
		r = uint16(sqrtSeedTable[x>>2]>>3) + 1
	}
	if uint32(r)*uint32(r) > uint32(x) {
		r--
	}
	return r
}

// Wheel-of-210 sieve: sieveTable[n % 210] is the distance from n to the next
// candidate with no factor of 2, 3, 5 or 7. Candidates are then trial-divided
// by the primes below 256, which covers every 16-bit composite.
const sieveTableSize = 2 * 3 * 5 * 7

var sieveTable = [sieveTableSize]uint8{
	1, 0, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0,
	1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0,
	1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0,
	7, 6, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 7, 6, 5, 4, 3, 2,
	1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0,
	1, 0, 5, 4, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 5, 4, 3, 2, 1, 0,
	1, 0, 5, 4, 3, 2, 1, 0, 3, 2, 1, 0, 1, 0, 3, 2, 1, 0, 1, 0, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
}

var primesUnder256 = [...]uint16{
	11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61,
	67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127,
	131, 137, 139, 149, 151, 157, 163, 167, 173, 179, 181, 191,
	193, 197, 199, 211, 223, 227, 229, 233, 239, 241, 251, 0x7fff,
}

// nextPrime16 returns the smallest prime >= n for n >= 2, and 1 for n < 2.
func nextPrime16(n uint16) uint16 {
	switch n {
	case 0, 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	case 4, 5:
		return 5
	case 6, 7:
		return 7
	}

	offset := int(n % sieveTableSize)
	next := uint16(sieveTable[offset])
	offset += int(next) + 1
	n += next

	pMax := int(squareRoot16(n))
	for {
		divisible := false
		for _, p := range primesUnder256 {
			if int(p) > pMax {
				break
			}
			if n%p == 0 {
				divisible = true
				break
			}
		}
		if !divisible {
			return n
		}

		if offset >= sieveTableSize {
			offset -= sieveTableSize
		}
		next := uint16(sieveTable[offset])
		offset += int(next) + 1
		n += next + 1

		// Derivative update of the square root, cheaper than recomputing.
		if pMax*pMax < int(n) {
			pMax++
		}
	}
}
