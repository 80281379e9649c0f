package fec

// shuffleDeck16 fills deck[0:count] with a uniform random permutation of
// 0..count-1 using the inside-out Fisher-Yates construction. Small decks
// consume the PRNG a byte at a time, larger ones sixteen bits at a time.
func shuffleDeck16(prng *prng32, deck []uint16, count uint32) {
	deck[0] = 0
	if count <= 1 {
		return
	}

	if count <= 256 {
		for ii := uint32(1); ; {
			rv := prng.next()
			for shift := 0; shift < 32; shift += 8 {
				jj := uint32(uint8(rv>>shift)) % ii
				deck[ii] = deck[jj]
				deck[jj] = uint16(ii)
				ii++
				if ii == count {
					return
				}
			}
		}
	}

	for ii := uint32(1); ; {
		rv := prng.next()
		for shift := 0; shift < 32; shift += 16 {
			jj := uint32(uint16(rv>>shift)) % ii
			deck[ii] = deck[jj]
			deck[jj] = uint16(ii)
			ii++
			if ii == count {
				return
			}
		}
	}
}

// Per-size seeds for the scrambler matrices added below. Any seed yields an
// invertible matrix; the table entries just pin which one each size gets so
// both ends regenerate the same bits.
var invertibleMatrixSeeds = [512]uint8{
	0x0, 0, 2, 2, 10, 5, 6, 1, 2, 0, 0, 3, 5, 0, 0, 1, 0, 0, 0, 3, 0, 1, 2, 3, 0, 1, 6, 6, 1, 6, 0, 0,
	0, 4, 2, 7, 0, 2, 4, 2, 1, 1, 0, 0, 2, 12, 11, 3, 3, 3, 2, 1, 1, 4, 4, 1, 13, 2, 2, 1, 3, 2, 1, 1,
	3, 1, 0, 0, 1, 0, 0, 10, 8, 6, 0, 7, 3, 0, 1, 1, 0, 2, 6, 3, 2, 2, 1, 0, 5, 2, 5, 1, 1, 2, 4, 1,
	2, 1, 0, 0, 0, 2, 0, 5, 9, 17, 5, 1, 2, 2, 5, 4, 4, 4, 4, 4, 1, 2, 2, 2, 1, 0, 1, 0, 3, 2, 2, 0,
	1, 4, 1, 3, 1, 17, 3, 0, 0, 0, 0, 2, 2, 0, 0, 0, 1, 11, 4, 2, 4, 2, 1, 8, 2, 1, 1, 2, 6, 3, 0, 4,
	3, 10, 5, 3, 3, 1, 0, 1, 2, 6, 10, 10, 6, 0, 0, 0, 0, 0, 0, 1, 4, 2, 1, 2, 2, 12, 2, 2, 4, 0, 0, 2,
	0, 7, 12, 1, 1, 1, 0, 6, 8, 0, 0, 0, 0, 2, 1, 8, 6, 2, 0, 5, 4, 2, 7, 2, 10, 4, 2, 6, 4, 6, 6, 1,
	0, 0, 0, 0, 3, 1, 0, 4, 2, 6, 1, 1, 4, 2, 5, 1, 4, 1, 0, 0, 1, 8, 0, 0, 6, 0, 17, 4, 9, 8, 4, 4,
	3, 0, 0, 3, 1, 4, 3, 3, 0, 0, 3, 0, 0, 0, 3, 4, 4, 4, 3, 0, 0, 12, 1, 1, 2, 5, 8, 4, 8, 6, 2, 2,
	0, 0, 0, 13, 0, 3, 4, 2, 2, 1, 6, 13, 3, 12, 0, 0, 3, 7, 8, 2, 2, 2, 0, 0, 4, 0, 0, 0, 2, 0, 3, 6,
	7, 1, 0, 2, 2, 4, 4, 3, 6, 3, 6, 4, 4, 1, 3, 7, 1, 0, 0, 0, 1, 3, 0, 5, 4, 4, 4, 3, 1, 1, 7, 13,
	4, 6, 1, 1, 2, 2, 2, 5, 7, 1, 0, 0, 2, 2, 1, 2, 1, 6, 6, 6, 2, 2, 2, 5, 3, 2, 0, 0, 0, 0, 0, 0,
	0, 0, 2, 3, 2, 2, 0, 4, 0, 0, 4, 2, 0, 0, 0, 2, 4, 1, 2, 3, 1, 1, 1, 1, 1, 1, 1, 1, 4, 0, 0, 0,
	1, 1, 0, 0, 0, 0, 0, 4, 3, 0, 0, 0, 0, 4, 0, 0, 4, 5, 2, 0, 1, 0, 0, 1, 7, 1, 0, 0, 0, 0, 1, 1,
	1, 6, 3, 0, 0, 1, 3, 2, 0, 3, 0, 2, 1, 1, 1, 0, 0, 0, 0, 0, 0, 8, 0, 0, 6, 4, 1, 3, 5, 3, 0, 1,
	1, 6, 3, 3, 5, 2, 2, 9, 5, 1, 2, 2, 1, 1, 1, 1, 1, 1, 2, 2, 1, 3, 1, 0, 0, 4, 1, 7, 0, 0, 0, 0,
}

// addInvertibleMatrix XORs a random-looking invertible n-by-n GF(2) matrix
// into the bitmatrix, shifted right by offset columns. The matrix is a
// row-and-column permuted unit triangular: row rowOrder[i] carries a
// mandatory bit at colOrder[i] and random bits only at colOrder[j] for j > i,
// which keeps it invertible no matter what the PRNG emits. Sizes of 512 and
// up fall back to adding the identity.
func addInvertibleMatrix(matrix []uint64, offset, pitch, n int) {
	if n <= 0 {
		return
	}

	if n >= 512 {
		for i := 0; i < n; i++ {
			columnI := offset + i
			matrix[i*pitch+columnI>>6] ^= 1 << (columnI & 63)
		}
		return
	}

	var prng prng32
	prng.seed(uint32(invertibleMatrixSeeds[n]))

	colOrder := make([]uint16, n)
	rowOrder := make([]uint16, n)
	shuffleDeck16(&prng, colOrder, uint32(n))
	shuffleDeck16(&prng, rowOrder, uint32(n))

	for level := 0; level < n; level++ {
		row := matrix[int(rowOrder[level])*pitch:]

		columnI := offset + int(colOrder[level])
		row[columnI>>6] ^= 1 << (columnI & 63)

		var rv uint32
		bitsLeft := 0
		for j := level + 1; j < n; j++ {
			if bitsLeft == 0 {
				rv = prng.next()
				bitsLeft = 32
			}
			if rv&1 != 0 {
				columnI := offset + int(colOrder[j])
				row[columnI>>6] ^= 1 << (columnI & 63)
			}
			rv >>= 1
			bitsLeft--
		}
	}
}
