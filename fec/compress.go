package fec

// Compression folds the peeled triangle into a small dense system. The
// compress matrix starts as the sparse image of the deferred and mixing
// columns, is reduced along the peeled rows in solution order, and the
// surviving rows become the bottom of the elimination matrix while the dense
// check pattern fills the top.

// setDeferredColumns assigns dense-system positions to the deferred columns
// and scatters their sparse row references into the compress matrix. The H
// mixing columns map behind them.
func (c *Codec) setDeferredColumns() {
	geColumnI := 0
	for deferI := c.deferHeadColumns; deferI != listTerm; {
		column := &c.peelCols[deferI]

		word := geColumnI >> 6
		mask := uint64(1) << (geColumnI & 63)
		for _, rowI := range c.peelColRefs[deferI] {
			c.geCompressMatrix[int(rowI)*c.gePitch+word] |= mask
		}

		c.geColMap[geColumnI] = deferI
		column.geColumn = uint16(geColumnI)

		geColumnI++
		deferI = column.next
	}

	for addedI := 0; addedI < int(c.addedCount); addedI++ {
		c.geColMap[int(c.deferCount)+addedI] = uint16(c.blockCount + addedI)
	}
}

// setMixBits flips a row's three mixing-column bits in a GE-width bit row.
func (c *Codec) setMixBits(geRow []uint64, row *peelRow) {
	a := row.params.mixA
	x := row.params.mixX0
	for i := 0; ; i++ {
		geColumnI := int(c.deferCount) + int(x)
		geRow[geColumnI>>6] ^= 1 << (geColumnI & 63)
		if i == 2 {
			return
		}
		x = iterateNextColumn(x, c.addedCount, c.addedNextPrime, a)
	}
}

// setMixingColumnsForDeferredRows stamps the mixing bits of every deferred
// row and tags the row as deferred for the walks below.
func (c *Codec) setMixingColumnsForDeferredRows() {
	for deferRowI := c.deferHeadRows; deferRowI != listTerm; {
		row := &c.peelRows[deferRowI]
		row.peelColumn = listTerm
		c.setMixBits(c.compressRow(int(deferRowI)), row)
		deferRowI = row.next
	}
}

// peelDiagonal inverts the peeled triangle. Walking the peeled rows in
// solution order, each row's compress bits and block value are folded into
// every later row that references the solved column. The first XOR into a
// destination block is fused with the copy of its input row via isCopied.
func (c *Codec) peelDiagonal() {
	for peelRowI := c.peelHeadRows; peelRowI != listTerm; {
		row := &c.peelRows[peelRowI]
		peelColumnI := row.peelColumn
		geRow := c.compressRow(int(peelRowI))

		c.setMixBits(geRow, row)

		dst := c.recoveryBlock(int(peelColumnI))
		if !row.isCopied {
			src := c.inputBlock(int(peelRowI))
			n := c.rowBytes(int(peelRowI))
			copy(dst[:n], src[:n])
			clear(dst[n:])
			// No need to set isCopied: no earlier row references this one.
		}

		for _, refRowI := range c.peelColRefs[peelColumnI] {
			if refRowI == peelRowI {
				continue
			}

			geRefRow := c.compressRow(int(refRowI))
			for i := range geRefRow {
				geRefRow[i] ^= geRow[i]
			}

			refRow := &c.peelRows[refRowI]
			refColumnI := refRow.peelColumn
			if refColumnI == listTerm {
				continue
			}

			dstRef := c.recoveryBlock(int(refColumnI))
			if refRow.isCopied {
				xorBlock(dstRef, dst, c.blockBytes)
			} else {
				// Fuse the pending input copy with this XOR.
				src := c.inputBlock(int(refRowI))
				n := c.rowBytes(int(refRowI))
				xorSet(dstRef[:n], dst[:n], src[:n], n)
				copy(dstRef[n:], dst[n:])
				refRow.isCopied = true
			}
		}

		peelRowI = row.next
	}
}

// copyDeferredRows moves the compressed images of the deferred rows into the
// elimination matrix behind the H check rows.
func (c *Codec) copyDeferredRows() {
	geRowI := int(c.addedCount)
	for deferRowI := c.deferHeadRows; deferRowI != listTerm; {
		copy(c.geMatrixRow(geRowI), c.compressRow(int(deferRowI)))
		c.geRowMap[geRowI] = deferRowI
		geRowI++
		deferRowI = c.peelRows[deferRowI].next
	}
}

// multiplyDenseRows multiplies the dense check pattern into the elimination
// matrix, one source column at a time. Every column lands on three light
// rows chosen by a stride schedule over L and on a random subset of the D
// dense rows. The subset comes from the bits of one 32-bit draw, so only the
// first 32 dense rows can be selected. Peeled columns contribute their whole
// compressed row; deferred columns contribute a single bit.
func (c *Codec) multiplyDenseRows() {
	var prng prng32
	prng.seed(c.checkSeed)

	for columnI := 0; columnI < c.blockCount; columnI++ {
		column := &c.peelCols[columnI]

		// One draw per column on both ends, peeled or not.
		denseRV := prng.next()
		x := uint16(columnI % int(c.lightCount))
		a := uint16(1 + (columnI/int(c.lightCount))%int(c.lightCount-1))

		if column.mark == markPeeled {
			src := c.compressRow(int(column.peelRow))

			for i := 0; ; i++ {
				dst := c.geMatrixRow(int(x))
				for w := range dst {
					dst[w] ^= src[w]
				}
				if i == 2 {
					break
				}
				x = iterateNextColumn(x, c.lightCount, c.lightNextPrime, a)
			}

			for denseI := 0; denseI < int(c.denseCount); denseI++ {
				if denseRV&1 != 0 {
					dst := c.geMatrixRow(int(c.lightCount) + denseI)
					for w := range dst {
						dst[w] ^= src[w]
					}
				}
				denseRV >>= 1
			}
			continue
		}

		geColumnI := int(column.geColumn)
		word := geColumnI >> 6
		mask := uint64(1) << (geColumnI & 63)

		for i := 0; ; i++ {
			c.geMatrix[int(x)*c.gePitch+word] ^= mask
			if i == 2 {
				break
			}
			x = iterateNextColumn(x, c.lightCount, c.lightNextPrime, a)
		}

		for denseI := 0; denseI < int(c.denseCount); denseI++ {
			if denseRV&1 != 0 {
				c.geMatrix[(int(c.lightCount)+denseI)*c.gePitch+word] ^= mask
			}
			denseRV >>= 1
		}
	}
}
