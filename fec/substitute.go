package fec

// Substitution turns the triangularized system back into block values:
// initialize the pivot column values, add the dense check contributions,
// settle the sub-diagonal, eliminate the upper triangle, then rebuild the
// peeled columns in their original solution order.

// initializeColumnValues seeds each pivot's column value. Dense check rows
// start at zero; deferred rows start from their input block with the peeled
// column contributions folded in, the first fused with the copy.
func (c *Codec) initializeColumnValues() {
	pivotCount := int(c.deferCount) + int(c.addedCount)

	pivotI := 0
	for ; pivotI < pivotCount; pivotI++ {
		columnI := int(c.geColMap[pivotI])
		geRowI := int(c.gePivots[pivotI])
		dst := c.recoveryBlock(columnI)

		if geRowI < int(c.addedCount) {
			clear(dst)
			// Remember which column this check row solves.
			c.geRowMap[geRowI] = uint16(columnI)
			continue
		}

		pivotRowI := int(c.geRowMap[geRowI])
		row := &c.peelRows[pivotRowI]
		combo := c.inputBlock(pivotRowI)
		n := c.rowBytes(pivotRowI)
		comboUsed := false

		weight := row.params.peelWeight
		x := row.params.peelX0
		a := row.params.peelA
		for {
			if c.peelCols[x].mark == markPeeled {
				peelSrc := c.recoveryBlock(int(x))
				if comboUsed {
					xorBlock(dst, peelSrc, c.blockBytes)
				} else {
					xorSet(dst[:n], combo[:n], peelSrc[:n], n)
					copy(dst[n:], peelSrc[n:])
					comboUsed = true
				}
			}

			weight--
			if weight == 0 {
				break
			}
			x = iterateNextColumn(x, uint16(c.blockCount), c.blockNextPrime, a)
		}

		if !comboUsed {
			copy(dst[:n], combo[:n])
			clear(dst[n:])
		}
	}

	// Check rows past the square system solve nothing; mark them so the
	// dense walk below skips them.
	for ; pivotI < c.geRows; pivotI++ {
		if geRowI := int(c.gePivots[pivotI]); geRowI < int(c.addedCount) {
			c.geRowMap[geRowI] = listTerm
		}
	}
}

// addCheckValues replays the dense check pattern of multiplyDenseRows, this
// time XORing peeled column values into the columns solved by the check rows.
// The PRNG draw sequence must match the matrix build exactly.
func (c *Codec) addCheckValues() {
	var prng prng32
	prng.seed(c.checkSeed)

	for columnI := 0; columnI < c.blockCount; columnI++ {
		denseRV := prng.next()

		if c.peelCols[columnI].mark != markPeeled {
			// Deferred columns entered the matrix as plain bits; their
			// values are handled by the sub-diagonal pass.
			continue
		}

		x := uint16(columnI % int(c.lightCount))
		a := uint16(1 + (columnI/int(c.lightCount))%int(c.lightCount-1))
		src := c.recoveryBlock(columnI)

		for i := 0; ; i++ {
			if destColumnI := c.geRowMap[x]; destColumnI != listTerm {
				xorBlock(c.recoveryBlock(int(destColumnI)), src, c.blockBytes)
			}
			if i == 2 {
				break
			}
			x = iterateNextColumn(x, c.lightCount, c.lightNextPrime, a)
		}

		for denseI := 0; denseI < int(c.denseCount); denseI++ {
			if denseRV&1 != 0 {
				if destColumnI := c.geRowMap[int(c.lightCount)+denseI]; destColumnI != listTerm {
					xorBlock(c.recoveryBlock(int(destColumnI)), src, c.blockBytes)
				}
			}
			denseRV >>= 1
		}
	}
}

// addSubdiagonalValues folds every pivot's lower-triangular bits into its
// value, bringing the right-hand side in line with the triangular system.
func (c *Codec) addSubdiagonalValues() {
	pivotCount := int(c.deferCount) + int(c.addedCount)

	for pivotI := 0; pivotI < pivotCount; pivotI++ {
		dst := c.recoveryBlock(int(c.geColMap[pivotI]))
		geRow := c.geMatrixRow(int(c.gePivots[pivotI]))

		for geColumnI := 0; geColumnI < pivotI; geColumnI++ {
			if geRow[geColumnI>>6]&(1<<(geColumnI&63)) != 0 {
				xorBlock(dst, c.recoveryBlock(int(c.geColMap[geColumnI])), c.blockBytes)
			}
		}
	}
}

// Window size thresholds for back-substitution, found by measurement in the
// original tuning: above each threshold the next wider window pays off.
const (
	windowThreshold4 = 20 + 4
	windowThreshold5 = 40 + 5
	windowThreshold6 = 64 + 6
	windowThreshold7 = 128 + 7
)

// backSubstituteAboveDiagonal eliminates the strictly upper triangular part.
// Large systems process w pivots per round: the small triangle inside the
// window is settled plainly, a 2^w table of column combinations is built,
// and every row above the window folds in one table lookup instead of up to
// w separate XORs.
//
// The table lives in recovery blocks of peeled columns. Those values are
// dead here - substitute regenerates every peeled column afterwards - so the
// borrow is safe as long as nothing reads peeled columns until then.
func (c *Codec) backSubstituteAboveDiagonal() {
	pivotI := int(c.deferCount) + int(c.addedCount) - 1

	if pivotI >= windowThreshold5 {
		var w, nextCheckI int
		switch {
		case pivotI >= windowThreshold7:
			w, nextCheckI = 7, windowThreshold7
		case pivotI >= windowThreshold6:
			w, nextCheckI = 6, windowThreshold6
		default:
			w, nextCheckI = 5, windowThreshold5
		}
		winLim := 1 << w

		// Collect scratch space for the combination entries.
		var winTable [128][]byte
		jj := 1
		for columnI := 0; columnI < c.blockCount && jj < winLim; columnI++ {
			if c.peelCols[columnI].mark == markPeeled {
				winTable[jj] = c.recoveryBlock(columnI)
				jj++
			}
		}

		// Enough peeled columns to host the table; otherwise fall through
		// to the plain loop.
		if jj >= winLim {
		window:
			for {
				backsubI := pivotI - w + 1

				// Settle the triangle among the window's pivots.
				for srcPivotI := pivotI; srcPivotI > backsubI; srcPivotI-- {
					word := srcPivotI >> 6
					mask := uint64(1) << (srcPivotI & 63)
					src := c.recoveryBlock(int(c.geColMap[srcPivotI]))

					for destPivotI := backsubI; destPivotI < srcPivotI; destPivotI++ {
						if c.geMatrix[int(c.gePivots[destPivotI])*c.gePitch+word]&mask != 0 {
							xorBlock(c.recoveryBlock(int(c.geColMap[destPivotI])), src, c.blockBytes)
						}
					}
				}

				// Build the combination table. Power-of-two entries alias
				// the window's column values directly; the rest are sums
				// materialized in the borrowed blocks.
				winTable[1] = c.recoveryBlock(int(c.geColMap[backsubI]))
				winTable[2] = c.recoveryBlock(int(c.geColMap[backsubI+1]))
				xorSet(winTable[3], winTable[1], winTable[2], c.blockBytes)
				for bit := 2; bit < w; bit++ {
					hi := 1 << bit
					winTable[hi] = c.recoveryBlock(int(c.geColMap[backsubI+bit]))
					for ii := 1; ii < hi; ii++ {
						xorSet(winTable[hi+ii], winTable[ii], winTable[hi], c.blockBytes)
					}
				}

				// Apply one lookup per row above the window. The w bits may
				// straddle a word boundary.
				firstWord := backsubI >> 6
				shift0 := uint(backsubI & 63)
				lastWord := pivotI >> 6
				for abovePivotI := 0; abovePivotI < backsubI; abovePivotI++ {
					geRow := c.geMatrix[int(c.gePivots[abovePivotI])*c.gePitch:]

					var winBits uint32
					if firstWord == lastWord {
						winBits = uint32(geRow[firstWord]>>shift0) & uint32(winLim-1)
					} else {
						winBits = (uint32(geRow[firstWord]>>shift0) |
							uint32(geRow[firstWord+1]<<(64-shift0))) & uint32(winLim-1)
					}

					if winBits != 0 {
						xorBlock(c.recoveryBlock(int(c.geColMap[abovePivotI])), winTable[winBits], c.blockBytes)
					}
				}

				pivotI -= w
				if pivotI < nextCheckI {
					switch {
					case pivotI >= windowThreshold6:
						w, nextCheckI = 6, windowThreshold6
					case pivotI >= windowThreshold5:
						w, nextCheckI = 5, windowThreshold5
					case pivotI >= windowThreshold4:
						w, nextCheckI = 4, windowThreshold4
					default:
						break window
					}
					winLim = 1 << w
				}
			}
		}
	}

	// Plain back-substitution for whatever remains.
	for ; pivotI >= 0; pivotI-- {
		word := pivotI >> 6
		mask := uint64(1) << (pivotI & 63)
		src := c.recoveryBlock(int(c.geColMap[pivotI]))

		for aboveI := 0; aboveI < pivotI; aboveI++ {
			if c.geMatrix[int(c.gePivots[aboveI])*c.gePitch+word]&mask != 0 {
				xorBlock(c.recoveryBlock(int(c.geColMap[aboveI])), src, c.blockBytes)
			}
		}
	}
}

// substitute rebuilds the peeled column values in original solution order:
// each peeled row's input block plus its three mixing columns plus its other
// peeling columns.
func (c *Codec) substitute() {
	for rowI := c.peelHeadRows; rowI != listTerm; {
		row := &c.peelRows[rowI]
		destColumnI := int(row.peelColumn)
		dest := c.recoveryBlock(destColumnI)

		inputSrc := c.inputBlock(int(rowI))
		n := c.rowBytes(int(rowI))

		mixA := row.params.mixA
		mixX := row.params.mixX0
		src := c.recoveryBlock(c.blockCount + int(mixX))

		xorSet(dest[:n], src[:n], inputSrc[:n], n)
		copy(dest[n:], src[n:])

		mixX = iterateNextColumn(mixX, c.addedCount, c.addedNextPrime, mixA)
		src0 := c.recoveryBlock(c.blockCount + int(mixX))
		mixX = iterateNextColumn(mixX, c.addedCount, c.addedNextPrime, mixA)
		src1 := c.recoveryBlock(c.blockCount + int(mixX))
		xorAdd(dest, src0, src1, c.blockBytes)

		if weight := row.params.peelWeight; weight >= 2 {
			a := row.params.peelA
			column0 := row.params.peelX0
			weight--

			columnI := iterateNextColumn(column0, uint16(c.blockCount), c.blockNextPrime, a)
			if int(column0) != destColumnI {
				peel0 := c.recoveryBlock(int(column0))
				if int(columnI) != destColumnI {
					xorAdd(dest, peel0, c.recoveryBlock(int(columnI)), c.blockBytes)
				} else {
					xorBlock(dest, peel0, c.blockBytes)
				}
			} else {
				xorBlock(dest, c.recoveryBlock(int(columnI)), c.blockBytes)
			}

			for weight--; weight > 0; weight-- {
				columnI = iterateNextColumn(columnI, uint16(c.blockCount), c.blockNextPrime, a)
				if int(columnI) != destColumnI {
					xorBlock(dest, c.recoveryBlock(int(columnI)), c.blockBytes)
				}
			}
		}

		rowI = row.next
	}
}
