package fec

// Opportunistic peeling. Each incoming row registers itself on the columns it
// touches. A row left with a single unmarked column solves that column, and
// solving a column may cascade into further rows: the peeling avalanche.
// Peel and peelAvalanche are split because greedy deferral reuses the
// avalanche on columns it forces.

// opportunisticPeeling registers row id in slot rowI and peels if possible.
// It fails only when a column's reference list overflows, which a conforming
// id stream cannot cause.
func (c *Codec) opportunisticPeeling(rowI uint16, id uint32) bool {
	row := &c.peelRows[rowI]
	row.id = id
	row.params = generatePeelRow(id, c.peelSeed, uint16(c.blockCount), c.addedCount)

	weight := row.params.peelWeight
	columnI := row.params.peelX0
	a := row.params.peelA
	unmarkedCount := 0
	var unmarked [2]uint16
	for {
		refs := &c.peelColRefs[columnI]
		if len(*refs) >= refListMax {
			return false
		}
		*refs = append(*refs, rowI)

		if c.peelCols[columnI].mark == markTodo {
			// Overwriting window keeps the last two unmarked columns.
			unmarked[unmarkedCount&1] = columnI
			unmarkedCount++
		}

		weight--
		if weight == 0 {
			break
		}
		columnI = iterateNextColumn(columnI, uint16(c.blockCount), c.blockNextPrime, a)
	}

	row.unmarkedCount = uint16(unmarkedCount)

	switch unmarkedCount {
	case 0:
		// Nothing left to solve here; straight to the deferred rows.
		row.next = c.deferHeadRows
		c.deferHeadRows = rowI
	case 1:
		row.unmarked[0] = unmarked[0]
		c.peel(rowI, unmarked[0])
	case 2:
		row.unmarked = unmarked
		c.peelCols[unmarked[0]].w2Refs++
		c.peelCols[unmarked[1]].w2Refs++
	}
	return true
}

// peel solves columnI with row rowI, appends the row to the peeled list in
// solution order, and cascades.
func (c *Codec) peel(rowI, columnI uint16) {
	row := &c.peelRows[rowI]
	column := &c.peelCols[columnI]

	column.mark = markPeeled
	row.peelColumn = columnI

	if c.peelTailRows != listTerm {
		c.peelRows[c.peelTailRows].next = rowI
	} else {
		c.peelHeadRows = rowI
	}
	row.next = listTerm
	c.peelTailRows = rowI

	row.isCopied = false

	c.peelAvalanche(columnI)

	// Assigned after the cascade so the rows walk above sees stable refs.
	column.peelRow = rowI
}

// peelAvalanche walks the rows referencing a newly resolved column and
// re-dispatches any that dropped to one or two unmarked columns.
func (c *Codec) peelAvalanche(columnI uint16) {
	for _, refRowI := range c.peelColRefs[columnI] {
		refRow := &c.peelRows[refRowI]
		refRow.unmarkedCount--

		switch refRow.unmarkedCount {
		case 1:
			// The survivor is whichever cached column is not this one.
			newColumnI := refRow.unmarked[0]
			if newColumnI == columnI {
				newColumnI = refRow.unmarked[1]
			}
			if c.peelCols[newColumnI].mark == markTodo {
				c.peel(refRowI, newColumnI)
			} else {
				refRow.next = c.deferHeadRows
				c.deferHeadRows = refRowI
			}

		case 2:
			// The cached pair may be stale; rescan the row's columns to
			// find the two that are actually still unmarked.
			refWeight := refRow.params.peelWeight
			refColumnI := refRow.params.peelX0
			refA := refRow.params.peelA
			found := 0
			for {
				refCol := &c.peelCols[refColumnI]
				if refCol.mark == markTodo {
					if found < 2 {
						refRow.unmarked[found] = refColumnI
					}
					found++
					// Harmless when the rescan later resolves the row.
					refCol.w2Refs++
				}

				refWeight--
				if refWeight == 0 {
					break
				}
				refColumnI = iterateNextColumn(refColumnI, uint16(c.blockCount), c.blockNextPrime, refA)
			}

			// Nested avalanches can already have consumed the pair; zero
			// the count so the row is not dispatched again below.
			if found <= 1 {
				refRow.unmarkedCount = 0
				if found == 1 {
					c.peel(refRowI, refRow.unmarked[0])
				} else {
					refRow.next = c.deferHeadRows
					c.deferHeadRows = refRowI
				}
			}
		}
	}
}

// greedyPeeling defers columns until none are left unmarked. The pick is the
// column whose deferral frees the largest immediate avalanche: most weight-2
// references first, most row references as the tie break. The deferred set
// lands near sqrt(K) columns for the shipped weight distribution.
func (c *Codec) greedyPeeling() {
	c.deferHeadColumns = listTerm
	c.deferCount = 0

	for {
		bestColumnI := uint16(listTerm)
		var bestW2Refs, bestRowCount uint16

		for columnI := 0; columnI < c.blockCount; columnI++ {
			column := &c.peelCols[columnI]
			if column.mark != markTodo {
				continue
			}
			w2Refs := column.w2Refs
			if w2Refs < bestW2Refs {
				continue
			}
			rowCount := uint16(len(c.peelColRefs[columnI]))
			if w2Refs > bestW2Refs || rowCount >= bestRowCount {
				bestColumnI = uint16(columnI)
				bestW2Refs = w2Refs
				bestRowCount = rowCount
			}
		}

		if bestColumnI == listTerm {
			break
		}

		best := &c.peelCols[bestColumnI]
		best.mark = markDeferred
		c.deferCount++
		best.next = c.deferHeadColumns
		c.deferHeadColumns = bestColumnI

		c.peelAvalanche(bestColumnI)
	}
}
