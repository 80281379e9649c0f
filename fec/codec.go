package fec

// Codec is the four-phase sparse solver behind both the encoder and the
// decoder: opportunistic peeling, compression into a small dense system,
// Gaussian elimination over a pitched bitmatrix, and substitution back into
// block values. One instance serves one message; it is not safe for
// concurrent use.
type Codec struct {
	// Parameters chosen by the schedule.
	blockBytes     int
	blockCount     int // K
	blockNextPrime uint16
	lightCount     uint16 // L
	denseCount     uint16 // D
	addedCount     uint16 // H = L + D
	lightNextPrime uint16
	addedNextPrime uint16
	peelSeed       uint32
	checkSeed      uint32

	inputFinalBytes  int
	outputFinalBytes int
	extraCount       int
	usedCount        int

	// Peeling workspace.
	recoveryBlocks []byte
	peelRows       []peelRow
	peelCols       []peelColumn
	peelColRefs    [][]uint16

	// Intrusive lists over row/column indices; listTerm terminates.
	peelHeadRows     uint16
	peelTailRows     uint16
	deferHeadRows    uint16
	deferHeadColumns uint16
	deferCount       uint16

	// GE matrices, both ge pitch words wide.
	geMatrix         []uint64
	geCompressMatrix []uint64
	gePitch          int
	geRows           int
	gePivots         []uint16
	geRowMap         []uint16
	geColMap         []uint16
	geResumePivot    uint16

	// Input block storage: aliased to the caller's message on the encoder,
	// owned on the decoder.
	input          []byte
	inputAllocated bool
}

const (
	// listTerm terminates the intrusive row/column lists. Indices are used
	// instead of pointers so the lists survive slice reallocation.
	listTerm = 0xffff

	// maxExtraRows bounds the decoder rows stored beyond the block count;
	// later arrivals reuse slots of rows that did not supply a pivot.
	maxExtraRows = 4

	// refListMax is the static bound on rows referencing one column.
	// The schedule keeps the expected count near the mean row weight, so
	// hitting the bound means the input ids were not generated by a
	// conforming encoder.
	refListMax = 64
)

// Column marks.
const (
	markTodo = iota
	markPeeled
	markDeferred
)

// peelRow carries one received row through the peeling phase. unmarked holds
// the last two unmarked columns seen while the row still has two or more;
// peelColumn is set once the row solves a column and listTerm marks a row
// deferred to elimination.
type peelRow struct {
	next uint16
	id   uint32

	params rowParams

	unmarkedCount uint16
	unmarked      [2]uint16

	peelColumn uint16
	isCopied   bool
}

// peelColumn is the per-source-column state. w2Refs counts currently
// weight-2 rows touching the column while it is unmarked; peelRow is the row
// that solves it once peeled; geColumn is its position in the dense system
// once deferred.
type peelColumn struct {
	next     uint16
	mark     uint8
	w2Refs   uint16
	peelRow  uint16
	geColumn uint16
}

// BlockCount returns K, the number of source blocks.
func (c *Codec) BlockCount() int { return c.blockCount }

// BlockBytes returns the configured block size in bytes.
func (c *Codec) BlockBytes() int { return c.blockBytes }

// chooseMatrix derives the generator parameters for the message geometry.
// Nothing is allocated or mutated on failure.
func (c *Codec) chooseMatrix(messageBytes, blockBytes int) Result {
	if messageBytes <= 0 || blockBytes <= 0 {
		return BadInput
	}

	blockCount := (messageBytes + blockBytes - 1) / blockBytes
	p, ok := matrixParameters(blockCount)
	if !ok {
		return BadInput
	}

	c.blockBytes = blockBytes
	c.blockCount = blockCount
	c.blockNextPrime = nextPrime16(uint16(blockCount))
	c.peelSeed = p.peelSeed
	c.checkSeed = p.checkSeed
	c.lightCount = p.lightCount
	c.denseCount = p.denseCount
	c.lightNextPrime = nextPrime16(p.lightCount)
	c.addedCount = p.lightCount + p.denseCount
	c.addedNextPrime = nextPrime16(c.addedCount)

	c.peelHeadRows = listTerm
	c.peelTailRows = listTerm
	c.deferHeadRows = listTerm

	return Win
}

// InitEncoder prepares the codec to encode a message of the given size.
// The encoder aliases the message fed later; it owns no input storage.
func (c *Codec) InitEncoder(messageBytes, blockBytes int) Result {
	if r := c.chooseMatrix(messageBytes, blockBytes); r != Win {
		return r
	}

	final := messageBytes % blockBytes
	if final == 0 {
		final = blockBytes
	}
	c.inputFinalBytes = final
	c.outputFinalBytes = final
	c.extraCount = 0
	c.usedCount = 0

	c.allocateWorkspace()
	return Win
}

// InitDecoder prepares the codec to absorb received (id, block) pairs for a
// message of the given size.
func (c *Codec) InitDecoder(messageBytes, blockBytes int) Result {
	if r := c.chooseMatrix(messageBytes, blockBytes); r != Win {
		return r
	}

	final := messageBytes % blockBytes
	if final == 0 {
		final = blockBytes
	}
	c.usedCount = 0
	c.outputFinalBytes = final
	// Received blocks always arrive padded to the full block size.
	c.inputFinalBytes = blockBytes
	c.extraCount = maxExtraRows

	c.allocateInput()
	c.allocateWorkspace()
	return Win
}

func (c *Codec) allocateInput() {
	c.input = make([]byte, (c.blockCount+c.extraCount)*c.blockBytes)
	c.inputAllocated = true
}

func (c *Codec) setInput(message []byte) {
	c.input = message
	c.inputAllocated = false
}

func (c *Codec) allocateWorkspace() {
	// One extra block at the end is scratch space.
	c.recoveryBlocks = make([]byte, (c.blockCount+int(c.addedCount)+1)*c.blockBytes)
	c.peelRows = make([]peelRow, c.blockCount+c.extraCount)
	c.peelCols = make([]peelColumn, c.blockCount)
	c.peelColRefs = make([][]uint16, c.blockCount)
	for i := range c.peelColRefs {
		c.peelColRefs[i] = make([]uint16, 0, refListMax)
	}
	// Zero value of peelColumn already carries markTodo and zero w2Refs.
}

func (c *Codec) allocateMatrix() {
	geCols := int(c.deferCount) + int(c.addedCount)
	geRowsAlloc := geCols + c.extraCount + 1
	pitch := (geCols + 63) / 64

	c.gePitch = pitch
	c.geRows = geCols
	c.geMatrix = make([]uint64, geRowsAlloc*pitch)
	c.geCompressMatrix = make([]uint64, c.blockCount*pitch)

	pivotCount := geCols + c.extraCount
	c.gePivots = make([]uint16, pivotCount)
	c.geRowMap = make([]uint16, pivotCount)
	c.geColMap = make([]uint16, geCols)
}

// recoveryBlock returns the value buffer of one column. Columns 0..K-1 hold
// source values, K..K+H-1 the mixing columns, and K+H is scratch.
func (c *Codec) recoveryBlock(column int) []byte {
	off := column * c.blockBytes
	return c.recoveryBlocks[off : off+c.blockBytes]
}

// inputBlock returns the stored bytes of a row slot. With an aliased encoder
// message the final row may be shorter than a full block.
func (c *Codec) inputBlock(row int) []byte {
	off := row * c.blockBytes
	end := off + c.blockBytes
	if end > len(c.input) {
		end = len(c.input)
	}
	return c.input[off:end]
}

// rowBytes is the number of stored bytes in a row slot. Only the encoder's
// final row is ever short; the decoder stores full blocks.
func (c *Codec) rowBytes(row int) int {
	if row == c.blockCount-1 {
		return c.inputFinalBytes
	}
	return c.blockBytes
}

// geMatrixRow returns one full row of the dense elimination matrix.
func (c *Codec) geMatrixRow(row int) []uint64 {
	return c.geMatrix[row*c.gePitch : (row+1)*c.gePitch]
}

// compressRow returns one full row of the compression matrix.
func (c *Codec) compressRow(row int) []uint64 {
	return c.geCompressMatrix[row*c.gePitch : (row+1)*c.gePitch]
}

// solveMatrix runs deferral, compression and elimination after K rows are in.
func (c *Codec) solveMatrix() Result {
	// (1) Peeling: opportunistic peeling already ran per feed.
	c.greedyPeeling()

	// (2) Compression.
	c.allocateMatrix()
	c.setDeferredColumns()
	c.setMixingColumnsForDeferredRows()
	c.peelDiagonal()
	c.copyDeferredRows()
	c.multiplyDenseRows()
	addInvertibleMatrix(c.geMatrix, int(c.deferCount), c.gePitch, int(c.addedCount))

	// (3) Gaussian elimination.
	if !c.triangle() {
		return MoreBlocks
	}
	return Win
}

// generateRecoveryBlocks is phase (4): it turns the triangularized system
// into solved column values.
func (c *Codec) generateRecoveryBlocks() {
	c.initializeColumnValues()
	c.addCheckValues()
	c.addSubdiagonalValues()
	c.backSubstituteAboveDiagonal()
	c.substitute()
}

// EncodeFeed consumes the whole source message at once. The message is
// aliased, not copied, and must stay unmodified while the codec lives.
func (c *Codec) EncodeFeed(message []byte) Result {
	c.setInput(message)

	for id := 0; id < c.blockCount; id++ {
		if !c.opportunisticPeeling(uint16(id), uint32(id)) {
			return BadInput
		}
	}
	c.usedCount = c.blockCount

	r := c.solveMatrix()
	if r == Win {
		c.generateRecoveryBlocks()
	}
	return r
}

// Encode writes the coded block for any row id into blockOut, which must be
// at least blockBytes long. Ids below the block count reproduce the source
// verbatim, the final block zero padded.
func (c *Codec) Encode(id uint32, blockOut []byte) {
	if int64(id) < int64(c.blockCount) {
		src := c.inputBlock(int(id))
		n := c.rowBytes(int(id))
		copy(blockOut[:n], src[:n])
		clear(blockOut[n:c.blockBytes])
		return
	}
	c.regenerateBlock(id, blockOut[:c.blockBytes])
}

// regenerateBlock recomputes one generator row as a sum of recovery blocks,
// the same formula the decoder uses to rebuild missing source rows.
func (c *Codec) regenerateBlock(id uint32, block []byte) {
	p := generatePeelRow(id, c.peelSeed, uint16(c.blockCount), c.addedCount)

	peelX := p.peelX0
	mixX := p.mixX0
	first := c.recoveryBlock(int(peelX))

	if p.peelWeight > 1 {
		weight := p.peelWeight - 1

		peelX = iterateNextColumn(peelX, uint16(c.blockCount), c.blockNextPrime, p.peelA)
		xorSet(block, first, c.recoveryBlock(int(peelX)), c.blockBytes)

		for weight--; weight > 0; weight-- {
			peelX = iterateNextColumn(peelX, uint16(c.blockCount), c.blockNextPrime, p.peelA)
			xorBlock(block, c.recoveryBlock(int(peelX)), c.blockBytes)
		}

		xorBlock(block, c.recoveryBlock(c.blockCount+int(mixX)), c.blockBytes)
	} else {
		xorSet(block, first, c.recoveryBlock(c.blockCount+int(mixX)), c.blockBytes)
	}

	mixX = iterateNextColumn(mixX, c.addedCount, c.addedNextPrime, p.mixA)
	src0 := c.recoveryBlock(c.blockCount + int(mixX))
	mixX = iterateNextColumn(mixX, c.addedCount, c.addedNextPrime, p.mixA)
	src1 := c.recoveryBlock(c.blockCount + int(mixX))
	xorAdd(block, src0, src1, c.blockBytes)
}

// DecodeFeed absorbs one received (id, block) pair. It returns Win once the
// message is solved, MoreBlocks while more are needed.
func (c *Codec) DecodeFeed(id uint32, blockIn []byte) Result {
	if c.usedCount < c.blockCount {
		rowI := c.usedCount
		if c.opportunisticPeeling(uint16(rowI), id) {
			copy(c.input[rowI*c.blockBytes:(rowI+1)*c.blockBytes], blockIn)

			c.usedCount++
			if c.usedCount == c.blockCount {
				r := c.solveMatrix()
				if r == Win {
					c.generateRecoveryBlocks()
				}
				return r
			}
		}
		return MoreBlocks
	}

	// Late block: feed it straight into the stalled elimination.
	if !c.resumeSolveMatrix(id, blockIn) {
		return MoreBlocks
	}
	c.generateRecoveryBlocks()
	return Win
}

// ReconstructOutput writes the decoded message. Source rows that arrived
// verbatim are copied; the rest are regenerated from the recovery blocks.
func (c *Codec) ReconstructOutput(messageOut []byte) {
	copied := make([]bool, c.blockCount)

	for rowI := 0; rowI < c.usedCount; rowI++ {
		id := c.peelRows[rowI].id
		if int64(id) >= int64(c.blockCount) {
			continue
		}
		n := c.blockBytes
		if int(id) == c.blockCount-1 {
			n = c.outputFinalBytes
		}
		copy(messageOut[int(id)*c.blockBytes:], c.input[rowI*c.blockBytes:rowI*c.blockBytes+n])
		copied[id] = true
	}

	scratch := c.recoveryBlock(c.blockCount + int(c.addedCount))
	for rowI := 0; rowI < c.blockCount; rowI++ {
		if copied[rowI] {
			continue
		}
		if rowI == c.blockCount-1 {
			c.regenerateBlock(uint32(rowI), scratch)
			copy(messageOut[rowI*c.blockBytes:], scratch[:c.outputFinalBytes])
			continue
		}
		c.regenerateBlock(uint32(rowI), messageOut[rowI*c.blockBytes:(rowI+1)*c.blockBytes])
	}
}
