package fec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomMessage(t *testing.T, n int, seed int64) []byte {
	t.Helper()
	msg := make([]byte, n)
	rng := rand.New(rand.NewSource(seed))
	rng.Read(msg)
	return msg
}

func TestEncoderSystematic(t *testing.T) {
	const k, b = 16, 64
	msg := randomMessage(t, k*b, 1)

	var codec Codec
	require.Equal(t, Win, codec.InitEncoder(len(msg), b))
	require.Equal(t, Win, codec.EncodeFeed(msg))

	out := make([]byte, b)
	for id := 0; id < k; id++ {
		codec.Encode(uint32(id), out)
		require.Equal(t, msg[id*b:(id+1)*b], out, "systematic block %d", id)
	}
}

func TestEncoderSystematicPartialFinal(t *testing.T) {
	const b = 64
	msg := randomMessage(t, 15*b+40, 2) // K=16, final block 40 bytes

	var codec Codec
	require.Equal(t, Win, codec.InitEncoder(len(msg), b))
	require.Equal(t, 16, codec.BlockCount())
	require.Equal(t, Win, codec.EncodeFeed(msg))

	out := make([]byte, b)
	codec.Encode(15, out)
	require.Equal(t, msg[15*b:], out[:40])
	require.Equal(t, make([]byte, b-40), out[40:], "final block padding")
}

func TestUnsupportedBlockCount(t *testing.T) {
	var codec Codec
	require.Equal(t, BadInput, codec.InitEncoder(17*64, 64))
	require.Equal(t, BadInput, codec.InitDecoder(17*64, 64))
	require.Equal(t, BadInput, codec.InitEncoder(0, 64))
	require.Equal(t, BadInput, codec.InitEncoder(64, 0))
}

// feedUntilSolved pushes blocks from the encoder in the order of ids and
// requires the decoder to finish before maxID.
func feedUntilSolved(t *testing.T, enc *Codec, dec *Codec, ids []uint32, maxID uint32) {
	t.Helper()
	block := make([]byte, enc.BlockBytes())
	for _, id := range ids {
		enc.Encode(id, block)
		if dec.DecodeFeed(id, block) == Win {
			return
		}
	}
	next := uint32(enc.BlockCount())
	if len(ids) > 0 && ids[len(ids)-1] >= next {
		next = ids[len(ids)-1] + 1
	}
	for ; next < maxID; next++ {
		enc.Encode(next, block)
		if dec.DecodeFeed(next, block) == Win {
			return
		}
	}
	t.Fatalf("decoder did not solve before id %d", maxID)
}

func roundTrip(t *testing.T, k, b int, lost []uint32, seed int64) {
	t.Helper()
	msg := randomMessage(t, k*b, seed)

	var enc Codec
	require.Equal(t, Win, enc.InitEncoder(len(msg), b))
	require.Equal(t, Win, enc.EncodeFeed(msg))

	var dec Codec
	require.Equal(t, Win, dec.InitDecoder(len(msg), b))

	lostSet := make(map[uint32]bool, len(lost))
	for _, id := range lost {
		lostSet[id] = true
	}
	var ids []uint32
	for id := uint32(0); int(id) < k; id++ {
		if !lostSet[id] {
			ids = append(ids, id)
		}
	}

	feedUntilSolved(t, &enc, &dec, ids, uint32(k+256))

	out := make([]byte, len(msg))
	dec.ReconstructOutput(out)
	require.True(t, bytes.Equal(msg, out), "reconstruction mismatch")
}

func TestDecodeNoLoss(t *testing.T) {
	roundTrip(t, 16, 64, nil, 3)
}

func TestDecodeWithLosses(t *testing.T) {
	roundTrip(t, 64, 1024, []uint32{7, 19, 40, 55}, 4)
}

func TestDecodeManyLosses(t *testing.T) {
	lost := make([]uint32, 0, 32)
	rng := rand.New(rand.NewSource(5))
	for len(lost) < 32 {
		id := uint32(rng.Intn(128))
		dup := false
		for _, v := range lost {
			if v == id {
				dup = true
				break
			}
		}
		if !dup {
			lost = append(lost, id)
		}
	}
	roundTrip(t, 128, 32, lost, 6)
}

func TestDecodeAllRepairBlocks(t *testing.T) {
	// Every systematic block lost: decode entirely from repair ids.
	const k, b = 256, 16
	msg := randomMessage(t, k*b, 7)

	var enc Codec
	require.Equal(t, Win, enc.InitEncoder(len(msg), b))
	require.Equal(t, Win, enc.EncodeFeed(msg))

	var dec Codec
	require.Equal(t, Win, dec.InitDecoder(len(msg), b))

	block := make([]byte, b)
	solved := false
	for id := uint32(k); id < k+k+256; id++ {
		enc.Encode(id, block)
		if dec.DecodeFeed(id, block) == Win {
			solved = true
			break
		}
	}
	require.True(t, solved, "decoder did not solve from repair blocks")

	out := make([]byte, len(msg))
	dec.ReconstructOutput(out)
	require.True(t, bytes.Equal(msg, out))
}

func TestDecodePartialFinalBlock(t *testing.T) {
	const k, b = 64, 128
	msg := randomMessage(t, (k-1)*b+37, 8)

	var enc Codec
	require.Equal(t, Win, enc.InitEncoder(len(msg), b))
	require.Equal(t, Win, enc.EncodeFeed(msg))

	var dec Codec
	require.Equal(t, Win, dec.InitDecoder(len(msg), b))

	// Lose the final (partial) block and a few others.
	feedUntilSolved(t, &enc, &dec, idsWithout(k, 5, 63, 30), uint32(k+128))

	out := make([]byte, len(msg))
	dec.ReconstructOutput(out)
	require.True(t, bytes.Equal(msg, out))
}

func idsWithout(k int, lost ...uint32) []uint32 {
	lostSet := make(map[uint32]bool, len(lost))
	for _, id := range lost {
		lostSet[id] = true
	}
	ids := make([]uint32, 0, k)
	for id := uint32(0); int(id) < k; id++ {
		if !lostSet[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func TestEncoderDeterminism(t *testing.T) {
	const k, b = 256, 8
	msg := randomMessage(t, k*b, 9)

	var a, c Codec
	require.Equal(t, Win, a.InitEncoder(len(msg), b))
	require.Equal(t, Win, a.EncodeFeed(msg))
	require.Equal(t, Win, c.InitEncoder(len(msg), b))
	require.Equal(t, Win, c.EncodeFeed(msg))

	outA := make([]byte, b)
	outC := make([]byte, b)
	for id := uint32(0); id < 2*k; id++ {
		a.Encode(id, outA)
		c.Encode(id, outC)
		require.Equal(t, outA, outC, "id %d", id)
	}
}

func TestRepairBlocksDiffer(t *testing.T) {
	// Repair rows are random-looking combinations; consecutive ids must not
	// collapse to the same block for random payloads.
	const k, b = 64, 32
	msg := randomMessage(t, k*b, 10)

	var enc Codec
	require.Equal(t, Win, enc.InitEncoder(len(msg), b))
	require.Equal(t, Win, enc.EncodeFeed(msg))

	blocks := make(map[string]uint32)
	out := make([]byte, b)
	for id := uint32(k); id < k+64; id++ {
		enc.Encode(id, out)
		if prev, dup := blocks[string(out)]; dup {
			t.Fatalf("repair blocks %d and %d identical", prev, id)
		}
		blocks[string(out)] = id
	}
}

func TestPeelingInvariants(t *testing.T) {
	const k, b = 1024, 8
	msg := randomMessage(t, k*b, 11)

	var codec Codec
	require.Equal(t, Win, codec.InitEncoder(len(msg), b))
	require.Equal(t, Win, codec.EncodeFeed(msg))

	// Every column ends peeled or deferred.
	peeled, deferred := 0, 0
	for i := range codec.peelCols {
		switch codec.peelCols[i].mark {
		case markPeeled:
			peeled++
		case markDeferred:
			deferred++
		default:
			t.Fatalf("column %d still unmarked after solve", i)
		}
	}
	require.Equal(t, k, peeled+deferred)
	require.Equal(t, int(codec.deferCount), deferred)

	// The deferred set should be far below K for the shipped distribution.
	require.Less(t, deferred, k/4, "deferral did not stay sparse")

	// Peeled rows claim distinct columns and the claim maps both ways.
	seen := make(map[uint16]bool)
	for rowI := codec.peelHeadRows; rowI != listTerm; rowI = codec.peelRows[rowI].next {
		col := codec.peelRows[rowI].peelColumn
		require.False(t, seen[col], "column %d claimed twice", col)
		seen[col] = true
		require.Equal(t, rowI, codec.peelCols[col].peelRow)
		require.Equal(t, uint8(markPeeled), codec.peelCols[col].mark)
	}
	require.Len(t, seen, peeled)

	// Reference list bookkeeping: total refs equal total row weight.
	totalRefs := 0
	for i := range codec.peelColRefs {
		totalRefs += len(codec.peelColRefs[i])
	}
	totalWeight := 0
	for i := 0; i < k; i++ {
		totalWeight += int(codec.peelRows[i].params.peelWeight)
	}
	require.Equal(t, totalWeight, totalRefs)
}

func TestTriangleInvariant(t *testing.T) {
	const k, b = 256, 8
	msg := randomMessage(t, k*b, 12)

	var codec Codec
	require.Equal(t, Win, codec.InitEncoder(len(msg), b))
	require.Equal(t, Win, codec.EncodeFeed(msg))

	// Rebuild the matrix as it stood before elimination.
	var ref Codec
	require.Equal(t, Win, ref.InitEncoder(len(msg), b))
	ref.setInput(msg)
	for id := 0; id < k; id++ {
		require.True(t, ref.opportunisticPeeling(uint16(id), uint32(id)))
	}
	ref.usedCount = k
	ref.greedyPeeling()
	ref.allocateMatrix()
	ref.setDeferredColumns()
	ref.setMixingColumnsForDeferredRows()
	ref.peelDiagonal()
	ref.copyDeferredRows()
	ref.multiplyDenseRows()
	addInvertibleMatrix(ref.geMatrix, int(ref.deferCount), ref.gePitch, int(ref.addedCount))

	// Bits left of the diagonal record which earlier pivot rows were added:
	// bit j set means pivot row j, above its own bit j, was XORed in. Undoing
	// those additions gives back the row before elimination.
	pivotCount := int(codec.deferCount) + int(codec.addedCount)
	for pivotI := 0; pivotI < pivotCount; pivotI++ {
		geRowI := int(codec.gePivots[pivotI])
		row := codec.geMatrixRow(geRowI)
		if row[pivotI>>6]&(1<<(pivotI&63)) == 0 {
			t.Fatalf("pivot %d: diagonal bit clear", pivotI)
		}
		undone := append([]uint64(nil), row...)
		for j := 0; j < pivotI; j++ {
			if row[j>>6]&(1<<(j&63)) == 0 {
				continue
			}
			piv := codec.geMatrixRow(int(codec.gePivots[j]))
			w := j >> 6
			undone[w] ^= piv[w] &^ ((uint64(2) << (j & 63)) - 1)
			for ii := w + 1; ii < len(piv); ii++ {
				undone[ii] ^= piv[ii]
			}
		}
		require.Equal(t, ref.geMatrixRow(geRowI), undone, "pivot %d", pivotI)
	}
}

func TestResumeAfterStall(t *testing.T) {
	const k, b = 128, 16
	msg := randomMessage(t, k*b, 13)

	var enc Codec
	require.Equal(t, Win, enc.InitEncoder(len(msg), b))
	require.Equal(t, Win, enc.EncodeFeed(msg))

	var dec Codec
	require.Equal(t, Win, dec.InitDecoder(len(msg), b))

	// 127 of the first 128 ids: the decoder must keep asking.
	block := make([]byte, b)
	for id := uint32(0); id < k-1; id++ {
		enc.Encode(id, block)
		require.Equal(t, MoreBlocks, dec.DecodeFeed(id, block))
	}

	// Feed repair rows until the stalled pivot is supplied.
	solved := false
	for id := uint32(k); id < k+256; id++ {
		enc.Encode(id, block)
		if dec.DecodeFeed(id, block) == Win {
			solved = true
			break
		}
	}
	require.True(t, solved)

	out := make([]byte, len(msg))
	dec.ReconstructOutput(out)
	require.True(t, bytes.Equal(msg, out))
}

func TestLargeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("large block count")
	}
	roundTrip(t, 1024, 256, []uint32{1, 100, 512, 1000, 1023}, 14)
}

func BenchmarkEncodeFeed(bench *testing.B) {
	const k, b = 1024, 1500
	msg := make([]byte, k*b)
	rng := rand.New(rand.NewSource(20))
	rng.Read(msg)

	bench.SetBytes(int64(len(msg)))
	bench.ResetTimer()
	for i := 0; i < bench.N; i++ {
		var codec Codec
		if codec.InitEncoder(len(msg), b) != Win {
			bench.Fatal("init failed")
		}
		if codec.EncodeFeed(msg) != Win {
			bench.Fatal("feed failed")
		}
	}
}

func BenchmarkEncodeRepairBlock(bench *testing.B) {
	const k, b = 1024, 1500
	msg := make([]byte, k*b)
	rng := rand.New(rand.NewSource(21))
	rng.Read(msg)

	var codec Codec
	if codec.InitEncoder(len(msg), b) != Win {
		bench.Fatal("init failed")
	}
	if codec.EncodeFeed(msg) != Win {
		bench.Fatal("feed failed")
	}

	out := make([]byte, b)
	bench.SetBytes(b)
	bench.ResetTimer()
	for i := 0; i < bench.N; i++ {
		codec.Encode(uint32(k)+uint32(i), out)
	}
}
