package fec

import "testing"

func TestShuffleDeck16IsPermutation(t *testing.T) {
	for _, count := range []uint32{1, 2, 3, 4, 5, 8, 100, 255, 256, 257, 300, 512} {
		var prng prng32
		prng.seed(count)
		deck := make([]uint16, count)
		shuffleDeck16(&prng, deck, count)

		seen := make([]bool, count)
		for _, v := range deck {
			if uint32(v) >= count || seen[v] {
				t.Fatalf("count %d: deck is not a permutation", count)
			}
			seen[v] = true
		}
	}
}

func TestShuffleDeck16Deterministic(t *testing.T) {
	var a, b prng32
	a.seed(99)
	b.seed(99)
	d1 := make([]uint16, 64)
	d2 := make([]uint16, 64)
	shuffleDeck16(&a, d1, 64)
	shuffleDeck16(&b, d2, 64)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("decks diverged at %d", i)
		}
	}
}

// rankGF2 runs plain elimination over a pitched bitmatrix and returns the
// rank of its leading n columns.
func rankGF2(matrix []uint64, pitch, n int) int {
	rows := make([][]uint64, n)
	for i := 0; i < n; i++ {
		rows[i] = append([]uint64(nil), matrix[i*pitch:(i+1)*pitch]...)
	}
	rank := 0
	for col := 0; col < n && rank < n; col++ {
		word := col >> 6
		mask := uint64(1) << (col & 63)
		pivot := -1
		for i := rank; i < n; i++ {
			if rows[i][word]&mask != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			continue
		}
		rows[rank], rows[pivot] = rows[pivot], rows[rank]
		for i := 0; i < n; i++ {
			if i != rank && rows[i][word]&mask != 0 {
				for w := range rows[i] {
					rows[i][w] ^= rows[rank][w]
				}
			}
		}
		rank++
	}
	return rank
}

func TestAddInvertibleMatrix(t *testing.T) {
	// Every tabulated size must produce a full-rank matrix; sample across
	// the table plus each boundary.
	sizes := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 15, 16, 17, 31, 32, 33,
		63, 64, 65, 100, 127, 128, 200, 255, 256, 300, 400, 511}
	for _, n := range sizes {
		pitch := (n + 63) / 64
		matrix := make([]uint64, n*pitch)
		addInvertibleMatrix(matrix, 0, pitch, n)
		if rank := rankGF2(matrix, pitch, n); rank != n {
			t.Fatalf("n=%d: rank %d, want %d", n, rank, n)
		}
	}
}

func TestAddInvertibleMatrixOffset(t *testing.T) {
	// Shifted placement must put the same bits at the offset columns.
	const n = 37
	const offset = 21
	pitch := (offset + n + 63) / 64

	plain := make([]uint64, n*((n+63)/64))
	addInvertibleMatrix(plain, 0, (n+63)/64, n)

	shifted := make([]uint64, n*pitch)
	addInvertibleMatrix(shifted, offset, pitch, n)

	for r := 0; r < n; r++ {
		for cIdx := 0; cIdx < n; cIdx++ {
			pb := plain[r*((n+63)/64)+cIdx>>6]&(1<<(cIdx&63)) != 0
			sc := offset + cIdx
			sb := shifted[r*pitch+sc>>6]&(1<<(sc&63)) != 0
			if pb != sb {
				t.Fatalf("bit (%d,%d) differs between plain and offset placement", r, cIdx)
			}
		}
	}
}

func TestAddInvertibleMatrixLargeIsIdentity(t *testing.T) {
	const n = 512
	pitch := (n + 63) / 64
	matrix := make([]uint64, n*pitch)
	addInvertibleMatrix(matrix, 0, pitch, n)
	for r := 0; r < n; r++ {
		for w := 0; w < pitch; w++ {
			want := uint64(0)
			if r>>6 == w {
				want = 1 << (r & 63)
			}
			if matrix[r*pitch+w] != want {
				t.Fatalf("row %d word %d: got %#x, want %#x", r, w, matrix[r*pitch+w], want)
			}
		}
	}
}
