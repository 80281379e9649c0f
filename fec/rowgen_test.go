package fec

import "testing"

func TestWeightDistTable(t *testing.T) {
	for i := 1; i < len(weightDist); i++ {
		if weightDist[i] <= weightDist[i-1] {
			t.Fatalf("weightDist not strictly increasing at %d", i)
		}
	}
	if weightDist[len(weightDist)-1] != 1<<20 {
		t.Fatalf("weightDist tail = %d, want 2^20", weightDist[len(weightDist)-1])
	}
}

func TestPeelRowWeight(t *testing.T) {
	if w := peelRowWeight(0, 100); w != 1 {
		t.Fatalf("draw 0 gave weight %d, want 1", w)
	}
	if w := peelRowWeight(0xfffff, 100); w != 30 {
		t.Fatalf("max draw gave weight %d, want 30", w)
	}
	if w := peelRowWeight(0xfffff, 3); w != 3 {
		t.Fatalf("clamp failed: got %d, want 3", w)
	}
	// Boundary draws map to the right buckets.
	if w := peelRowWeight(5242, 100); w != 1 {
		t.Fatalf("draw 5242 gave weight %d, want 1", w)
	}
	if w := peelRowWeight(5243, 100); w != 2 {
		t.Fatalf("draw 5243 gave weight %d, want 2", w)
	}
}

func TestIterateNextColumnCoversAll(t *testing.T) {
	for _, m := range []uint16{16, 17, 64, 100} {
		p := nextPrime16(m)
		for a := uint16(1); a < m; a++ {
			seen := make(map[uint16]bool, m)
			x := uint16(0)
			seen[x] = true
			for i := 0; i < int(m)-1; i++ {
				x = iterateNextColumn(x, m, p, a)
				if x >= m {
					t.Fatalf("m=%d a=%d escaped range: %d", m, a, x)
				}
				if seen[x] {
					t.Fatalf("m=%d a=%d revisited column %d early", m, a, x)
				}
				seen[x] = true
			}
		}
	}
}

func TestGeneratePeelRowRanges(t *testing.T) {
	const k, h = 1024, 30
	for id := uint32(0); id < 4096; id++ {
		p := generatePeelRow(id, 0xabad1dea, k, h)
		if p.peelWeight < 1 || p.peelWeight > k-1 {
			t.Fatalf("id %d: peel weight %d out of range", id, p.peelWeight)
		}
		if p.peelA < 1 || p.peelA > k-1 {
			t.Fatalf("id %d: peel a %d out of range", id, p.peelA)
		}
		if p.peelX0 >= k {
			t.Fatalf("id %d: peel x0 %d out of range", id, p.peelX0)
		}
		if p.mixA < 1 || p.mixA > h-1 {
			t.Fatalf("id %d: mix a %d out of range", id, p.mixA)
		}
		if p.mixX0 >= h {
			t.Fatalf("id %d: mix x0 %d out of range", id, p.mixX0)
		}
	}
}

func TestGeneratePeelRowDeterministic(t *testing.T) {
	for id := uint32(0); id < 256; id++ {
		a := generatePeelRow(id, 7, 256, 19)
		b := generatePeelRow(id, 7, 256, 19)
		if a != b {
			t.Fatalf("id %d: params not reproducible", id)
		}
	}
	if generatePeelRow(5, 7, 256, 19) == generatePeelRow(5, 8, 256, 19) {
		t.Fatal("different seeds produced identical params")
	}
}
