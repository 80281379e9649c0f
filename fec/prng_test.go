package fec

import "testing"

func TestPrngReproducible(t *testing.T) {
	var a, b prng32
	a.seed2(1234, 5678)
	b.seed2(1234, 5678)
	for i := 0; i < 1000; i++ {
		if av, bv := a.next(), b.next(); av != bv {
			t.Fatalf("draw %d diverged: %#x != %#x", i, av, bv)
		}
	}
}

func TestPrngSeedsMatter(t *testing.T) {
	var a, b, c prng32
	a.seed2(1, 2)
	b.seed2(2, 1)
	c.seed(1)
	same := 0
	for i := 0; i < 64; i++ {
		av, bv, cv := a.next(), b.next(), c.next()
		if av == bv && bv == cv {
			same++
		}
	}
	if same > 2 {
		t.Fatalf("differently seeded streams matched %d of 64 draws", same)
	}
}

func TestPrngSpread(t *testing.T) {
	// Cheap sanity check that consecutive draws are not degenerate: all four
	// byte lanes of the output should take many values over a small run.
	var p prng32
	p.seed(42)
	var seen [4]map[byte]bool
	for i := range seen {
		seen[i] = make(map[byte]bool)
	}
	for i := 0; i < 1024; i++ {
		v := p.next()
		for lane := 0; lane < 4; lane++ {
			seen[lane][byte(v>>(8*lane))] = true
		}
	}
	for lane, m := range seen {
		if len(m) < 200 {
			t.Fatalf("byte lane %d hit only %d of 256 values", lane, len(m))
		}
	}
}
