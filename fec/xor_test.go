package fec

import (
	"math/rand"
	"testing"
)

func TestXorKernels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	// Odd lengths exercise the tail loop after the word-wide body.
	for _, n := range []int{0, 1, 7, 8, 9, 63, 64, 65, 1500} {
		a := make([]byte, n)
		b := make([]byte, n)
		d := make([]byte, n)
		rng.Read(a)
		rng.Read(b)
		rng.Read(d)

		want := make([]byte, n)
		for i := 0; i < n; i++ {
			want[i] = d[i] ^ a[i]
		}
		got := append([]byte(nil), d...)
		xorBlock(got, a, n)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("xorBlock n=%d byte %d", n, i)
			}
		}

		got = make([]byte, n)
		xorSet(got, a, b, n)
		for i := 0; i < n; i++ {
			if got[i] != a[i]^b[i] {
				t.Fatalf("xorSet n=%d byte %d", n, i)
			}
		}

		got = append([]byte(nil), d...)
		xorAdd(got, a, b, n)
		for i := 0; i < n; i++ {
			if got[i] != d[i]^a[i]^b[i] {
				t.Fatalf("xorAdd n=%d byte %d", n, i)
			}
		}
	}
}
