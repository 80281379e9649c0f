package dropper

import (
	"math/rand"
)

// Dropper decides per datagram whether the simulated channel loses it.
type Dropper interface {
	Drop() bool
}

// Bernoulli drops each datagram independently with probability p.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

func NewBernoulli(p float64, rng *rand.Rand) *Bernoulli { return &Bernoulli{p: p, rng: rng} }

func (b *Bernoulli) Drop() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// GilbertElliott is the classic two-state burst loss model: a good state
// with loss pGood, a bad state with loss pBad, and per-datagram transition
// probabilities between them. Fountain codes care about this because burst
// losses hit consecutive ids, unlike the independent Bernoulli losses.
type GilbertElliott struct {
	pGood, pBad            float64
	pGoodToBad, pBadToGood float64
	bad                    bool
	rng                    *rand.Rand
}

func NewGilbertElliott(pGood, pBad, pGoodToBad, pBadToGood float64, rng *rand.Rand) *GilbertElliott {
	return &GilbertElliott{
		pGood:      pGood,
		pBad:       pBad,
		pGoodToBad: pGoodToBad,
		pBadToGood: pBadToGood,
		rng:        rng,
	}
}

func (g *GilbertElliott) Drop() bool {
	if g.bad {
		if g.rng.Float64() < g.pBadToGood {
			g.bad = false
		}
	} else {
		if g.rng.Float64() < g.pGoodToBad {
			g.bad = true
		}
	}
	p := g.pGood
	if g.bad {
		p = g.pBad
	}
	return g.rng.Float64() < p
}
