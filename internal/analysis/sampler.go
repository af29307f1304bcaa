package analysis

import (
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
	"gonum.org/v1/gonum/stat/distuv"
)

// streams hands out random sources. When seeded, a label always maps to the
// same PCG stream, so repeated calls with the same inputs are bit-identical.
type streams struct {
	seed   uint64
	seeded bool
}

func newStreams(seed uint64, seeded bool) streams {
	return streams{seed: seed, seeded: seeded}
}

func (s streams) source(label string) rand.Source {
	if !s.seeded {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(s.seed, murmur3.Sum64([]byte(label)))
}

// drawBeta fills a fresh slice with n draws from Beta(alpha, beta).
func drawBeta(alpha, beta float64, n int, src rand.Source) []float64 {
	dist := distuv.Beta{Alpha: alpha, Beta: beta, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// fractionGreater returns the share of positions where b[i] > a[i].
func fractionGreater(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	wins := 0
	for i := range a {
		if b[i] > a[i] {
			wins++
		}
	}
	return float64(wins) / float64(len(a))
}
