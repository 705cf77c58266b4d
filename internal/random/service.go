// Package random provides the seeded random state shared by the background
// and signal generators.
package random

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"gollh/domain/core"
)

// Service is a seeded PCG generator. It is not safe for concurrent use;
// derive one stream per goroutine with Stream.
type Service struct {
	seed uint64
	src  *rand.PCG
	rng  *rand.Rand
}

// NewService creates a generator seeded with seed.
func NewService(seed uint64) *Service {
	s := &Service{}
	s.Reseed(seed)
	return s
}

// Seed returns the seed the generator was last seeded with.
func (s *Service) Seed() uint64 { return s.seed }

// Reseed resets the generator state.
func (s *Service) Reseed(seed uint64) {
	s.seed = seed
	s.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	s.rng = rand.New(s.src)
}

// Stream derives an independent, deterministic generator for a named task.
func (s *Service) Stream(name string) *Service {
	return NewService(s.seed + uint64(hashString(name)))
}

// Rand exposes the underlying generator.
func (s *Service) Rand() *rand.Rand { return s.rng }

func (s *Service) Uniform(lo, hi float64, n int) []float64 {
	d := distuv.Uniform{Min: lo, Max: hi, Src: s.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (s *Service) UniformRange(lo, hi []float64) ([]float64, error) {
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("%w: %d lower and %d upper bounds", core.ErrShapeMismatch, len(lo), len(hi))
	}
	out := make([]float64, len(lo))
	for i := range out {
		out[i] = lo[i] + (hi[i]-lo[i])*s.rng.Float64()
	}
	return out, nil
}

func (s *Service) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

func (s *Service) Normal(mu, sigma float64, n int) []float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// Choice follows numpy's random.choice: p, when given, must hold n
// non-negative weights that are normalized before drawing.
func (s *Service) Choice(n, size int, p []float64, replace bool) ([]int, error) {
	if n < 0 || size < 0 {
		return nil, core.NewValidationError("choice", fmt.Sprintf("negative population %d or size %d", n, size))
	}
	if size == 0 {
		return []int{}, nil
	}
	if n == 0 {
		return nil, core.NewValidationError("choice", "cannot draw from an empty population")
	}
	if !replace && size > n {
		return nil, core.NewValidationError("choice", fmt.Sprintf("cannot take %d unique samples from %d", size, n))
	}
	if p == nil {
		if replace {
			out := make([]int, size)
			for i := range out {
				out[i] = s.rng.IntN(n)
			}
			return out, nil
		}
		return s.rng.Perm(n)[:size], nil
	}

	if len(p) != n {
		return nil, fmt.Errorf("%w: %d probabilities for %d elements", core.ErrShapeMismatch, len(p), n)
	}
	nonZero := 0
	for _, v := range p {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewValidationError("choice", "probabilities must be finite and non-negative")
		}
		if v > 0 {
			nonZero++
		}
	}
	total := floats.Sum(p)
	if total <= 0 {
		return nil, core.NewDegenerateError("choice", "probabilities sum to zero")
	}
	if !replace {
		if size > nonZero {
			return nil, core.NewValidationError("choice", "fewer non-zero entries in p than size")
		}
		w := sampleuv.NewWeighted(p, s.src)
		out := make([]int, size)
		for i := range out {
			idx, ok := w.Take()
			if !ok {
				return nil, core.NewDegenerateError("choice", "weighted population exhausted")
			}
			out[i] = idx
		}
		return out, nil
	}

	cdf := make([]float64, n)
	floats.CumSum(cdf, p)
	out := make([]int, size)
	for i := range out {
		u := s.rng.Float64() * total
		idx := sort.SearchFloat64s(cdf, u)
		// skip zero-weight entries sharing the same cumulative value
		for idx < n-1 && (cdf[idx] <= u || p[idx] == 0) {
			idx++
		}
		out[i] = idx
	}
	return out, nil
}

// hashString is djb2.
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
