package ports

// RandomState is the seeded pseudo-random generator consumed by the
// generators. Callers never seed or own the generator state; they only draw.
type RandomState interface {
	// Uniform draws n values from [lo, hi).
	Uniform(lo, hi float64, n int) []float64

	// UniformRange draws one value per element from [lo[i], hi[i]).
	UniformRange(lo, hi []float64) ([]float64, error)

	// Poisson draws one Poisson distributed count.
	Poisson(lambda float64) int

	// Normal draws n values from N(mu, sigma^2).
	Normal(mu, sigma float64, n int) []float64

	// Choice draws size indices from [0, n), optionally weighted by p and
	// with or without replacement.
	Choice(n, size int, p []float64, replace bool) ([]int, error)
}
