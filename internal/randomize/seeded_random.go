// Package randomize derives reproducible question orders and option labels
// from integer seeds.
package randomize

const (
	modulus    int64 = 2147483647 // 2^31 - 1
	multiplier int64 = 16807
)

// SeededRandom is a Park-Miller minimal standard generator.
// The same seed always yields the same sequence.
type SeededRandom struct {
	state int64
}

// NewSeededRandom creates a generator. Any seed is accepted; it is folded into
// [1, modulus-1] because zero is an absorbing state.
func NewSeededRandom(seed int64) *SeededRandom {
	state := seed % modulus
	if state <= 0 {
		state += modulus - 1
	}
	return &SeededRandom{state: state}
}

// Next advances the generator and returns a float in [0, 1)
func (r *SeededRandom) Next() float64 {
	r.state = r.state * multiplier % modulus
	return float64(r.state-1) / float64(modulus-1)
}
