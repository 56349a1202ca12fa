package randomize

// Shuffle returns a permuted copy of items using a seeded Fisher-Yates pass.
// The input slice is left untouched.
func Shuffle[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)

	rng := NewSeededRandom(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
