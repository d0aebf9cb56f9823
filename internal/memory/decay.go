package memory

// fibCap bounds the Fibonacci table. Values past index 40 clamp to
// fib(40), so the decay rate stops growing for very old atoms.
const fibCap = 40

// fibTable is computed once at init; Decay runs once per archive atom
// per recall, so the sequence is never recomputed per call.
var fibTable = buildFibTable()

func buildFibTable() [fibCap + 1]uint64 {
	var t [fibCap + 1]uint64
	t[0], t[1] = 0, 1
	for i := 2; i <= fibCap; i++ {
		t[i] = t[i-1] + t[i-2]
	}
	return t
}

// Fib returns the nth Fibonacci number, clamped at index 40.
// The result is always >= 1, so divisions by it are safe.
func Fib(n int) uint64 {
	if n > fibCap {
		n = fibCap
	}
	if n < 0 {
		n = 0
	}
	if v := fibTable[n]; v > 1 {
		return v
	}
	return 1
}

// Decay converts elapsed turns into a multiplicative decay on score.
// Fresh atoms (turnsOld <= 0) pass through unchanged. The +2 index
// offset keeps a single unused turn from collapsing the score, and the
// result never drops below the activation floor.
func Decay(score float64, turnsOld int) float64 {
	if turnsOld <= 0 {
		return score
	}
	factor := 1.0 / float64(Fib(turnsOld+2))
	decayed := score * (1.0 - factor)
	if decayed < MinActivation {
		return MinActivation
	}
	return decayed
}
