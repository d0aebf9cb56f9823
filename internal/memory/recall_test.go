package memory

import (
	"fmt"
	"testing"
)

// stubFollowUps is a canned FollowUpSource.
type stubFollowUps []string

func (s stubFollowUps) FollowUpConcepts(atoms []*Atom, k int) []string {
	if len(s) > k {
		return s[:k]
	}
	return s
}

// logAtom builds an archive atom with explicit recall state.
func logAtom(turn int, cat Category, score float64, lastActivated int, concepts ...string) *Atom {
	a := NewAtom(turn, cat, fmt.Sprintf("atom at turn %d", turn), concepts)
	a.ActivationScore = score
	a.LastActivatedTurn = lastActivated
	return a
}

// fillSTM appends STMCapacity atoms carrying the given concepts so the
// preceding atoms become the archive.
func fillSTM(atoms []*Atom, startTurn int, concepts ...string) []*Atom {
	for i := 0; i < STMCapacity; i++ {
		turn := startTurn + i
		atoms = append(atoms, logAtom(turn, CategoryUserMessage, 1.0, turn, concepts...))
	}
	return atoms
}

func TestRecallShortLogReturnsEmpty(t *testing.T) {
	e := NewEngine(stubFollowUps(nil))
	for n := 0; n <= STMCapacity; n++ {
		var atoms []*Atom
		for i := 0; i < n; i++ {
			atoms = append(atoms, logAtom(i+1, CategoryUserMessage, 1.0, i+1, "coffee"))
		}
		res := e.Recall(atoms, n)
		if len(res.Memories) != 0 || len(res.Axioms) != 0 {
			t.Errorf("log length %d: got %d memories, %d axioms, want empty",
				n, len(res.Memories), len(res.Axioms))
		}
	}
}

func TestRecallExcludesWorkingSetAndBoundsResults(t *testing.T) {
	e := NewEngine(stubFollowUps(nil))

	var atoms []*Atom
	for i := 0; i < 20; i++ {
		atoms = append(atoms, logAtom(i+1, CategoryConsciousThought, 1.0, i+1, "coffee"))
	}
	for i := 0; i < 10; i++ {
		atoms = append(atoms, logAtom(21+i, CategoryAxiom, 1.0, 21+i, "coffee"))
	}
	atoms = fillSTM(atoms, 31, "coffee")

	res := e.Recall(atoms, 46)
	if len(res.Memories) > MemoryLimit {
		t.Errorf("got %d memories, want <= %d", len(res.Memories), MemoryLimit)
	}
	if len(res.Axioms) > AxiomLimit {
		t.Errorf("got %d axioms, want <= %d", len(res.Axioms), AxiomLimit)
	}

	stm := atoms[len(atoms)-STMCapacity:]
	inSTM := make(map[string]bool, len(stm))
	for _, a := range stm {
		inSTM[a.ID] = true
	}
	for _, a := range append(res.Memories, res.Axioms...) {
		if inSTM[a.ID] {
			t.Errorf("recalled atom %s is inside the working set", a.ID)
		}
	}
}

func TestRecallScoringPipeline(t *testing.T) {
	// Predicted follow-up "fu1" joins the expanded set; "s1"/"s2" come
	// from the working set directly.
	e := NewEngine(stubFollowUps{"fu1"})

	a := logAtom(1, CategoryConsciousThought, 1.0, 10, "s1", "fu1")       // resonance 2 + 2.0 = 4
	b := logAtom(2, CategoryConsciousThought, 1.0, 10, "s1", "s2")        // resonance 2
	c := logAtom(3, CategoryConsciousThought, 1.0, 10, "s1", "s2", "fu1") // resonance 3 + 2.0 = 5
	d := logAtom(4, CategoryConsciousThought, 1.0, 10, "unrelated")       // resonance 0: dropped
	pad := logAtom(5, CategoryConsciousThought, 1.0, 10, "nothing")       // resonance 0: dropped

	atoms := []*Atom{a, b, c, d, pad}
	atoms = fillSTM(atoms, 6, "s1", "s2")

	res := e.Recall(atoms, 20)
	if len(res.Memories) != 3 {
		t.Fatalf("got %d memories, want 3 (zero-resonance atoms dropped)", len(res.Memories))
	}
	wantOrder := []*Atom{c, a, b}
	for i, want := range wantOrder {
		if res.Memories[i].ID != want.ID {
			t.Errorf("memories[%d] = turn %d, want turn %d", i, res.Memories[i].Turn, want.Turn)
		}
	}
	// Returned atoms are the canonical, non-decayed originals.
	if res.Memories[1].ActivationScore != 1.0 {
		t.Errorf("canonical atom mutated: activation %v, want 1.0", res.Memories[1].ActivationScore)
	}
	if res.Memories[1].LastActivatedTurn != 10 {
		t.Errorf("canonical atom mutated: last activated %d, want 10", res.Memories[1].LastActivatedTurn)
	}
}

func TestRecallAxiomAsymmetry(t *testing.T) {
	// Axioms match only working-set concepts: the follow-up boost that
	// general memories get does not apply.
	e := NewEngine(stubFollowUps{"fu1"})

	axiomStrong := logAtom(1, CategoryAxiom, 1.0, 10, "s1", "s2", "s3") // 2 * 3 = 6
	axiomWeak := logAtom(2, CategoryAxiom, 1.0, 10, "s1")               // 2 * 1 = 2
	axiomFuOnly := logAtom(3, CategoryAxiom, 1.0, 10, "fu1")            // no STM overlap: dropped
	general := logAtom(4, CategoryConsciousThought, 1.0, 10, "s1", "s2", "s3")

	atoms := []*Atom{axiomStrong, axiomWeak, axiomFuOnly, general}
	atoms = fillSTM(atoms, 5, "s1", "s2", "s3")

	res := e.Recall(atoms, 20)
	if len(res.Axioms) != 2 {
		t.Fatalf("got %d axioms, want 2", len(res.Axioms))
	}
	if res.Axioms[0].ID != axiomStrong.ID || res.Axioms[1].ID != axiomWeak.ID {
		t.Errorf("axiom order wrong: got turns %d,%d want %d,%d",
			res.Axioms[0].Turn, res.Axioms[1].Turn, axiomStrong.Turn, axiomWeak.Turn)
	}
	// Axioms never leak into the general pool, and vice versa.
	if len(res.Memories) != 1 || res.Memories[0].ID != general.ID {
		t.Errorf("general pool = %d atoms, want just the non-axiom", len(res.Memories))
	}
}

func TestRecallSubconsciousReflectionBonus(t *testing.T) {
	e := NewEngine(stubFollowUps(nil))

	plain := logAtom(1, CategoryConsciousThought, 1.0, 10, "s1")
	// Same overlap and decay, later in the log: only the 1.1 multiplier
	// can put it first.
	reflection := logAtom(2, CategorySubconsciousReflection, 1.0, 10, "s1")

	atoms := []*Atom{plain, reflection}
	atoms = fillSTM(atoms, 3, "s1")

	res := e.Recall(atoms, 20)
	if len(res.Memories) != 2 {
		t.Fatalf("got %d memories, want 2", len(res.Memories))
	}
	if res.Memories[0].ID != reflection.ID {
		t.Error("subconscious reflection should outrank an equal plain memory")
	}
}

func TestRecallStableTieBreakByLogOrder(t *testing.T) {
	e := NewEngine(stubFollowUps(nil))

	first := logAtom(1, CategoryConsciousThought, 1.0, 10, "s1")
	second := logAtom(2, CategoryConsciousThought, 1.0, 10, "s1")
	third := logAtom(3, CategoryConsciousThought, 1.0, 10, "s1")

	atoms := []*Atom{first, second, third}
	atoms = fillSTM(atoms, 4, "s1")

	res := e.Recall(atoms, 20)
	if len(res.Memories) != 3 {
		t.Fatalf("got %d memories, want 3", len(res.Memories))
	}
	for i, want := range []*Atom{first, second, third} {
		if res.Memories[i].ID != want.ID {
			t.Errorf("tie-break broke log order at %d", i)
		}
	}
}

func TestRecallFinalScoreIsResonanceTimesDecay(t *testing.T) {
	e := NewEngine(stubFollowUps(nil))

	// x: resonance 2, one turn old -> 2 * 0.5          = 1.0
	// y: resonance 1, ten turns old -> 1 * (143/144)   ~ 0.993
	// z: resonance 1, one turn old -> 1 * 0.5          = 0.5
	// Only the product ordering explains x > y > z.
	x := logAtom(1, CategoryConsciousThought, 1.0, 19, "s1", "s2")
	y := logAtom(2, CategoryConsciousThought, 1.0, 10, "s1")
	z := logAtom(3, CategoryConsciousThought, 1.0, 19, "s2")

	atoms := []*Atom{x, y, z}
	atoms = fillSTM(atoms, 4, "s1", "s2")

	res := e.Recall(atoms, 20)
	if len(res.Memories) != 3 {
		t.Fatalf("got %d memories, want 3", len(res.Memories))
	}
	for i, want := range []*Atom{x, y, z} {
		if res.Memories[i].ID != want.ID {
			t.Fatalf("memories[%d] = turn %d, want turn %d",
				i, res.Memories[i].Turn, want.Turn)
		}
	}
}
