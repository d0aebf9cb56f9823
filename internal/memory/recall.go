package memory

import "sort"

// Recall tuning constants.
const (
	// STMCapacity is the size of the short-term working set. Logs at or
	// below this length have no archive to recall from.
	STMCapacity = 15

	// MemoryLimit and AxiomLimit bound the two result pools.
	MemoryLimit = 5
	AxiomLimit  = 3

	// FollowUpLimit is how many predicted concepts expand the query.
	FollowUpLimit = 10

	// followUpWeight double-counts overlap with predicted concepts
	// relative to plain working-set overlap.
	followUpWeight = 2.0

	// axiomWeight scales axiom overlap with the working set.
	axiomWeight = 2.0

	// reflectionBonus slightly favors subconscious reflections.
	reflectionBonus = 1.1
)

// FollowUpSource supplies predicted follow-up concepts for a set of
// atoms. The association graph is the production implementation.
type FollowUpSource interface {
	FollowUpConcepts(atoms []*Atom, k int) []string
}

// RecallResult holds the two independently ranked pools. Entries are
// references to the canonical, non-decayed atoms.
type RecallResult struct {
	Memories []*Atom `json:"memories"`
	Axioms   []*Atom `json:"axioms"`
}

// Engine ranks archive atoms against the current working set. It is
// stateless and side-effect-free over the atom log; its only external
// read is the follow-up query against the graph.
type Engine struct {
	graph FollowUpSource
}

// NewEngine creates a recall engine backed by the given graph.
func NewEngine(graph FollowUpSource) *Engine {
	return &Engine{graph: graph}
}

// candidate is a scoring copy; the canonical atom is never mutated.
type candidate struct {
	atom  *Atom
	score float64
}

// Recall partitions the time-ordered log into a working set (the last
// STMCapacity atoms, excluded from candidacy) and an archive, scores
// every archive atom against the working set's direct and predicted
// concepts, and returns the bounded top results for general memories
// and axioms. Logs with insufficient history return empty pools.
func (e *Engine) Recall(atoms []*Atom, currentTurn int) RecallResult {
	var res RecallResult
	if len(atoms) <= STMCapacity {
		return res
	}

	split := len(atoms) - STMCapacity
	ltm, stm := atoms[:split], atoms[split:]

	stmConcepts := make(map[string]struct{})
	for _, a := range stm {
		for _, c := range a.Concepts {
			stmConcepts[c] = struct{}{}
		}
	}

	followUps := make(map[string]struct{})
	for _, c := range e.graph.FollowUpConcepts(stm, FollowUpLimit) {
		followUps[c] = struct{}{}
	}

	expanded := make(map[string]struct{}, len(stmConcepts)+len(followUps))
	for c := range stmConcepts {
		expanded[c] = struct{}{}
	}
	for c := range followUps {
		expanded[c] = struct{}{}
	}

	var memories, axioms []candidate
	for _, a := range ltm {
		decayed := Decay(a.ActivationScore, currentTurn-a.LastActivatedTurn)

		if a.Category == CategoryAxiom {
			// Axioms match only concepts directly present in the working
			// set: settled conclusions get no speculative follow-up boost.
			overlap := overlapCount(a.Concepts, stmConcepts)
			if overlap == 0 {
				continue
			}
			resonance := axiomWeight * float64(overlap)
			axioms = append(axioms, candidate{atom: a, score: resonance * decayed})
			continue
		}

		exp := overlapCount(a.Concepts, expanded)
		fu := overlapCount(a.Concepts, followUps)
		resonance := float64(exp) + followUpWeight*float64(fu)
		if resonance == 0 {
			continue
		}
		if a.Category == CategorySubconsciousReflection {
			resonance *= reflectionBonus
		}
		memories = append(memories, candidate{atom: a, score: resonance * decayed})
	}

	res.Memories = rank(memories, MemoryLimit)
	res.Axioms = rank(axioms, AxiomLimit)
	return res
}

// rank sorts candidates by score descending — stable, so equal scores
// keep original log order — and returns up to limit canonical atoms.
func rank(cands []candidate, limit int) []*Atom {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]*Atom, len(cands))
	for i, c := range cands {
		out[i] = c.atom
	}
	return out
}

func overlapCount(concepts []string, set map[string]struct{}) int {
	n := 0
	for _, c := range concepts {
		if _, ok := set[c]; ok {
			n++
		}
	}
	return n
}
