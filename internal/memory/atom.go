package memory

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a memory atom by the cognitive step that produced it.
type Category string

const (
	CategoryUserMessage            Category = "user_message"
	CategoryModelResponse          Category = "model_response"
	CategoryStewardNote            Category = "steward_note"
	CategoryConsciousThought       Category = "conscious_thought"
	CategorySubconsciousReflection Category = "subconscious_reflection"
	CategoryAxiom                  Category = "axiom"
)

// Activation score bounds. Decay never pushes a score below the floor,
// and reactivation always resets to the ceiling.
const (
	MinActivation = 0.01
	MaxActivation = 1.0
)

// Atom is a single unit of conversational or cognitive history.
// Content and Concepts are frozen at creation. ActivationScore and
// LastActivatedTurn are the only fields the recall subsystem may change,
// and only through reactivation — decay operates on scoring copies.
type Atom struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turn      int       `json:"turn"`
	Category  Category  `json:"category"`
	Content   string    `json:"content"`
	Concepts  []string  `json:"concepts"`

	ActivationScore   float64 `json:"activation_score"`
	LastActivatedTurn int     `json:"last_activated_turn"`
}

// NewAtom creates an atom at full activation for the given turn.
func NewAtom(turn int, category Category, content string, concepts []string) *Atom {
	return &Atom{
		ID:                uuid.New().String(),
		CreatedAt:         time.Now(),
		Turn:              turn,
		Category:          category,
		Content:           content,
		Concepts:          concepts,
		ActivationScore:   MaxActivation,
		LastActivatedTurn: turn,
	}
}

// Reactivate resets the atom to full strength at the given turn.
// Called by the owner of the log when a recalled atom is reused.
func (a *Atom) Reactivate(turn int) {
	a.ActivationScore = MaxActivation
	a.LastActivatedTurn = turn
}

// ConceptSet returns the atom's concepts as a set.
func (a *Atom) ConceptSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Concepts))
	for _, c := range a.Concepts {
		set[c] = struct{}{}
	}
	return set
}
