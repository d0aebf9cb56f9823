// Package chat owns the turn loop around the recall engine: extract
// concepts, append atoms, recall, respond, reactivate, train.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashmere/reverie/internal/concepts"
	"github.com/ashmere/reverie/internal/memory"
	"github.com/ashmere/reverie/internal/provider"
	"github.com/ashmere/reverie/internal/store"
)

// historyWindow is how many recent exchanges go to the model verbatim.
const historyWindow = 10

const systemPrompt = "You are Reverie, a companion with long-term memory. " +
	"Recalled memories appear in a [Memory Context] block; weave them in naturally " +
	"when they are relevant and ignore them when they are not."

// Service drives chat turns for all sessions. The atom log is owned
// here; the recall engine and graph only ever see it read-only apart
// from caller-driven reactivation.
type Service struct {
	extractor concepts.Extractor
	llm       provider.Provider
	engine    *memory.Engine
	graph     *memory.Graph
	store     *store.Store // nil runs memory-only
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session serializes turns for one conversation.
type session struct {
	mu     sync.Mutex
	id     string
	atoms  []*memory.Atom
	turn   int
	loaded bool
}

// TurnResult is what one completed exchange returns to the caller.
type TurnResult struct {
	SessionID string         `json:"session_id"`
	Turn      int            `json:"turn"`
	Reply     string         `json:"reply"`
	Memories  []*memory.Atom `json:"memories"`
	Axioms    []*memory.Atom `json:"axioms"`
}

// NewService wires the turn loop. The store may be nil, in which case
// sessions live only in memory.
func NewService(extractor concepts.Extractor, llm provider.Provider,
	engine *memory.Engine, graph *memory.Graph, st *store.Store, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		llm:       llm,
		engine:    engine,
		graph:     graph,
		store:     st,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// Turn runs one full exchange: the user atom is appended, relevant
// archive atoms are recalled and reactivated, the model responds, and
// the completed transitions train the association graph.
func (s *Service) Turn(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("empty message")
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var prev *memory.Atom
	if n := len(sess.atoms); n > 0 {
		prev = sess.atoms[n-1]
	}

	userAtom := memory.NewAtom(sess.turn+1, memory.CategoryUserMessage,
		userText, s.extract(ctx, userText))
	s.append(ctx, sess, userAtom)

	recalled := s.engine.Recall(sess.atoms, userAtom.Turn)
	s.reactivate(ctx, recalled.Memories, userAtom.Turn)
	s.reactivate(ctx, recalled.Axioms, userAtom.Turn)

	resp, err := s.llm.Chat(ctx, &provider.ChatRequest{
		Messages: s.buildMessages(sess, recalled),
	})
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	respAtom := memory.NewAtom(sess.turn+1, memory.CategoryModelResponse,
		resp.Content, s.extract(ctx, resp.Content))
	s.append(ctx, sess, respAtom)

	// Feed the completed transitions back into the graph.
	if prev != nil {
		s.graph.TrainOnTransition(prev, userAtom)
	}
	s.graph.TrainOnTransition(userAtom, respAtom)

	s.logger.Debug("turn complete",
		zap.String("session", sess.id),
		zap.Int("turn", userAtom.Turn),
		zap.Int("recalled_memories", len(recalled.Memories)),
		zap.Int("recalled_axioms", len(recalled.Axioms)))

	return &TurnResult{
		SessionID: sess.id,
		Turn:      userAtom.Turn,
		Reply:     resp.Content,
		Memories:  recalled.Memories,
		Axioms:    recalled.Axioms,
	}, nil
}

// Note records a non-conversational atom (steward notes, thoughts,
// reflections, axioms) at the tail of the log.
func (s *Service) Note(ctx context.Context, sessionID string, category memory.Category, text string) (*memory.Atom, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty note")
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var prev *memory.Atom
	if n := len(sess.atoms); n > 0 {
		prev = sess.atoms[n-1]
	}
	atom := memory.NewAtom(sess.turn+1, category, text, s.extract(ctx, text))
	s.append(ctx, sess, atom)
	if prev != nil {
		s.graph.TrainOnTransition(prev, atom)
	}
	return atom, nil
}

// Atoms returns a session's current log.
func (s *Service) Atoms(ctx context.Context, sessionID string) ([]*memory.Atom, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]*memory.Atom, len(sess.atoms))
	copy(out, sess.atoms)
	return out, nil
}

// Preview runs recall over the current log without reactivating
// anything — a read-only view of what the next turn would surface.
func (s *Service) Preview(ctx context.Context, sessionID string) (memory.RecallResult, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return memory.RecallResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.engine.Recall(sess.atoms, sess.turn), nil
}

// session finds or creates the session, loading persisted history on
// first touch.
func (s *Service) session(ctx context.Context, id string) (*session, error) {
	if id == "" {
		id = uuid.New().String()
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{id: id}
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.loaded {
		return sess, nil
	}
	if s.store != nil {
		if err := s.store.EnsureSession(ctx, sess.id); err != nil {
			return nil, err
		}
		atoms, err := s.store.ListAtoms(ctx, sess.id)
		if err != nil {
			return nil, err
		}
		sess.atoms = atoms
		for _, a := range atoms {
			if a.Turn > sess.turn {
				sess.turn = a.Turn
			}
		}
	}
	sess.loaded = true
	return sess, nil
}

// append adds the atom to the in-memory log and writes it through to
// the store. A persistence failure is logged, not fatal: the session
// keeps operating on its in-memory log.
func (s *Service) append(ctx context.Context, sess *session, a *memory.Atom) {
	sess.atoms = append(sess.atoms, a)
	sess.turn = a.Turn
	if s.store != nil {
		if err := s.store.AppendAtom(ctx, sess.id, a); err != nil {
			s.logger.Warn("atom persist failed", zap.String("session", sess.id), zap.Error(err))
		}
	}
}

// reactivate resets recalled atoms to full strength for this turn.
func (s *Service) reactivate(ctx context.Context, atoms []*memory.Atom, turn int) {
	for _, a := range atoms {
		a.Reactivate(turn)
		if s.store != nil {
			if err := s.store.UpdateActivation(ctx, a); err != nil {
				s.logger.Warn("activation persist failed", zap.String("atom", a.ID), zap.Error(err))
			}
		}
	}
}

// extract runs concept extraction, degrading failures to "no concepts".
func (s *Service) extract(ctx context.Context, text string) []string {
	out, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.logger.Warn("concept extraction failed", zap.Error(err))
		return nil
	}
	return out
}

// buildMessages assembles the model request: system prompt, recalled
// memory context, then the recent conversation window.
func (s *Service) buildMessages(sess *session, recalled memory.RecallResult) []provider.Message {
	msgs := []provider.Message{{Role: "system", Content: systemPrompt}}

	if block := FormatMemoryPrompt(recalled); block != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: block})
	}

	var window []provider.Message
	for i := len(sess.atoms) - 1; i >= 0 && len(window) < historyWindow*2; i-- {
		a := sess.atoms[i]
		switch a.Category {
		case memory.CategoryUserMessage:
			window = append(window, provider.Message{Role: "user", Content: a.Content})
		case memory.CategoryModelResponse:
			window = append(window, provider.Message{Role: "assistant", Content: a.Content})
		}
	}
	for i := len(window) - 1; i >= 0; i-- {
		msgs = append(msgs, window[i])
	}
	return msgs
}

// FormatMemoryPrompt renders recalled atoms as a system prompt section.
func FormatMemoryPrompt(res memory.RecallResult) string {
	if len(res.Memories) == 0 && len(res.Axioms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Memory Context]\n")
	for _, a := range res.Axioms {
		fmt.Fprintf(&b, "- axiom: %s\n", a.Content)
	}
	for _, a := range res.Memories {
		fmt.Fprintf(&b, "- %s: %s\n", a.Category, a.Content)
	}
	return b.String()
}
