package session

import (
	"fmt"
	"sync"

	"github.com/lshigami/examflow/internal/model"
)

// AnswerStore buffers one answer per part. Writes for the same part are last-write-wins.
type AnswerStore struct {
	mu      sync.RWMutex
	types   map[uint]model.PartType
	answers map[uint]model.AnswerPayload
}

func NewAnswerStore(parts []model.Part) *AnswerStore {
	s := &AnswerStore{
		types:   make(map[uint]model.PartType, len(parts)),
		answers: make(map[uint]model.AnswerPayload, len(parts)),
	}
	for _, p := range parts {
		s.types[p.ID] = p.Type
	}
	return s
}

func (s *AnswerStore) Put(partID uint, payload model.AnswerPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, ok := s.types[partID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPart, partID)
	}
	if err := payload.Validate(kind); err != nil {
		return err
	}
	payload = payload.Clone()
	payload.Kind = kind
	s.answers[partID] = payload
	return nil
}

func (s *AnswerStore) Get(partID uint) (model.AnswerPayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.answers[partID]
	if !ok {
		return model.AnswerPayload{}, false
	}
	return p.Clone(), true
}

// Answered reports whether partID holds a non-empty answer.
func (s *AnswerStore) Answered(partID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.answers[partID]
	return ok && !p.IsEmpty()
}

// Snapshot returns a deep copy of every recorded answer.
func (s *AnswerStore) Snapshot() map[uint]model.AnswerPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint]model.AnswerPayload, len(s.answers))
	for id, p := range s.answers {
		out[id] = p.Clone()
	}
	return out
}

// Entry is one part's answer as it goes into a submission.
type Entry struct {
	Position int
	Part     model.Part
	Payload  model.AnswerPayload
	Missing  bool
}

// Entries lists every part in order. Parts without a recorded answer get an explicit
// empty payload and are flagged Missing.
func Entries(parts []model.Part, answers map[uint]model.AnswerPayload) []Entry {
	out := make([]Entry, len(parts))
	for i, p := range parts {
		payload, ok := answers[p.ID]
		if !ok {
			payload = model.EmptyPayload(p.Type)
		}
		out[i] = Entry{Position: i, Part: p, Payload: payload, Missing: !ok}
	}
	return out
}
