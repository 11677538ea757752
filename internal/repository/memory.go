package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lshigami/examflow/internal/model"
)

// MemoryStore backs the in-memory repositories used when no database is configured.
// Every read returns a copy, so callers never share state with the store.
type MemoryStore struct {
	mu sync.Mutex

	tests      map[uint]model.Test
	nextTestID uint
	nextPartID uint

	submissions map[string]model.Submission
	byKey       map[string]string

	units      map[string]map[uint]model.EvaluationUnit
	nextUnitID uint
	nextAnsID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tests:       make(map[uint]model.Test),
		submissions: make(map[string]model.Submission),
		byKey:       make(map[string]string),
		units:       make(map[string]map[uint]model.EvaluationUnit),
	}
}

type memoryTestRepository struct{ s *MemoryStore }

func NewMemoryTestRepository(s *MemoryStore) TestRepository { return &memoryTestRepository{s: s} }

func (r *memoryTestRepository) Create(test *model.Test) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tests {
		if t.Title == test.Title {
			return ErrDuplicate
		}
	}
	r.s.nextTestID++
	test.ID = r.s.nextTestID
	now := time.Now()
	test.CreatedAt, test.UpdatedAt = now, now
	for i := range test.Parts {
		r.s.nextPartID++
		test.Parts[i].ID = r.s.nextPartID
		test.Parts[i].TestID = test.ID
		test.Parts[i].CreatedAt, test.Parts[i].UpdatedAt = now, now
	}
	r.s.tests[test.ID] = copyTest(*test)
	return nil
}

func (r *memoryTestRepository) FindByID(id uint) (*model.Test, error) {
	t, err := r.FindByIDWithParts(id)
	if err != nil {
		return t, err
	}
	t.Parts = nil
	return t, nil
}

func (r *memoryTestRepository) FindByIDWithParts(id uint) (*model.Test, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tests[id]
	if !ok {
		return &model.Test{}, ErrNotFound
	}
	out := copyTest(t)
	out.Parts = out.OrderedParts()
	return &out, nil
}

func (r *memoryTestRepository) FindByTitle(title string) (*model.Test, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tests {
		if t.Title == title {
			out := copyTest(t)
			out.Parts = nil
			return &out, nil
		}
	}
	return &model.Test{}, ErrNotFound
}

func (r *memoryTestRepository) FindAllWithPartCount() ([]TestWithPartCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]TestWithPartCount, 0, len(r.s.tests))
	for _, t := range r.s.tests {
		row := TestWithPartCount{Test: copyTest(t), PartCount: len(t.Parts)}
		row.Parts = nil
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memorySubmissionRepository struct{ s *MemoryStore }

func NewMemorySubmissionRepository(s *MemoryStore) SubmissionRepository {
	return &memorySubmissionRepository{s: s}
}

func (r *memorySubmissionRepository) CreateIfAbsent(_ context.Context, sub *model.Submission) (*model.Submission, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.byKey[sub.IdempotencyKey]; ok {
		out := r.s.loadLocked(id)
		return &out, false, nil
	}
	now := time.Now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	for i := range sub.Answers {
		r.s.nextAnsID++
		sub.Answers[i].ID = r.s.nextAnsID
		sub.Answers[i].SubmissionID = sub.ID
		sub.Answers[i].CreatedAt = now
	}
	stored := copySubmission(*sub)
	stored.Test = model.Test{}
	stored.Units = nil
	r.s.submissions[sub.ID] = stored
	r.s.byKey[sub.IdempotencyKey] = sub.ID
	return sub, true, nil
}

func (r *memorySubmissionRepository) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.submissions[id]; !ok {
		return &model.Submission{}, ErrNotFound
	}
	out := r.s.loadLocked(id)
	return &out, nil
}

func (r *memorySubmissionRepository) FindByIdempotencyKey(_ context.Context, key string) (*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byKey[key]
	if !ok {
		return &model.Submission{}, ErrNotFound
	}
	out := r.s.loadLocked(id)
	return &out, nil
}

func (r *memorySubmissionRepository) FindAllByTestAndUser(_ context.Context, testID uint, userID string) ([]model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Submission
	for _, sub := range r.s.submissions {
		if sub.TestID != testID || (userID != "" && sub.UserID != userID) {
			continue
		}
		c := copySubmission(sub)
		c.Answers = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *memorySubmissionRepository) SetStatus(_ context.Context, id string, status model.SubmissionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now()
	r.s.submissions[id] = sub
	return nil
}

func (r *memorySubmissionRepository) SaveAggregate(_ context.Context, id, expectFingerprint string, agg AggregateUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok || sub.AggregateFingerprint != expectFingerprint {
		return false, nil
	}
	score := agg.Score
	at := agg.At
	sub.AggregateScore = &score
	if agg.Band != nil {
		band := *agg.Band
		sub.AggregateBand = &band
	} else {
		sub.AggregateBand = nil
	}
	sub.AggregatePartial = agg.Partial
	sub.AggregateFingerprint = agg.Fingerprint
	sub.AggregatedAt = &at
	sub.Status = agg.Status
	sub.UpdatedAt = time.Now()
	r.s.submissions[id] = sub
	return true, nil
}

type memoryEvaluationUnitRepository struct{ s *MemoryStore }

func NewMemoryEvaluationUnitRepository(s *MemoryStore) EvaluationUnitRepository {
	return &memoryEvaluationUnitRepository{s: s}
}

func (r *memoryEvaluationUnitRepository) EnsureUnits(_ context.Context, submissionID string, partIDs []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byPart, ok := r.s.units[submissionID]
	if !ok {
		byPart = make(map[uint]model.EvaluationUnit)
		r.s.units[submissionID] = byPart
	}
	now := time.Now()
	for _, id := range partIDs {
		if _, exists := byPart[id]; exists {
			continue
		}
		r.s.nextUnitID++
		byPart[id] = model.EvaluationUnit{
			ID: r.s.nextUnitID, SubmissionID: submissionID, PartID: id,
			Status: model.UnitPending, CreatedAt: now, UpdatedAt: now,
		}
	}
	return nil
}

func (r *memoryEvaluationUnitRepository) ListBySubmission(_ context.Context, submissionID string) ([]model.EvaluationUnit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.unitsLocked(submissionID), nil
}

func (r *memoryEvaluationUnitRepository) Claim(_ context.Context, submissionID string, partID uint, staleBefore, now time.Time) (*model.EvaluationUnit, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[submissionID][partID]
	if !ok {
		return nil, false, nil
	}
	claimable := u.Status == model.UnitPending || u.Status == model.UnitFailed ||
		(u.Status == model.UnitInFlight && u.ClaimedAt != nil && u.ClaimedAt.Before(staleBefore))
	if !claimable {
		return nil, false, nil
	}
	u.Status = model.UnitInFlight
	u.Attempts++
	claimed := now
	u.ClaimedAt = &claimed
	u.UpdatedAt = now
	r.s.units[submissionID][partID] = u
	out := copyUnit(u)
	return &out, true, nil
}

func (r *memoryEvaluationUnitRepository) Complete(_ context.Context, submissionID string, partID uint, result model.EvaluationResult, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[submissionID][partID]
	if !ok || u.Status == model.UnitComplete {
		return false, nil
	}
	score := result.SubScore
	completed := now
	u.Status = model.UnitComplete
	u.SubScore = &score
	u.Feedback = result.Feedback
	u.Criteria = append([]model.CriterionFeedback(nil), result.Criteria...)
	u.Evaluator = result.Evaluator
	u.LastError = nil
	u.CompletedAt = &completed
	u.UpdatedAt = now
	r.s.units[submissionID][partID] = u
	return true, nil
}

func (r *memoryEvaluationUnitRepository) Fail(_ context.Context, submissionID string, partID uint, reason string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[submissionID][partID]
	if !ok || u.Status != model.UnitInFlight {
		return false, nil
	}
	msg := reason
	u.Status = model.UnitFailed
	u.LastError = &msg
	u.UpdatedAt = now
	r.s.units[submissionID][partID] = u
	return true, nil
}

func (s *MemoryStore) loadLocked(id string) model.Submission {
	out := copySubmission(s.submissions[id])
	if t, ok := s.tests[out.TestID]; ok {
		out.Test = copyTest(t)
		out.Test.Parts = out.Test.OrderedParts()
	}
	out.Units = s.unitsLocked(id)
	return out
}

func (s *MemoryStore) unitsLocked(submissionID string) []model.EvaluationUnit {
	byPart := s.units[submissionID]
	out := make([]model.EvaluationUnit, 0, len(byPart))
	for _, u := range byPart {
		out = append(out, copyUnit(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartID < out[j].PartID })
	return out
}

func copyTest(t model.Test) model.Test {
	out := t
	out.Parts = make([]model.Part, len(t.Parts))
	for i, p := range t.Parts {
		cp := p
		cp.Options = append([]string(nil), p.Options...)
		if p.AnswerKey != nil {
			key := p.AnswerKey.Clone()
			cp.AnswerKey = &key
		}
		out.Parts[i] = cp
	}
	return out
}

func copySubmission(s model.Submission) model.Submission {
	out := s
	out.Answers = make([]model.SubmissionAnswer, len(s.Answers))
	for i, a := range s.Answers {
		ca := a
		ca.Payload = a.Payload.Clone()
		out.Answers[i] = ca
	}
	if s.AggregateScore != nil {
		v := *s.AggregateScore
		out.AggregateScore = &v
	}
	if s.AggregateBand != nil {
		v := *s.AggregateBand
		out.AggregateBand = &v
	}
	if s.RecordingURL != nil {
		v := *s.RecordingURL
		out.RecordingURL = &v
	}
	return out
}

func copyUnit(u model.EvaluationUnit) model.EvaluationUnit {
	out := u
	if u.SubScore != nil {
		v := *u.SubScore
		out.SubScore = &v
	}
	if u.LastError != nil {
		v := *u.LastError
		out.LastError = &v
	}
	out.Criteria = append([]model.CriterionFeedback(nil), u.Criteria...)
	return out
}
