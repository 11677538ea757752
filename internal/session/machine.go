// Package session runs one candidate's timed attempt at a test: part order, phase timers,
// the answer buffer and the hand-off to submission.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/timer"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePreparing  Phase = "preparing"
	PhaseResponding Phase = "responding"
	PhasePaused     Phase = "paused"
	PhaseAdvancing  Phase = "advancing"
	PhaseExpired    Phase = "expired"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
	PhaseAbandoned  Phase = "abandoned"
)

func (p Phase) Terminal() bool {
	return p == PhaseSubmitted || p == PhaseAbandoned
}

// Active reports whether the candidate is currently working through parts.
func (p Phase) Active() bool {
	return p == PhasePreparing || p == PhaseResponding || p == PhasePaused
}

// AcceptsAnswers is false once the answer set is being frozen for submission.
func (p Phase) AcceptsAnswers() bool {
	return !p.Terminal() && p != PhaseExpired && p != PhaseSubmitting
}

type SubmitReason string

const (
	ReasonManual       SubmitReason = "manual"
	ReasonLastPart     SubmitReason = "last_part"
	ReasonGlobalExpiry SubmitReason = "global_expiry"
	ReasonPartExpiry   SubmitReason = "part_expiry"
)

// Recorder is the capture resource of a speaking session. *recording.Resource satisfies it.
type Recorder interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Mark(partID uint)
	Stop(ctx context.Context) (*recording.Artifact, error)
	Release()
	Phase() recording.Phase
}

// Builder persists a session's answers as a submission. Build must be idempotent per SessionID.
type Builder interface {
	Build(ctx context.Context, draft Draft) (*model.Submission, error)
}

// Draft is everything the builder needs, captured when the session enters submitting.
type Draft struct {
	SessionID   string
	UserID      string
	Test        *model.Test
	Parts       []model.Part
	Answers     map[uint]model.AnswerPayload
	Recording   *recording.Artifact
	StartedAt   time.Time
	SubmittedAt time.Time
	Reason      SubmitReason
}

func (d Draft) Entries() []Entry { return Entries(d.Parts, d.Answers) }

type Transition struct {
	From      Phase     `json:"from"`
	To        Phase     `json:"to"`
	PartIndex int       `json:"part_index"`
	At        time.Time `json:"at"`
}

type Options struct {
	ID            string
	UserID        string
	Test          *model.Test
	Clock         timer.Clock
	Recorder      Recorder // nil unless the test needs audio
	Builder       Builder
	SubmitTimeout time.Duration
	// OnSubmitted runs after every successful build, including timer-driven ones.
	OnSubmitted func(*model.Submission)
}

// Machine is the state machine of one session. All methods are safe for concurrent use.
// Timer callbacks are tagged with a generation and ignored once the run they belong to
// has been replaced or cancelled.
type Machine struct {
	mu sync.Mutex

	id            string
	userID        string
	test          *model.Test
	parts         []model.Part
	mode          model.TimingMode
	clock         timer.Clock
	timer         *timer.PhaseTimer
	gen           uint64
	recorder      Recorder
	builder       Builder
	submitTimeout time.Duration
	onSubmitted   func(*model.Submission)

	phase        Phase
	pausedFrom   Phase
	index        int
	answers      *AnswerStore
	startedAt    time.Time
	submittedAt  time.Time
	lastActivity time.Time
	reason       SubmitReason
	building     bool
	lastErr      error
	submission   *model.Submission
	history      []Transition
}

func New(opts Options) (*Machine, error) {
	if opts.Test == nil {
		return nil, errors.New("session: test is required")
	}
	if opts.Builder == nil {
		return nil, errors.New("session: builder is required")
	}
	parts := opts.Test.OrderedParts()
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	if opts.Clock == nil {
		opts.Clock = timer.RealClock()
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 30 * time.Second
	}
	return &Machine{
		id:            opts.ID,
		userID:        opts.UserID,
		test:          opts.Test,
		parts:         parts,
		mode:          opts.Test.EffectiveTimingMode(),
		clock:         opts.Clock,
		timer:         timer.New(opts.Clock),
		recorder:      opts.Recorder,
		builder:       opts.Builder,
		submitTimeout: opts.SubmitTimeout,
		onSubmitted:   opts.OnSubmitted,
		phase:         PhaseIdle,
		answers:       NewAnswerStore(parts),
		lastActivity:  opts.Clock.Now(),
	}, nil
}

// Start begins the attempt. For speaking tests the recording is started first; if the
// device cannot be acquired the session stays idle and Start may be retried.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseIdle {
		return &TransitionError{Op: "start", From: m.phase}
	}

	if m.recorder != nil {
		if err := m.recorder.Start(ctx); err != nil {
			log.Warn().Err(err).Str("sessionID", m.id).Msg("Session: recording could not start")
			return err
		}
	}

	now := m.clock.Now()
	m.startedAt = now
	m.lastActivity = now
	if m.mode == model.TimingGlobal {
		m.startTimerLocked(m.globalDuration())
	}
	m.enterPartLocked()
	log.Info().Str("sessionID", m.id).Uint("testID", m.test.ID).Str("timing", string(m.mode)).Msg("Session: started")
	return nil
}

// Advance moves to the next part, or submits when on the last one.
func (m *Machine) Advance(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseResponding {
		from := m.phase
		m.mu.Unlock()
		return &TransitionError{Op: "advance", From: from}
	}
	m.lastActivity = m.clock.Now()
	draft := m.advanceLocked(ReasonLastPart)
	m.mu.Unlock()

	if draft != nil {
		_, err := m.runBuild(ctx, *draft)
		return err
	}
	return nil
}

// Navigate jumps to another part. Only global-timed tests allow free navigation.
func (m *Machine) Navigate(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseResponding {
		return &TransitionError{Op: "navigate", From: m.phase}
	}
	if m.mode != model.TimingGlobal {
		return &TransitionError{Op: "navigate", From: m.phase, Reason: "parts are individually timed"}
	}
	if index < 0 || index >= len(m.parts) {
		return ErrUnknownPart
	}
	m.lastActivity = m.clock.Now()
	if index == m.index {
		return nil
	}
	m.setPhaseLocked(PhaseAdvancing)
	m.index = index
	m.enterRespondingLocked()
	return nil
}

func (m *Machine) RecordAnswer(partID uint, payload model.AnswerPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.phase.AcceptsAnswers() {
		return &TransitionError{Op: "record answer", From: m.phase}
	}
	if err := m.answers.Put(partID, payload); err != nil {
		return err
	}
	m.lastActivity = m.clock.Now()
	return nil
}

// Pause freezes the active countdown and the recording. Pausing a paused session is a no-op.
func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case PhasePaused:
		return nil
	case PhaseResponding, PhasePreparing:
	default:
		return &TransitionError{Op: "pause", From: m.phase}
	}
	m.pausedFrom = m.phase
	m.timer.Pause()
	if m.recorder != nil {
		m.recorder.Pause()
	}
	m.lastActivity = m.clock.Now()
	m.setPhaseLocked(PhasePaused)
	return nil
}

// Resume continues a paused session. Resuming a running session is a no-op.
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case PhaseResponding, PhasePreparing:
		return nil
	case PhasePaused:
	default:
		return &TransitionError{Op: "resume", From: m.phase}
	}
	m.setPhaseLocked(m.pausedFrom)
	if m.recorder != nil {
		m.recorder.Resume()
	}
	m.timer.Resume()
	m.lastActivity = m.clock.Now()
	return nil
}

// Submit hands the answers to the builder exactly once. After a failed build the session
// stays in submitting and Submit may be called again; a second call while a build is in
// flight, or after success, is rejected.
func (m *Machine) Submit(ctx context.Context) (*model.Submission, error) {
	m.mu.Lock()
	var draft Draft
	switch {
	case m.phase.Active():
		if m.phase == PhasePaused {
			m.phase = m.pausedFrom
		}
		draft = m.beginSubmitLocked(ReasonManual)
	case m.phase == PhaseSubmitting && m.building:
		m.mu.Unlock()
		return nil, &TransitionError{Op: "submit", From: PhaseSubmitting, Reason: "submission in progress"}
	case m.phase == PhaseSubmitting && m.lastErr != nil:
		m.building = true
		draft = m.draftLocked()
		log.Info().Str("sessionID", m.id).Msg("Session: retrying submission")
	default:
		from := m.phase
		m.mu.Unlock()
		return nil, &TransitionError{Op: "submit", From: from}
	}
	m.lastActivity = m.clock.Now()
	m.mu.Unlock()

	return m.runBuild(ctx, draft)
}

// Abandon ends the session without submitting and releases the recording before returning.
func (m *Machine) Abandon() error {
	m.mu.Lock()
	if m.phase == PhaseAbandoned {
		m.mu.Unlock()
		return nil
	}
	if m.phase == PhaseSubmitted || m.building {
		from := m.phase
		m.mu.Unlock()
		return &TransitionError{Op: "abandon", From: from}
	}
	m.cancelTimerLocked()
	m.setPhaseLocked(PhaseAbandoned)
	rec := m.recorder
	m.mu.Unlock()

	if rec != nil {
		rec.Release()
	}
	log.Info().Str("sessionID", m.id).Msg("Session: abandoned")
	return nil
}

func (m *Machine) ID() string     { return m.id }
func (m *Machine) UserID() string { return m.userID }
func (m *Machine) TestID() uint   { return m.test.ID }

func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

func (m *Machine) Submission() *model.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submission
}

func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Machine) Answer(partID uint) (model.AnswerPayload, bool) {
	return m.answers.Get(partID)
}

// PartStatus is the per-part view shown to the candidate.
type PartStatus struct {
	PartID   uint           `json:"part_id"`
	Type     model.PartType `json:"type"`
	Answered bool           `json:"answered"`
}

// Snapshot is the client-observable state of a session.
type Snapshot struct {
	SessionID        string           `json:"session_id"`
	UserID           string           `json:"user_id"`
	TestID           uint             `json:"test_id"`
	TimingMode       model.TimingMode `json:"timing_mode"`
	Phase            Phase            `json:"phase"`
	PartIndex        int              `json:"part_index"`
	PartID           uint             `json:"part_id"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Parts            []PartStatus     `json:"parts"`
	RecordingPhase   string           `json:"recording_phase,omitempty"`
	SubmissionID     string           `json:"submission_id,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		SessionID:  m.id,
		UserID:     m.userID,
		TestID:     m.test.ID,
		TimingMode: m.mode,
		Phase:      m.phase,
		PartIndex:  m.index,
		PartID:     m.parts[m.index].ID,
		Parts:      make([]PartStatus, len(m.parts)),
	}
	if m.phase.Active() {
		s.RemainingSeconds = int(m.timer.Remaining() / time.Second)
	}
	for i, p := range m.parts {
		s.Parts[i] = PartStatus{PartID: p.ID, Type: p.Type, Answered: m.answers.Answered(p.ID)}
	}
	if m.recorder != nil {
		s.RecordingPhase = string(m.recorder.Phase())
	}
	if m.submission != nil {
		s.SubmissionID = m.submission.ID
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	if !m.startedAt.IsZero() {
		started := m.startedAt
		s.StartedAt = &started
	}
	return s
}

func (m *Machine) globalDuration() time.Duration {
	if m.test.DurationSeconds > 0 {
		return time.Duration(m.test.DurationSeconds) * time.Second
	}
	var total time.Duration
	for i := range m.parts {
		total += m.parts[i].Duration()
	}
	return total
}

func (m *Machine) startTimerLocked(d time.Duration) {
	m.gen++
	gen := m.gen
	m.timer.Start(d, nil, func() { m.onExpire(gen) })
}

func (m *Machine) cancelTimerLocked() {
	m.gen++
	m.timer.Cancel()
}

func (m *Machine) enterPartLocked() {
	part := &m.parts[m.index]
	if m.mode == model.TimingPerPart && part.PreparationSeconds > 0 {
		m.setPhaseLocked(PhasePreparing)
		m.startTimerLocked(part.Preparation())
		return
	}
	m.enterRespondingLocked()
}

func (m *Machine) enterRespondingLocked() {
	part := &m.parts[m.index]
	m.setPhaseLocked(PhaseResponding)
	if m.mode == model.TimingPerPart {
		m.startTimerLocked(part.Duration())
	}
	if m.recorder != nil {
		m.recorder.Mark(part.ID)
	}
}

// advanceLocked returns a draft when the move ends the session.
func (m *Machine) advanceLocked(lastPartReason SubmitReason) *Draft {
	if m.index >= len(m.parts)-1 {
		d := m.beginSubmitLocked(lastPartReason)
		return &d
	}
	m.setPhaseLocked(PhaseAdvancing)
	m.index++
	m.enterPartLocked()
	return nil
}

func (m *Machine) beginSubmitLocked(reason SubmitReason) Draft {
	m.cancelTimerLocked()
	m.setPhaseLocked(PhaseSubmitting)
	m.reason = reason
	m.submittedAt = m.clock.Now()
	m.building = true
	m.lastErr = nil
	return m.draftLocked()
}

func (m *Machine) draftLocked() Draft {
	return Draft{
		SessionID:   m.id,
		UserID:      m.userID,
		Test:        m.test,
		Parts:       m.parts,
		Answers:     m.answers.Snapshot(),
		StartedAt:   m.startedAt,
		SubmittedAt: m.submittedAt,
		Reason:      m.reason,
	}
}

func (m *Machine) onExpire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	// The countdown may run out just as a pause lands; the time is still spent.
	if m.phase == PhasePaused {
		m.phase = m.pausedFrom
		if m.recorder != nil {
			m.recorder.Resume()
		}
	}

	var draft *Draft
	switch {
	case m.mode == model.TimingGlobal && m.phase.Active():
		m.setPhaseLocked(PhaseExpired)
		d := m.beginSubmitLocked(ReasonGlobalExpiry)
		draft = &d
	case m.phase == PhasePreparing:
		m.enterRespondingLocked()
	case m.phase == PhaseResponding:
		m.setPhaseLocked(PhaseExpired)
		draft = m.advanceLocked(ReasonPartExpiry)
	}
	m.mu.Unlock()

	if draft != nil {
		log.Info().Str("sessionID", m.id).Str("reason", string(draft.Reason)).Msg("Session: time expired, submitting")
		_, _ = m.runBuild(context.Background(), *draft)
	}
}

func (m *Machine) runBuild(ctx context.Context, draft Draft) (*model.Submission, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.submitTimeout)
	defer cancel()

	if m.recorder != nil {
		artifact, err := m.recorder.Stop(ctx)
		if err != nil {
			return nil, m.failBuild(err)
		}
		draft.Recording = artifact
	}

	sub, err := m.builder.Build(ctx, draft)
	if err != nil {
		return nil, m.failBuild(err)
	}

	m.mu.Lock()
	m.building = false
	m.lastErr = nil
	m.submission = sub
	m.setPhaseLocked(PhaseSubmitted)
	cb := m.onSubmitted
	m.mu.Unlock()

	log.Info().Str("sessionID", m.id).Str("submissionID", sub.ID).Str("reason", string(draft.Reason)).Msg("Session: submitted")
	if cb != nil {
		cb(sub)
	}
	return sub, nil
}

func (m *Machine) failBuild(err error) error {
	m.mu.Lock()
	m.building = false
	m.lastErr = err
	m.mu.Unlock()
	log.Error().Err(err).Str("sessionID", m.id).Msg("Session: submission failed, awaiting retry")
	return err
}

func (m *Machine) setPhaseLocked(to Phase) {
	m.history = append(m.history, Transition{From: m.phase, To: to, PartIndex: m.index, At: m.clock.Now()})
	log.Debug().Str("sessionID", m.id).Str("from", string(m.phase)).Str("to", string(to)).Int("part", m.index).Msg("Session: transition")
	m.phase = to
}
