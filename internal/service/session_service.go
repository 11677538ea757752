package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/session"
	"github.com/lshigami/examflow/internal/timer"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrActiveSessionExists = errors.New("an active session already exists for this test")
	ErrUserRequired        = errors.New("user id is required")
	ErrTestNotFound        = errors.New("test not found")
	ErrNoRecording         = errors.New("session does not record audio")
)

// Dispatcher starts evaluation of a new submission.
type Dispatcher interface {
	Dispatch(sub *model.Submission)
}

type SessionServiceOptions struct {
	// SingleActive allows one unfinished session per candidate and test.
	SingleActive  bool
	IdleTimeout   time.Duration
	SubmitTimeout time.Duration
	Clock         timer.Clock
}

type SessionService interface {
	Create(ctx context.Context, userID string, testID uint) (session.Snapshot, error)
	Start(ctx context.Context, userID, sessionID string) (session.Snapshot, error)
	Advance(ctx context.Context, userID, sessionID string) (session.Snapshot, error)
	Navigate(userID, sessionID string, index int) (session.Snapshot, error)
	Pause(userID, sessionID string) (session.Snapshot, error)
	Resume(userID, sessionID string) (session.Snapshot, error)
	RecordAnswer(userID, sessionID string, partID uint, payload model.AnswerPayload) (session.Snapshot, error)
	Submit(ctx context.Context, userID, sessionID string) (*model.Submission, error)
	Abandon(userID, sessionID string) (session.Snapshot, error)
	Get(userID, sessionID string) (session.Snapshot, error)
	History(userID, sessionID string) ([]session.Transition, error)
	// AttachFeed connects an audio ingest client to a speaking session.
	AttachFeed(userID, sessionID string) (*recording.Feed, error)
	// SweepIdle abandons sessions idle past the timeout and forgets finished ones. It
	// returns how many sessions were abandoned.
	SweepIdle() int
}

type sessionService struct {
	mu       sync.Mutex
	sessions map[string]*session.Machine

	testRepo   repository.TestRepository
	builder    session.Builder
	dispatcher Dispatcher
	device     *recording.PushDevice
	lease      recording.Lease
	opts       SessionServiceOptions
}

func NewSessionService(
	testRepo repository.TestRepository,
	builder session.Builder,
	dispatcher Dispatcher,
	device *recording.PushDevice,
	lease recording.Lease,
	opts SessionServiceOptions,
) SessionService {
	if opts.Clock == nil {
		opts.Clock = timer.RealClock()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 2 * time.Hour
	}
	if device == nil {
		device = recording.NewPushDevice()
	}
	return &sessionService{
		sessions:   make(map[string]*session.Machine),
		testRepo:   testRepo,
		builder:    builder,
		dispatcher: dispatcher,
		device:     device,
		lease:      lease,
		opts:       opts,
	}
}

func (s *sessionService) Create(ctx context.Context, userID string, testID uint) (session.Snapshot, error) {
	if userID == "" {
		return session.Snapshot{}, ErrUserRequired
	}
	test, err := s.testRepo.FindByIDWithParts(testID)
	if errors.Is(err, repository.ErrNotFound) {
		return session.Snapshot{}, ErrTestNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to load test %d: %w", testID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.SingleActive {
		for _, m := range s.sessions {
			if m.UserID() == userID && m.TestID() == testID && !m.Phase().Terminal() {
				return session.Snapshot{}, fmt.Errorf("%w: %s", ErrActiveSessionExists, m.ID())
			}
		}
	}

	id := uuid.NewString()
	var rec session.Recorder
	if test.NeedsRecording() {
		rec = recording.NewResource(recording.Options{
			SessionID: id,
			DeviceKey: userID,
			Device:    s.device,
			Lease:     s.lease,
			Clock:     s.opts.Clock,
		})
	}
	m, err := session.New(session.Options{
		ID:            id,
		UserID:        userID,
		Test:          test,
		Clock:         s.opts.Clock,
		Recorder:      rec,
		Builder:       s.builder,
		SubmitTimeout: s.opts.SubmitTimeout,
		OnSubmitted:   s.onSubmitted(id),
	})
	if err != nil {
		return session.Snapshot{}, err
	}
	s.sessions[id] = m
	log.Info().Str("sessionID", id).Str("userID", userID).Uint("testID", testID).Bool("recording", rec != nil).Msg("Session created")
	return m.Snapshot(), nil
}

func (s *sessionService) onSubmitted(sessionID string) func(*model.Submission) {
	return func(sub *model.Submission) {
		s.device.Forget(sessionID)
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(sub)
		}
	}
}

func (s *sessionService) lookup(userID, sessionID string) (*session.Machine, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || m.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return m, nil
}

// withMachine runs op against the caller's session and returns the resulting snapshot.
func (s *sessionService) withMachine(userID, sessionID string, op func(m *session.Machine) error) (session.Snapshot, error) {
	m, err := s.lookup(userID, sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := op(m); err != nil {
		return m.Snapshot(), err
	}
	return m.Snapshot(), nil
}

func (s *sessionService) Start(ctx context.Context, userID, sessionID string) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, func(m *session.Machine) error { return m.Start(ctx) })
}

func (s *sessionService) Advance(ctx context.Context, userID, sessionID string) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, func(m *session.Machine) error { return m.Advance(ctx) })
}

func (s *sessionService) Navigate(userID, sessionID string, index int) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, func(m *session.Machine) error { return m.Navigate(index) })
}

func (s *sessionService) Pause(userID, sessionID string) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, (*session.Machine).Pause)
}

func (s *sessionService) Resume(userID, sessionID string) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, (*session.Machine).Resume)
}

func (s *sessionService) RecordAnswer(userID, sessionID string, partID uint, payload model.AnswerPayload) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, func(m *session.Machine) error { return m.RecordAnswer(partID, payload) })
}

func (s *sessionService) Submit(ctx context.Context, userID, sessionID string) (*model.Submission, error) {
	m, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return m.Submit(ctx)
}

func (s *sessionService) Abandon(userID, sessionID string) (session.Snapshot, error) {
	snap, err := s.withMachine(userID, sessionID, (*session.Machine).Abandon)
	if err == nil {
		s.device.Forget(sessionID)
	}
	return snap, err
}

func (s *sessionService) Get(userID, sessionID string) (session.Snapshot, error) {
	return s.withMachine(userID, sessionID, func(*session.Machine) error { return nil })
}

func (s *sessionService) History(userID, sessionID string) ([]session.Transition, error) {
	m, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return m.History(), nil
}

func (s *sessionService) AttachFeed(userID, sessionID string) (*recording.Feed, error) {
	m, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if m.Snapshot().RecordingPhase == "" {
		return nil, ErrNoRecording
	}
	return s.device.Attach(sessionID), nil
}

func (s *sessionService) SweepIdle() int {
	cutoff := s.opts.Clock.Now().Add(-s.opts.IdleTimeout)

	var idle []*session.Machine
	s.mu.Lock()
	for id, m := range s.sessions {
		if !m.LastActivity().Before(cutoff) {
			continue
		}
		if m.Phase().Terminal() {
			delete(s.sessions, id)
			continue
		}
		idle = append(idle, m)
	}
	s.mu.Unlock()

	abandoned := 0
	for _, m := range idle {
		if err := m.Abandon(); err != nil {
			log.Warn().Err(err).Str("sessionID", m.ID()).Msg("Sweep: could not abandon idle session")
			continue
		}
		s.device.Forget(m.ID())
		abandoned++
		log.Info().Str("sessionID", m.ID()).Str("userID", m.UserID()).Msg("Sweep: idle session abandoned")
	}
	return abandoned
}
