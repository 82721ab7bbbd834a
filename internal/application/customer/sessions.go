package customer

import (
	"sync"
	"time"

	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/custdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormFactory builds the controller for a new session
type FormFactory func(id uuid.UUID) *FormController

// SessionConfig configures FormSessions
type SessionConfig struct {
	TTL             time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
}

type formSession struct {
	form     *FormController
	lastUsed time.Time
}

// FormSessions keeps one FormController per client session and closes
// sessions that stay idle longer than the TTL
type FormSessions struct {
	newForm FormFactory
	config  SessionConfig
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[uuid.UUID]*formSession
	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewFormSessions creates an empty session registry. Call Start to run the
// expiry loop.
func NewFormSessions(newForm FormFactory, cfg SessionConfig, metrics *telemetry.Metrics, logger *zap.Logger) *FormSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &FormSessions{
		newForm:  newForm,
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*formSession),
		stopChan: make(chan struct{}),
	}
}

// Open starts a session with a blank create-mode form
func (s *FormSessions) Open() (uuid.UUID, *FormController, error) {
	var expired []*FormController
	defer func() { closeForms(expired) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		expired = s.expireLocked()
		if len(s.sessions) >= s.config.MaxSessions {
			return uuid.Nil, nil, shared.ErrLimitReached
		}
	}

	id := uuid.New()
	form := s.newForm(id)
	s.sessions[id] = &formSession{form: form, lastUsed: s.now()}
	s.metrics.SetFormSessions(len(s.sessions))

	s.logger.Debug("form session opened", zap.String("form_id", id.String()))
	return id, form, nil
}

// Get returns the form of a live session and marks it used
func (s *FormSessions) Get(id uuid.UUID) (*FormController, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return nil, shared.ErrNotFound
	}
	sess.lastUsed = s.now()
	return sess.form, nil
}

// Close ends a session and unmounts its form
func (s *FormSessions) Close(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		s.metrics.SetFormSessions(len(s.sessions))
	}
	s.mu.Unlock()

	if !ok {
		return shared.ErrNotFound
	}
	sess.form.Close()
	return nil
}

// Count returns the number of sessions, expired ones included until swept
func (s *FormSessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Start runs the expiry loop until Stop
func (s *FormSessions) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.cleanupLoop()
	})
}

// Stop ends the expiry loop and closes every session. Safe to call multiple times.
func (s *FormSessions) Stop() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()

		s.mu.Lock()
		forms := make([]*FormController, 0, len(s.sessions))
		for id, sess := range s.sessions {
			forms = append(forms, sess.form)
			delete(s.sessions, id)
		}
		s.metrics.SetFormSessions(0)
		s.mu.Unlock()

		closeForms(forms)
	})
}

func (s *FormSessions) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup closes every expired session
func (s *FormSessions) cleanup() {
	s.mu.Lock()
	expired := s.expireLocked()
	s.mu.Unlock()

	closeForms(expired)
	if len(expired) > 0 {
		s.logger.Info("expired idle form sessions", zap.Int("count", len(expired)))
	}
}

// expireLocked removes expired sessions and returns their forms, which the
// caller closes after releasing s.mu
func (s *FormSessions) expireLocked() []*FormController {
	var expired []*FormController
	for id, sess := range s.sessions {
		if s.expired(sess) {
			expired = append(expired, sess.form)
			delete(s.sessions, id)
		}
	}
	if len(expired) > 0 {
		s.metrics.SetFormSessions(len(s.sessions))
	}
	return expired
}

func closeForms(forms []*FormController) {
	for _, f := range forms {
		f.Close()
	}
}

func (s *FormSessions) expired(sess *formSession) bool {
	return s.now().Sub(sess.lastUsed) > s.config.TTL
}
