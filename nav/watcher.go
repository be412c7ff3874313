package nav

import (
	"sync"

	"github.com/deemkeen/stegogram/domain"
	"go.uber.org/zap"
)

// Source emits the current session once on subscription and again on every
// change until unsubscribed.
type Source interface {
	Subscribe(onChange func(domain.Session)) (unsubscribe func(), err error)
}

// Transition is the result of applying one session notification.
type Transition struct {
	Seq     uint64
	From    domain.Session
	To      domain.Session
	Mode    Mode
	Screens ScreenSet
}

// Changed reports whether the notification replaced the session with a
// different one.
func (t Transition) Changed() bool {
	return !t.From.Equal(t.To)
}

// ModeChanged reports whether the navigation mode flipped.
func (t Transition) ModeChanged() bool {
	return Resolve(t.From) != t.Mode
}

// Watcher owns the process-wide session. Only notifications from its current
// subscription replace the session; everything else reads it.
type Watcher struct {
	log      *zap.Logger
	listener func(Transition)

	mu      sync.RWMutex
	session domain.Session
	screens ScreenSet
	seq     uint64
	sub     *Subscription

	// held from state change until the listener returns so that listeners
	// observe transitions in Seq order
	notifyMu sync.Mutex
}

// NewWatcher returns a watcher in the signed-out state. listener, if not nil,
// is called with every transition in order.
func NewWatcher(logger *zap.Logger, listener func(Transition)) *Watcher {
	return &Watcher{
		log:      logger,
		listener: listener,
		session:  domain.NoSession,
		screens:  Build(Unauthenticated),
	}
}

// Subscription is a scoped subscription to a Source. Release must be called
// when the owner goes away; it is idempotent.
type Subscription struct {
	w           *Watcher
	released    bool   // guarded by w.mu
	unsubscribe func() // guarded by w.mu
}

// Release stops the subscription. Once Release returns the watcher ignores
// every further notification delivered through it.
func (s *Subscription) Release() {
	s.w.mu.Lock()
	s.released = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Subscription) Released() bool {
	s.w.mu.RLock()
	defer s.w.mu.RUnlock()
	return s.released
}

// Watch subscribes to src, replacing and releasing any earlier subscription.
// When src cannot be subscribed to, the failure is logged, the session falls
// back to signed out and an already released subscription is returned.
func (w *Watcher) Watch(src Source) *Subscription {
	sub := &Subscription{w: w}

	w.mu.Lock()
	prev := w.sub
	w.sub = sub
	w.mu.Unlock()

	if prev != nil {
		prev.Release()
	}

	unsubscribe, err := src.Subscribe(func(s domain.Session) {
		w.apply(sub, s)
	})
	if err != nil {
		w.log.Warn("session source unavailable, staying signed out", zap.Error(err))
		w.apply(sub, domain.NoSession)
		sub.Release()
		return sub
	}

	w.mu.Lock()
	if sub.released {
		// released while Subscribe was still delivering the first notification
		w.mu.Unlock()
		unsubscribe()
		return sub
	}
	sub.unsubscribe = unsubscribe
	w.mu.Unlock()
	return sub
}

// Close releases the current subscription, if any.
func (w *Watcher) Close() {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Release()
	}
}

func (w *Watcher) Session() domain.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.screens.Mode
}

func (w *Watcher) Screens() ScreenSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.screens
}

func (w *Watcher) apply(sub *Subscription, s domain.Session) {
	w.mu.Lock()
	if sub.released {
		w.mu.Unlock()
		w.log.Debug("dropping session notification from released subscription")
		return
	}

	w.seq++
	mode := Resolve(s)
	t := Transition{
		Seq:     w.seq,
		From:    w.session,
		To:      s,
		Mode:    mode,
		Screens: Build(mode),
	}
	w.session = s
	w.screens = t.Screens

	w.notifyMu.Lock()
	w.mu.Unlock()
	defer w.notifyMu.Unlock()

	if t.ModeChanged() {
		w.log.Info("navigation mode changed",
			zap.Stringer("mode", mode),
			zap.Stringer("session", s),
			zap.Uint64("seq", t.Seq))
	}

	if w.listener != nil {
		w.listener(t)
	}
}
