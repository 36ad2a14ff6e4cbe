package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"carrethree/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the lifecycle stage of a Session
type State int32

const (
	StateGuest State = iota
	StateMerging
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateGuest:
		return "guest"
	case StateMerging:
		return "merging"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session owns one shopper's cart across login and logout. Operations on a
// session are serialized; State can be read while one is in flight.
type Session struct {
	mu    sync.Mutex
	state atomic.Int32

	guest   *GuestStore
	backend Backend
	catalog Catalog
	logger  *zap.Logger

	identity *Identity
	remote   *RemoteStore
	lines    []Line
	mergeErr error
}

// NewSession creates a new instance of Session in the guest state
func NewSession(storage LocalStorage, catalog Catalog, backend Backend, logger *zap.Logger) *Session {
	s := &Session{
		guest:   NewGuestStore(storage, catalog, logger),
		backend: backend,
		catalog: catalog,
		logger:  logger,
		lines:   []Line{},
	}
	s.setState(StateGuest)
	return s
}

// State reports the lifecycle stage. It does not wait for a running operation,
// so StateMerging is visible while Login merges the guest cart.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Identity returns the signed-in user, if any
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// MergeErr is the failure of the last login merge, nil when it succeeded or was skipped
func (s *Session) MergeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeErr
}

// store selects where mutations go for the current identity
func (s *Session) store() Store {
	if s.remote != nil {
		return s.remote
	}
	return s.guest
}

// Login switches the session to the server cart of id. A non-empty guest cart is
// merged first; if the merge fails the guest cart stays in local storage for the
// next login and the existing server cart is loaded instead.
func (s *Session) Login(ctx context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.Token == "" {
		return fmt.Errorf("%w: identity has no token", ErrValidation)
	}

	s.identity = &id
	s.setState(StateMerging)
	s.remote = NewRemoteStore(s.backend, s.catalog, id.Token)
	s.mergeErr = nil
	defer s.setState(StateAuthenticated)

	pending, err := s.guest.Pending()
	if err != nil {
		s.logger.Warn("Failed to read guest cart before merge", zap.Error(err))
		pending = nil
	}

	if len(pending) > 0 {
		lines, err := s.merge(ctx, pending)
		if err == nil {
			s.lines = lines
			if _, err := s.guest.Clear(ctx); err != nil {
				s.logger.Warn("Failed to wipe merged guest cart", zap.Error(err))
			}
			s.logger.Info("Guest cart merged",
				zap.String("user_id", id.UserID.String()),
				zap.Int("lines", len(pending)),
			)
			return nil
		}

		s.mergeErr = err
		s.logger.Warn("Cart merge failed, keeping guest cart for next login",
			zap.String("user_id", id.UserID.String()),
			zap.Error(err),
		)
	}

	lines, err := s.remote.Lines(ctx)
	if err != nil {
		s.lines = []Line{}
		return s.fail("load cart", err)
	}
	s.lines = lines
	return nil
}

// merge sends the guest cart tagged with its merge id; the server applies each
// id once
func (s *Session) merge(ctx context.Context, pending []domain.CartLine) ([]Line, error) {
	mergeID, err := s.guest.MergeID()
	if err != nil {
		return nil, err
	}
	return s.remote.Merge(ctx, mergeID, pending)
}

// Logout drops the identity and returns to the guest cart in local storage
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.remote = nil
	s.mergeErr = nil
	s.setState(StateGuest)

	lines, err := s.guest.Lines(ctx)
	if err != nil {
		s.lines = []Line{}
		return err
	}
	s.lines = lines
	return nil
}

// fail logs network failures and leaves the cached cart untouched
func (s *Session) fail(op string, err error) error {
	if errors.Is(err, ErrNetwork) {
		s.logger.Warn("Cart operation did not take effect",
			zap.String("operation", op),
			zap.String("state", s.State().String()),
			zap.Error(err),
		)
	}
	return err
}

// apply adopts lines when the operation succeeded
func (s *Session) apply(op string, lines []Line, err error) error {
	if err != nil {
		return s.fail(op, err)
	}
	s.lines = lines
	return nil
}

// Lines refreshes and returns the current cart
func (s *Session) Lines(ctx context.Context) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store().Lines(ctx)
	if err := s.apply("lines", lines, err); err != nil {
		return nil, err
	}
	return append([]Line{}, s.lines...), nil
}

// AddLine adds quantity units of a product, limited by the stock left
func (s *Session) AddLine(ctx context.Context, productID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store().Add(ctx, productID, quantity)
	return s.apply("add", lines, err)
}

// RemoveLine deletes the line for productID, if any
func (s *Session) RemoveLine(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store().Remove(ctx, productID)
	return s.apply("remove", lines, err)
}

// SetQuantity sets the quantity of a line in the cart; quantity <= 0 removes it
func (s *Session) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store().SetQuantity(ctx, productID, quantity)
	return s.apply("set quantity", lines, err)
}

// Clear empties the cart and adopts whatever the store reports afterwards
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store().Clear(ctx)
	return s.apply("clear", lines, err)
}

// Totals folds the last known cart without a round trip
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.lines)
}
