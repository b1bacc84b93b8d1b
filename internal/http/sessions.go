package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"zaakiyah/internal/basket"
	"zaakiyah/internal/cache"
	"zaakiyah/internal/checkout"
	"zaakiyah/internal/gateway"
)

const sessionCookieName = "zk_session"

// Session holds one donor's basket, watchlist and checkout. All handler
// access goes through the mutex; the checkout releases it internally during
// gateway calls so the basket stays editable.
type Session struct {
	mu        sync.Mutex
	basket    *basket.Basket
	watchlist *basket.Watchlist
	checkout  *checkout.Checkout
}

func newSession(gw gateway.Client, recorder checkout.Recorder) *Session {
	s := &Session{
		basket:    basket.New(),
		watchlist: basket.NewWatchlist(),
	}
	s.checkout = checkout.New(gw, s.basket, recorder, nil)
	return s
}

// resetCheckoutIfDone swaps in a fresh checkout after a completed donation so
// the donor can start a new basket in the same session. Callers hold s.mu.
func (s *Session) resetCheckoutIfDone(gw gateway.Client, recorder checkout.Recorder) {
	if s.checkout.State() == checkout.StateCompleted {
		s.checkout = checkout.New(gw, s.basket, recorder, nil)
	}
}

// sessionStore keeps live sessions in a TTL LRU, so abandoned carts and
// never-resumed gateway redirects age out on their own.
type sessionStore struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[*Session]
	gw       gateway.Client
	recorder checkout.Recorder
}

func newSessionStore(gw gateway.Client, recorder checkout.Recorder, maxSessions int, ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: cache.NewLRUCache[*Session](maxSessions, ttl),
		gw:       gw,
		recorder: recorder,
	}
}

func (st *sessionStore) CleanExpired() int {
	return st.sessions.CleanExpired()
}

// get returns the request's session, creating one (and setting the cookie)
// when the token is missing, expired or unknown. Activity slides the TTL.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		if s, ok := st.sessions.Get(c.Value); ok {
			st.sessions.Touch(c.Value)
			return s
		}
	}

	token := uuid.NewString()
	s := newSession(st.gw, st.recorder)
	st.sessions.Set(token, s)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}
