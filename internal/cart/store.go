package cart

import "sync"

// Store holds one cart per shopping session, keyed by an opaque session
// token. Requests belonging to different sessions can never observe or
// mutate each other's cart.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Get returns the session's cart, creating an empty one on first use.
func (s *Store) Get(token string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[token]
	if !ok {
		c = New()
		s.carts[token] = c
	}
	return c
}

// Drop forgets the session's cart entirely.
func (s *Store) Drop(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
}

// Len reports the number of live session carts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}
