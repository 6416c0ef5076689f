package domain

import "time"

// Session is the per browser state kept in the session store.
type Session struct {
	ID        string        `json:"id"`
	Identity  *Identity     `json:"identity,omitempty"`
	Cart      Cart          `json:"cart,omitempty"`
	Draft     CheckoutDraft `json:"draft"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (s *Session) LoggedIn() bool {
	return s.Identity != nil
}

func (s *Session) IsAdmin() bool {
	return s.Identity != nil && s.Identity.IsAdmin
}

// SignIn replaces the identity and drops anything tied to the previous one.
func (s *Session) SignIn(id *Identity) {
	s.Identity = id
	s.Cart = nil
	s.Draft = CheckoutDraft{}
}
