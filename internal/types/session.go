package types

import "time"

// SessionState is the mutable working state of one conversation. One per
// session id, created lazily on first access, destroyed by TTL sweep or an
// explicit reset. Callers receive copies; the store owns the originals.
type SessionState struct {
	LastQuery string      `json:"last_query"`
	Plan      *TravelPlan `json:"plan,omitempty"`
	Places    []Place     `json:"places,omitempty"`
	Context   string      `json:"context,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SessionUpdate is a partial write against a session. Nil fields are left
// untouched.
type SessionUpdate struct {
	LastQuery *string
	Plan      *TravelPlan
	Places    []Place
	Context   *string
}

// Copy returns a shallow-plus-one-level copy safe to hand outside the
// store's lock.
func (s SessionState) Copy() SessionState {
	out := s
	if s.Plan != nil {
		plan := *s.Plan
		out.Plan = &plan
	}
	if s.Places != nil {
		out.Places = append([]Place(nil), s.Places...)
	}
	return out
}
