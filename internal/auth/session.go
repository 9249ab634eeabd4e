package auth

// Session is the record stored for an authenticated browser. It holds
// identity facts only, never token material.
type Session struct {
	Identity IdentityRecord  `json:"identity"`
	Groups   GroupMembership `json:"groups"`
	Provider ProviderID      `json:"provider"`
}

// DisplayName returns the user identifier for logs and pages.
func (s *Session) DisplayName() string {
	if s == nil {
		return UnknownUser
	}
	return DisplayName(s.Identity)
}
