package authz

import (
	"fmt"
	"strings"
)

// Profile represents user information needed for authorization.
// It is built from an auth.Session but keeps packages decoupled.
type Profile struct {
	User   string   // display identifier, usually an email or UPN
	Groups []string // group displayName and id values
}

// Policy defines an authorization rule that can allow or deny access.
type Policy interface {
	// Authorize returns nil if the user is authorized, or an error if denied.
	Authorize(profile Profile) error
	// Name returns a human-readable name for this policy.
	Name() string
}

// EmailDomainPolicy allows users whose identifier ends in one of the allowed domains.
type EmailDomainPolicy struct {
	AllowedDomains []string
}

// Name returns the policy name.
func (p *EmailDomainPolicy) Name() string {
	return "EmailDomainRestriction"
}

// Authorize checks the domain part of the user identifier.
func (p *EmailDomainPolicy) Authorize(profile Profile) error {
	at := strings.LastIndex(profile.User, "@")
	if at < 0 {
		return fmt.Errorf("access denied: %s is not an email address", profile.User)
	}

	domain := profile.User[at+1:]
	for _, allowed := range p.AllowedDomains {
		if strings.EqualFold(domain, strings.TrimPrefix(allowed, "@")) {
			return nil
		}
	}
	return fmt.Errorf("access denied: domain %s is not authorized", domain)
}

// GroupPolicy allows users that belong to at least one of the allowed groups.
type GroupPolicy struct {
	AllowedGroups []string
}

// Name returns the policy name.
func (p *GroupPolicy) Name() string {
	return "GroupMembership"
}

// Authorize checks the user's groups against the allowed list.
func (p *GroupPolicy) Authorize(profile Profile) error {
	for _, group := range profile.Groups {
		for _, allowed := range p.AllowedGroups {
			if strings.EqualFold(group, allowed) {
				return nil
			}
		}
	}
	return fmt.Errorf("access denied: %s is not a member of an authorized group", profile.User)
}

// Authorizer manages a collection of authorization policies.
type Authorizer struct {
	policies []Policy
	enabled  bool
}

// NewAuthorizer creates a new authorizer with the given policies.
func NewAuthorizer(enabled bool, policies ...Policy) *Authorizer {
	return &Authorizer{
		policies: policies,
		enabled:  enabled,
	}
}

// Enabled reports whether any policy is enforced.
func (a *Authorizer) Enabled() bool {
	return a != nil && a.enabled && len(a.policies) > 0
}

// Authorize runs all policies and returns an error if any policy denies access.
func (a *Authorizer) Authorize(profile Profile) error {
	if !a.Enabled() {
		return nil
	}

	for _, policy := range a.policies {
		if err := policy.Authorize(profile); err != nil {
			return fmt.Errorf("authorization policy %s failed: %w", policy.Name(), err)
		}
	}
	return nil
}

// NewAllowListAuthorizer builds an authorizer from the configured allow lists.
// Empty lists add no policy; with both empty the authorizer allows everyone.
func NewAllowListAuthorizer(domains, groups []string) *Authorizer {
	var policies []Policy
	if domains = compact(domains); len(domains) > 0 {
		policies = append(policies, &EmailDomainPolicy{AllowedDomains: domains})
	}
	if groups = compact(groups); len(groups) > 0 {
		policies = append(policies, &GroupPolicy{AllowedGroups: groups})
	}
	return NewAuthorizer(len(policies) > 0, policies...)
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
