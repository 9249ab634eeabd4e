package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailDomainPolicy(t *testing.T) {
	policy := &EmailDomainPolicy{AllowedDomains: []string{"contoso.com", "@example.org"}}

	assert.NoError(t, policy.Authorize(Profile{User: "alice@contoso.com"}))
	assert.NoError(t, policy.Authorize(Profile{User: "bob@EXAMPLE.org"}))
	assert.Error(t, policy.Authorize(Profile{User: "mallory@evil.com"}))
	assert.Error(t, policy.Authorize(Profile{User: "unknown"}))
}

func TestGroupPolicy(t *testing.T) {
	policy := &GroupPolicy{AllowedGroups: []string{"Engineering"}}

	assert.NoError(t, policy.Authorize(Profile{User: "alice", Groups: []string{"Sales", "engineering"}}))
	assert.Error(t, policy.Authorize(Profile{User: "bob", Groups: []string{"Sales"}}))
	assert.Error(t, policy.Authorize(Profile{User: "carol"}))
}

func TestAuthorizer(t *testing.T) {
	t.Run("no lists allows everyone", func(t *testing.T) {
		a := NewAllowListAuthorizer(nil, []string{" "})
		assert.False(t, a.Enabled())
		assert.NoError(t, a.Authorize(Profile{User: "anyone"}))
	})

	t.Run("nil authorizer allows everyone", func(t *testing.T) {
		var a *Authorizer
		assert.NoError(t, a.Authorize(Profile{User: "anyone"}))
	})

	t.Run("all policies must pass", func(t *testing.T) {
		a := NewAllowListAuthorizer([]string{"contoso.com"}, []string{"Engineering"})
		assert.True(t, a.Enabled())

		assert.NoError(t, a.Authorize(Profile{User: "alice@contoso.com", Groups: []string{"Engineering"}}))

		err := a.Authorize(Profile{User: "alice@contoso.com", Groups: []string{"Sales"}})
		assert.ErrorContains(t, err, "GroupMembership")

		err = a.Authorize(Profile{User: "bob@example.com", Groups: []string{"Engineering"}})
		assert.ErrorContains(t, err, "EmailDomainRestriction")
	})

	t.Run("disabled", func(t *testing.T) {
		a := NewAuthorizer(false, &GroupPolicy{AllowedGroups: []string{"x"}})
		assert.NoError(t, a.Authorize(Profile{User: "bob"}))
	})
}
