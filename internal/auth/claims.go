package auth

import "strings"

// UnknownUser is the display identifier used when no known claim is present.
const UnknownUser = "unknown"

// identifierClaims is the lookup order for a user identifier across providers.
// Entra ID uses userPrincipalName/upn, Cognito preferred_username/email/username.
var identifierClaims = []string{
	"userPrincipalName",
	"upn",
	"preferred_username",
	"email",
	"mail",
	"username",
}

// DisplayName returns the first non-empty string value among the known
// identifier claims, or UnknownUser.
func DisplayName(record IdentityRecord) string {
	for _, key := range identifierClaims {
		if v, ok := record[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return UnknownUser
}
