package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by identity tokens issued by the
// tracker's auth service. The relay only verifies these tokens; it never issues
// them outside of tests.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the server-verified identifier of the account. Presence in a
	// project room is keyed on this value when the token is present.
	UserID string `json:"userId"`

	// Email is the account's email address, carried for audit logging only.
	Email string `json:"email"`

	// Role is the account role within the tracker (e.g. "MEMBER", "ADMIN").
	Role string `json:"role"`
}
