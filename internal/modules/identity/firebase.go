// README: Firebase ID token verification mapped onto moto principals.
package identity

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"moto/internal/types"
)

// IDTokenVerifier is the part of *auth.Client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens. The role comes from the "role"
// custom claim (default rider) and the account id from "account_id",
// falling back to the Firebase UID.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

var _ Verifier = (*FirebaseVerifier)(nil)

func (f *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (types.Principal, error) {
	token, err := f.client.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return types.Principal{}, ErrInvalidToken
	}
	role := types.RoleRider
	if v, ok := token.Claims["role"].(string); ok && v != "" {
		role = types.Role(v)
	}
	id := types.ID(token.UID)
	if v, ok := token.Claims["account_id"].(string); ok && v != "" {
		id = types.ID(v)
	}
	return principalFor(id, role)
}
