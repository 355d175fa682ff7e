package federated

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/api/idtoken"
)

// validateIDToken is a seam for tests.
var validateIDToken = idtoken.Validate

// GoogleProvider verifies Google Sign-In ID tokens issued for clientID.
type GoogleProvider struct {
	clientID string
}

func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{clientID: clientID}
}

func (p *GoogleProvider) Exchange(ctx context.Context, credential string) (*auth.Identity, error) {
	if credential == "" {
		return nil, reject("google", "empty credential")
	}

	payload, err := validateIDToken(ctx, credential, p.clientID)
	if err != nil {
		return nil, reject("google", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, reject("google", "email not found in claims")
	}
	name, _ := payload.Claims["name"].(string)

	return &auth.Identity{Email: email, DisplayName: name, FederatedID: payload.Subject}, nil
}
