package federated

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

type jsonGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error
}

type facebookMe struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FacebookProvider asks the Graph API who owns an access token.
type FacebookProvider struct {
	client   jsonGetter
	graphURL string
}

func NewFacebookProvider(client jsonGetter, graphURL string) *FacebookProvider {
	return &FacebookProvider{client: client, graphURL: strings.TrimRight(graphURL, "/")}
}

func (p *FacebookProvider) Exchange(ctx context.Context, accessToken string) (*auth.Identity, error) {
	if accessToken == "" {
		return nil, reject("facebook", "empty token")
	}

	var me facebookMe
	q := url.Values{"fields": {"id,name,email"}, "access_token": {accessToken}}
	if err := p.client.GetJSON(ctx, p.graphURL+"/me", q, &me); err != nil {
		return nil, reject("facebook", err)
	}
	if me.Email == "" || me.ID == "" {
		return nil, reject("facebook", "profile without email or id")
	}

	return &auth.Identity{Email: me.Email, DisplayName: me.Name, FederatedID: me.ID}, nil
}
