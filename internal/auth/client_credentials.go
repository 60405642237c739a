package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
)

func (o *OAuthService) clientCredentialsGrant(ctx context.Context, req *tokenRequest) (*services.IssuedToken, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, services.InvalidRequest("client_id and client_secret are required")
	}

	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret, true)
	if err != nil {
		return nil, err
	}
	if err := o.allow(client); err != nil {
		return nil, err
	}

	account, err := o.store.DefaultUpstreamAccount(ctx, client.ID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidClient("no enabled server account is available for this client")
	}
	if err != nil {
		return nil, fmt.Errorf("select default server account: %w", err)
	}

	scope := req.Scope
	if scope == "" {
		scope = client.Scopes
	}
	return o.tokens.CreateMapping(ctx, client.ClientToken, account.ID, req.mappingOptions(scope))
}
