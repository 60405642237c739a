package auth

import (
	"context"

	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
)

func (o *OAuthService) refreshTokenGrant(ctx context.Context, req *tokenRequest) (*services.IssuedToken, error) {
	if req.RefreshToken == "" || req.ClientID == "" {
		return nil, services.InvalidRequest("refresh_token and client_id are required")
	}

	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret, false)
	if err != nil {
		return nil, err
	}
	if err := o.allow(client); err != nil {
		return nil, err
	}

	return o.tokens.Refresh(ctx, req.RefreshToken, services.RefreshOptions{
		ClientToken: client.ClientToken,
		RequestIP:   req.requestIP,
		UserAgent:   req.userAgent,
	})
}
