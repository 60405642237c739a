package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// assertionClaims are the claims a service-account assertion must carry.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func (o *OAuthService) jwtBearerGrant(ctx context.Context, req *tokenRequest) (*services.IssuedToken, error) {
	if req.Assertion == "" {
		return nil, services.InvalidRequest("missing required parameter: assertion")
	}

	claims, err := decodeAssertion(req.Assertion)
	if err != nil {
		o.log.WithError(err).WithField("request_ip", req.requestIP).Info("Rejected undecodable JWT assertion")
		return nil, services.InvalidGrant("invalid JWT assertion")
	}
	if !o.now().Before(claims.ExpiresAt.Time) {
		return nil, services.InvalidGrant("JWT assertion has expired")
	}

	account, err := o.store.FindUpstreamAccountByEmail(ctx, claims.Issuer)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidGrant("service account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find server account by email: %w", err)
	}

	client, err := o.accountOwner(ctx, account)
	if err != nil {
		return nil, err
	}

	if account.PublicKeyPEM != "" {
		if err := verifyAssertion(req.Assertion, account.PublicKeyPEM); err != nil {
			o.log.WithFields(logrus.Fields{
				"client_email": account.ClientEmail,
				"key_id":       account.PrivateKeyID,
			}).WithError(err).Warn("JWT assertion signature rejected")
			return nil, services.InvalidGrant("JWT assertion signature is invalid")
		}
	}

	if err := o.allow(client); err != nil {
		return nil, err
	}
	return o.tokens.CreateMapping(ctx, client.ClientToken, account.ID, req.mappingOptions(claims.Scope))
}

func (o *OAuthService) accountOwner(ctx context.Context, account *models.UpstreamAccount) (*models.Client, error) {
	if account.ClientID == nil {
		return nil, services.InvalidClient("no client is associated with this service account")
	}
	client, err := o.store.FindClient(ctx, *account.ClientID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidClient("no client is associated with this service account")
	}
	if err != nil {
		return nil, fmt.Errorf("find account owner: %w", err)
	}
	if !client.Enabled {
		return nil, services.InvalidClient("client is disabled")
	}
	return client, nil
}

// decodeAssertion reads the claims without checking the signature and makes
// sure the ones the exchange relies on are present.
func decodeAssertion(assertion string) (*assertionClaims, error) {
	claims := &assertionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return nil, err
	}

	switch {
	case claims.Issuer == "":
		return nil, errors.New("missing iss claim")
	case claims.Scope == "":
		return nil, errors.New("missing scope claim")
	case len(claims.Audience) == 0:
		return nil, errors.New("missing aud claim")
	case claims.ExpiresAt == nil:
		return nil, errors.New("missing exp claim")
	}
	return claims, nil
}

func verifyAssertion(assertion, publicKeyPEM string) error {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return fmt.Errorf("parse account public key: %w", err)
	}
	_, err = jwt.Parse(assertion, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithoutClaimsValidation())
	return err
}
