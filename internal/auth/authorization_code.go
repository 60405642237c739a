package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type authorizeRequest struct {
	ResponseType string `form:"response_type"`
	ClientID     string `form:"client_id"`
	RedirectURI  string `form:"redirect_uri"`
	Scope        string `form:"scope"`
	State        string `form:"state"`
	LoginHint    string `form:"login_hint"`
}

// HandleAuthorize issues an authorization code for an enabled client
// @Summary Authorization Endpoint
// @Description Issues a single-use authorization code bound to one of the client's server accounts and redirects back with it
// @Tags OAuth2
// @Produce json
// @Param client_id query string true "Client ID"
// @Param response_type query string false "Must be code when present"
// @Param redirect_uri query string false "Redirect URI, defaults to the registered one"
// @Param scope query string false "Space separated scopes"
// @Param state query string false "Opaque value echoed back"
// @Param login_hint query string false "Service account email to bind the code to"
// @Success 200 {object} map[string]interface{}
// @Success 302 {string} string "Redirect to redirect_uri with code and state"
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /auth [get]
func (o *OAuthService) HandleAuthorize(c *gin.Context) {
	noStore(c)
	ctx := c.Request.Context()

	var req authorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.ClientID == "" {
		o.writeError(c, services.InvalidRequest("missing required parameter: client_id"))
		return
	}
	if req.ResponseType != "" && req.ResponseType != "code" {
		o.writeError(c, services.InvalidRequest("response_type must be code"))
		return
	}

	client, err := o.authenticateClient(ctx, req.ClientID, "", false)
	if err != nil {
		o.writeError(c, err)
		return
	}

	// Validate redirect URI
	if req.RedirectURI != "" && client.RedirectURI != "" && req.RedirectURI != client.RedirectURI {
		o.writeError(c, services.InvalidRequest("redirect_uri does not match the registered value"))
		return
	}

	account, err := o.authorizeAccount(ctx, client, req.LoginHint)
	if err != nil {
		o.writeError(c, err)
		return
	}

	now := o.now()
	authCode := &models.AuthorizationCode{
		Code:            uuid.New().String(),
		ClientID:        client.ClientID,
		ServerAccountID: account.ID,
		Scope:           req.Scope,
		RedirectURI:     req.RedirectURI,
		ExpiresAt:       now.Add(o.codeTTL),
	}
	if err := o.codes.Create(ctx, authCode); err != nil {
		o.writeError(c, fmt.Errorf("store authorization code: %w", err))
		return
	}

	o.log.WithFields(logrus.Fields{
		"client_id":         client.ClientID,
		"server_account_id": account.ID,
		"code":              services.MaskToken(authCode.Code),
	}).Info("Authorization code issued")

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = client.RedirectURI
	}
	if redirectURI == "" {
		c.JSON(http.StatusOK, gin.H{
			"code":       authCode.Code,
			"state":      req.State,
			"expires_in": int64(o.codeTTL.Seconds()),
		})
		return
	}

	target, err := url.Parse(redirectURI)
	if err != nil {
		o.writeError(c, services.InvalidRequest("redirect_uri is not a valid URL"))
		return
	}
	query := target.Query()
	query.Set("code", authCode.Code)
	if req.State != "" {
		query.Set("state", req.State)
	}
	target.RawQuery = query.Encode()
	c.Redirect(http.StatusFound, target.String())
}

// authorizeAccount picks the account a code is bound to: the hinted one when the
// client owns it, otherwise the client's default.
func (o *OAuthService) authorizeAccount(ctx context.Context, client *models.Client, loginHint string) (*models.UpstreamAccount, error) {
	if loginHint != "" {
		account, err := o.store.FindUpstreamAccountByEmail(ctx, loginHint)
		if errors.Is(err, services.ErrNotFound) || (err == nil && (account.ClientID == nil || *account.ClientID != client.ID)) {
			return nil, services.InvalidRequest("login_hint does not name a server account of this client")
		}
		if err != nil {
			return nil, fmt.Errorf("find server account by email: %w", err)
		}
		return account, nil
	}

	account, err := o.store.DefaultUpstreamAccount(ctx, client.ID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidClient("no enabled server account is available for this client")
	}
	if err != nil {
		return nil, fmt.Errorf("select default server account: %w", err)
	}
	return account, nil
}

func (o *OAuthService) authorizationCodeGrant(ctx context.Context, req *tokenRequest) (*services.IssuedToken, error) {
	if req.Code == "" || req.ClientID == "" {
		return nil, services.InvalidRequest("code and client_id are required")
	}

	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret, false)
	if err != nil {
		return nil, err
	}
	if err := o.allow(client); err != nil {
		return nil, err
	}

	// The code is spent even when a later check fails.
	authCode, err := o.codes.Consume(ctx, req.Code)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidGrant("invalid authorization code")
	}
	if err != nil {
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}

	switch {
	case !o.now().Before(authCode.ExpiresAt):
		return nil, services.InvalidGrant("authorization code has expired")
	case authCode.ClientID != client.ClientID:
		return nil, services.InvalidGrant("authorization code was issued to another client")
	case authCode.RedirectURI != "" && authCode.RedirectURI != req.RedirectURI:
		return nil, services.InvalidGrant("redirect_uri does not match the authorization request")
	}

	return o.tokens.CreateMapping(ctx, client.ClientToken, authCode.ServerAccountID, req.mappingOptions(authCode.Scope))
}
