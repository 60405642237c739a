package auth

import (
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
)

// TokenInfo mirrors the body of Google's tokeninfo endpoint.
type TokenInfo struct {
	Azp        string `json:"azp"`
	Aud        string `json:"aud"`
	Scope      string `json:"scope"`
	Exp        string `json:"exp"`
	ExpiresIn  string `json:"expires_in"`
	Email      string `json:"email"`
	AccessType string `json:"access_type"`
}

// HandleTokenInfo describes a live access token
// @Summary Token Info
// @Description Resolves an access token to its client and service account
// @Tags OAuth2
// @Produce json
// @Param access_token query string true "Access token"
// @Success 200 {object} auth.TokenInfo
// @Failure 400 {object} models.OAuth2Error
// @Router /tokeninfo [get]
func (o *OAuthService) HandleTokenInfo(c *gin.Context) {
	noStore(c)

	accessToken := c.Query("access_token")
	if accessToken == "" {
		o.writeError(c, services.InvalidRequest("missing required parameter: access_token"))
		return
	}

	entry, err := o.tokens.LookupByAccessToken(c.Request.Context(), accessToken)
	if err != nil {
		o.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenInfo{
		Azp:        entry.ClientID,
		Aud:        entry.ClientID,
		Scope:      entry.Scope,
		Exp:        strconv.FormatInt(entry.ExpiresAt.Unix(), 10),
		ExpiresIn:  strconv.FormatInt(entry.ExpiresIn(o.now()), 10),
		Email:      entry.ClientEmail,
		AccessType: "offline",
	})
}

// HandleRevoke revokes an access token on behalf of its holder
// @Summary Revoke Token
// @Description Revokes an access token so it stops resolving
// @Tags OAuth2
// @Produce json
// @Param token query string true "Access token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Router /revoke [post]
func (o *OAuthService) HandleRevoke(c *gin.Context) {
	noStore(c)

	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}
	if token == "" {
		o.writeError(c, services.InvalidRequest("missing required parameter: token"))
		return
	}

	if err := o.tokens.Revoke(c.Request.Context(), token, "user_request"); err != nil {
		o.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// HandleCerts lists the public keys of the configured service accounts by key id
// @Summary Certificates
// @Description Mock of Google's v1 certs document, keyed by private_key_id
// @Tags OAuth2
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} models.OAuth2Error
// @Router /oauth2/v1/certs [get]
func (o *OAuthService) HandleCerts(c *gin.Context) {
	accounts, err := o.store.ListSigningAccounts(c.Request.Context())
	if err != nil {
		o.writeError(c, err)
		return
	}

	certs := make(map[string]string, len(accounts))
	for _, account := range accounts {
		kid := account.PrivateKeyID
		if kid == "" {
			kid = strconv.FormatUint(uint64(account.ID), 10)
		}
		certs[kid] = account.PublicKeyPEM
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, certs)
}
