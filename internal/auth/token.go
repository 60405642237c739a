package auth

import (
	"context"
	"net/http"

	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/sirupsen/logrus"
)

// tokenRequest is the union of the parameters of every supported grant.
type tokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	Code         string `form:"code" json:"code"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Assertion    string `form:"assertion" json:"assertion"`
	Scope        string `form:"scope" json:"scope"`

	requestIP string
	userAgent string
}

type grantFunc func(ctx context.Context, req *tokenRequest) (*services.IssuedToken, error)

// HandleToken handles the token endpoint for every supported grant
// @Summary Token Endpoint
// @Description Exchange client credentials, an authorization code, a refresh token or a signed JWT assertion for an upstream credential pair
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param grant_type formData string true "client_credentials, authorization_code, refresh_token or urn:ietf:params:oauth:grant-type:jwt-bearer"
// @Param client_id formData string false "Client ID (or HTTP Basic)"
// @Param client_secret formData string false "Client Secret (or HTTP Basic)"
// @Param code formData string false "Authorization code"
// @Param redirect_uri formData string false "Redirect URI bound to the code"
// @Param refresh_token formData string false "Refresh token"
// @Param assertion formData string false "Signed JWT assertion"
// @Param scope formData string false "Space separated scopes"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Failure 429 {object} models.OAuth2Error
// @Failure 500 {object} models.OAuth2Error
// @Router /token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	noStore(c)

	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		o.writeError(c, services.InvalidRequest("malformed token request"))
		return
	}
	req.requestIP = c.ClientIP()
	req.userAgent = c.Request.UserAgent()
	o.resolveClientCredentials(c.Request, &req)

	if req.GrantType == "" {
		o.writeError(c, services.InvalidRequest("missing required parameter: grant_type"))
		return
	}
	c.Header("X-Grant-Type", req.GrantType)

	grant, ok := o.grants()[oauth2.GrantType(req.GrantType)]
	if !ok {
		o.writeError(c, &services.ExchangeError{
			Code:        oauth2errors.ErrUnsupportedGrantType,
			Description: "grant type " + req.GrantType + " is not supported",
		})
		return
	}

	issued, err := grant(c.Request.Context(), &req)
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"grant_type": req.GrantType,
			"client_id":  req.ClientID,
			"request_id": c.GetString(requestIDKey),
		}).WithError(err).Info("Token request rejected")
		o.writeError(c, err)
		return
	}

	o.log.WithFields(logrus.Fields{
		"grant_type": req.GrantType,
		"client_id":  req.ClientID,
		"mapping_id": issued.MappingID,
		"request_id": c.GetString(requestIDKey),
	}).Info("Token issued")
	c.JSON(http.StatusOK, issued.Response())
}

func (o *OAuthService) grants() map[oauth2.GrantType]grantFunc {
	return map[oauth2.GrantType]grantFunc{
		oauth2.ClientCredentials: o.clientCredentialsGrant,
		oauth2.AuthorizationCode: o.authorizationCodeGrant,
		oauth2.Refreshing:        o.refreshTokenGrant,
		JWTBearer:                o.jwtBearerGrant,
	}
}

// resolveClientCredentials lets HTTP Basic or form credentials override the bound body.
func (o *OAuthService) resolveClientCredentials(r *http.Request, req *tokenRequest) {
	for _, handler := range o.clientInfo {
		if id, secret, err := handler(r); err == nil && id != "" {
			req.ClientID, req.ClientSecret = id, secret
			return
		}
	}
}

func (req *tokenRequest) mappingOptions(scope string) services.MappingOptions {
	return services.MappingOptions{
		Scope:     scope,
		GrantType: req.GrantType,
		RequestIP: req.requestIP,
		UserAgent: req.userAgent,
	}
}
