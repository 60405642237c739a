package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// JWTBearer is the RFC 7523 grant used by service-account clients.
const JWTBearer oauth2.GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

const defaultCodeTTL = 10 * time.Minute

// OAuthService is the Google-compatible grant handler in front of the token service.
type OAuthService struct {
	tokens  *services.TokenService
	store   services.CredentialStore
	codes   CodeStore
	limiter *services.RateLimiter
	log     logrus.FieldLogger
	now     func() time.Time
	codeTTL time.Duration

	// clientInfo extracts client credentials in order of preference.
	clientInfo []server.ClientInfoHandler
}

type Option func(*OAuthService)

func WithClock(now func() time.Time) Option {
	return func(o *OAuthService) { o.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *OAuthService) { o.log = logger }
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(o *OAuthService) { o.codeTTL = ttl }
}

func NewOAuthService(tokens *services.TokenService, store services.CredentialStore, codes CodeStore, limiter *services.RateLimiter, opts ...Option) *OAuthService {
	o := &OAuthService{
		tokens:     tokens,
		store:      store,
		codes:      codes,
		limiter:    limiter,
		log:        logrus.StandardLogger(),
		now:        func() time.Time { return time.Now().UTC() },
		codeTTL:    defaultCodeTTL,
		clientInfo: []server.ClientInfoHandler{server.ClientBasicHandler, server.ClientFormHandler},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.limiter == nil {
		o.limiter = services.NewRateLimiter(o.now)
	}
	o.log = o.log.WithField("component", "oauth2")
	return o
}

// RegisterRoutes mounts the Google-compatible endpoints on r.
func (o *OAuthService) RegisterRoutes(r gin.IRouter) {
	g := r.Group("", o.recovery())
	g.POST("/token", o.HandleToken)
	g.POST("/oauth2/v4/token", o.HandleToken)
	g.GET("/auth", o.HandleAuthorize)
	g.GET("/tokeninfo", o.HandleTokenInfo)
	g.POST("/revoke", o.HandleRevoke)
	g.GET("/oauth2/v1/certs", o.HandleCerts)
}

// recovery turns a panic in an OAuth2 handler into a server_error body.
func (o *OAuthService) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		o.writeError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// authenticateClient resolves an enabled client. The secret is checked whenever
// it is supplied and is mandatory when requireSecret is set.
func (o *OAuthService) authenticateClient(ctx context.Context, clientID, secret string, requireSecret bool) (*models.Client, error) {
	client, err := o.store.FindClientByClientID(ctx, clientID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.InvalidClient("client not found")
	}
	if err != nil {
		return nil, err
	}
	if !client.Enabled {
		return nil, services.InvalidClient("client is disabled")
	}
	if requireSecret && secret == "" {
		return nil, services.InvalidClient("client_secret is required")
	}
	if secret != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
			return nil, services.InvalidClient("client authentication failed")
		}
	}
	return client, nil
}

func (o *OAuthService) allow(client *models.Client) error {
	if !o.limiter.Allow(client) {
		return services.RateLimited("grant rate limit of %d per minute exceeded", client.RateLimit)
	}
	return nil
}

var statusCodes = map[error]int{
	oauth2errors.ErrInvalidRequest:       http.StatusBadRequest,
	oauth2errors.ErrInvalidGrant:         http.StatusBadRequest,
	oauth2errors.ErrUnsupportedGrantType: http.StatusBadRequest,
	oauth2errors.ErrInvalidClient:        http.StatusUnauthorized,
	oauth2errors.ErrServerError:          http.StatusInternalServerError,
	services.ErrRateLimitExceeded:        http.StatusTooManyRequests,
	services.ErrInvalidToken:             http.StatusBadRequest,
	services.ErrTokenExpired:             http.StatusBadRequest,
}

// writeError renders err as an RFC 6749 error body. Anything that is not an
// ExchangeError is reported as server_error without detail.
func (o *OAuthService) writeError(c *gin.Context, err error) {
	code, description := oauth2errors.ErrServerError, "internal server error"

	var xerr *services.ExchangeError
	if errors.As(err, &xerr) {
		code, description = xerr.Code, xerr.Description
	} else {
		o.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("OAuth2 request failed")
	}
	if code == services.ErrInvalidServerAccount {
		code = oauth2errors.ErrInvalidGrant
	}

	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusBadRequest
	}
	c.JSON(status, models.NewOAuth2Error(code.Error(), description))
}

const requestIDKey = "oauth2_request_id"

// noStore sets the headers every OAuth2 response carries.
func noStore(c *gin.Context) {
	requestID := uuid.New().String()
	c.Set(requestIDKey, requestID)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.Header("X-OAuth2-Request-ID", requestID)
}
