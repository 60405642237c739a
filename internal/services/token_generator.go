package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/go-oauth2/oauth2/v4/generates"
	oauth2models "github.com/go-oauth2/oauth2/v4/models"
)

const (
	accessTokenPrefix  = "ya29.a0"
	refreshTokenPrefix = "1//0"
)

// GenerateRequest describes the credential pair to mint.
type GenerateRequest struct {
	Client    *models.Client
	Account   *models.UpstreamAccount
	Scope     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenGenerator mints an access/refresh pair for a mapping.
type TokenGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (access, refresh string, err error)
}

// MockGoogleTokenGenerate produces provider-looking opaque tokens: a "ya29.a0"
// access token embedding base64url JSON claims, and a "1//0" refresh token.
// Neither is a signed credential.
type MockGoogleTokenGenerate struct {
	Audience string
	random   *generates.AccessGenerate
}

// NewMockGoogleTokenGenerate creates the generator; randomness comes from the go-oauth2 access generator.
func NewMockGoogleTokenGenerate(audience string) *MockGoogleTokenGenerate {
	return &MockGoogleTokenGenerate{
		Audience: audience,
		random:   generates.NewAccessGenerate(),
	}
}

// MockAccessClaims is the JSON embedded in a generated access token.
type MockAccessClaims struct {
	Issuer    string `json:"iss"`
	Audience  string `json:"aud,omitempty"`
	Azp       string `json:"azp"`
	Subject   string `json:"sub"`
	Scope     string `json:"scope"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (g *MockGoogleTokenGenerate) Generate(ctx context.Context, req GenerateRequest) (string, string, error) {
	if req.Client == nil || req.Account == nil {
		return "", "", fmt.Errorf("cannot generate token: client and account are required")
	}

	access, refresh, err := g.random.Token(ctx, &oauth2.GenerateBasic{
		Client:   &oauth2models.Client{ID: req.Client.ClientID},
		UserID:   req.Account.ClientEmail,
		CreateAt: req.IssuedAt,
	}, true)
	if err != nil {
		return "", "", fmt.Errorf("generate random token material: %w", err)
	}

	claims, err := json.Marshal(MockAccessClaims{
		Issuer:    "https://accounts.google.com",
		Audience:  g.Audience,
		Azp:       req.Client.ClientID,
		Subject:   req.Account.ClientEmail,
		Scope:     req.Scope,
		IssuedAt:  req.IssuedAt.Unix(),
		ExpiresAt: req.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", "", fmt.Errorf("encode access token claims: %w", err)
	}

	refreshClaims, err := json.Marshal(map[string]any{
		"azp": req.Client.ClientID,
		"typ": "refresh",
		"iat": req.IssuedAt.Unix(),
	})
	if err != nil {
		return "", "", fmt.Errorf("encode refresh token claims: %w", err)
	}

	accessToken := accessTokenPrefix + base64.RawURLEncoding.EncodeToString(claims) + "." + access
	refreshToken := refreshTokenPrefix + base64.RawURLEncoding.EncodeToString(refreshClaims) + "-" + refresh
	return accessToken, refreshToken, nil
}

// DecodeMockAccessToken extracts the claims embedded by MockGoogleTokenGenerate.
func DecodeMockAccessToken(token string) (*MockAccessClaims, error) {
	if !strings.HasPrefix(token, accessTokenPrefix) {
		return nil, fmt.Errorf("not a mock access token")
	}
	payload, _, found := strings.Cut(strings.TrimPrefix(token, accessTokenPrefix), ".")
	if !found {
		return nil, fmt.Errorf("malformed mock access token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode mock access token: %w", err)
	}
	var claims MockAccessClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode mock access token claims: %w", err)
	}
	return &claims, nil
}
