// Package kakao talks to Kakao's OAuth and user APIs: it exchanges
// authorization codes for access tokens and fetches the user profile.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/markbates/goth/providers/kakao"
	"github.com/mealmate/server/internal/domain"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthHost = "https://kauth.kakao.com"
	DefaultAPIHost  = "https://kapi.kakao.com"

	defaultNickname    = "카카오사용자"
	noEmailDomain      = "noemail.com"
	maxProfileBodySize = 1 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Overridable for tests.
	AuthHost string
	APIHost  string

	// Timeout bounds every outbound call. Zero means 10 seconds.
	Timeout time.Duration

	// IDTokenVerifier, when set, checks the id_token returned with an
	// OpenID Connect login against the profile id.
	IDTokenVerifier *oidc.IDTokenVerifier
}

type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	profileURL string
	verifier   *oidc.IDTokenVerifier
	authorizer *kakao.Provider
}

func NewClient(cfg Config) *Client {
	if cfg.AuthHost == "" {
		cfg.AuthHost = DefaultAuthHost
	}
	if cfg.APIHost == "" {
		cfg.APIHost = DefaultAPIHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	authHost := strings.TrimRight(cfg.AuthHost, "/")

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authHost + "/oauth/authorize",
				TokenURL:  authHost + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		profileURL: strings.TrimRight(cfg.APIHost, "/") + "/v2/user/me",
		verifier:   cfg.IDTokenVerifier,
		authorizer: kakao.New(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI),
	}
}

// NewIDTokenVerifier builds a verifier for id_tokens issued by authHost,
// fetching signing keys lazily from its JWKS endpoint.
func NewIDTokenVerifier(ctx context.Context, authHost, clientID string) *oidc.IDTokenVerifier {
	if authHost == "" {
		authHost = DefaultAuthHost
	}
	authHost = strings.TrimRight(authHost, "/")
	keySet := oidc.NewRemoteKeySet(ctx, authHost+"/.well-known/jwks.json")
	return oidc.NewVerifier(authHost, keySet, &oidc.Config{ClientID: clientID})
}

// AuthCodeURL returns the Kakao consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) (string, error) {
	sess, err := c.authorizer.BeginAuth(state)
	if err != nil {
		return "", fmt.Errorf("failed to begin kakao auth: %w", err)
	}
	return sess.GetAuthURL()
}

// ExchangeCode trades an authorization code for a Kakao access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, newProviderAuthError(OpTokenExchange, retrieveErr.Response.StatusCode, retrieveErr.ErrorCode, err)
		}
		return nil, newProviderAuthError(OpTokenExchange, 0, "", err)
	}
	return token, nil
}

type userMeResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
}

// FetchProfile loads the profile of the user owning token. When an id_token
// verifier is configured and the token carries an id_token, its subject must
// match the profile id.
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (*domain.ProviderProfile, error) {
	client := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   c.httpClient.Transport,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newProviderAuthError(OpFetchProfile, 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodySize))
	if err != nil {
		return nil, newProviderAuthError(OpFetchProfile, 0, "", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newProviderAuthError(OpFetchProfile, resp.StatusCode, "",
			fmt.Errorf("profile request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var me userMeResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, newProviderAuthError(OpFetchProfile, resp.StatusCode, "", fmt.Errorf("failed to parse profile: %w", err))
	}
	if me.ID == 0 {
		return nil, newProviderAuthError(OpFetchProfile, resp.StatusCode, "", errors.New("profile response has no id"))
	}

	profile := normalizeProfile(&me)

	if err := c.verifyIDToken(ctx, token, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (c *Client) verifyIDToken(ctx context.Context, token *oauth2.Token, profile *domain.ProviderProfile) error {
	if c.verifier == nil {
		return nil
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return newProviderAuthError(OpVerifyIDToken, http.StatusUnauthorized, "", err)
	}
	if idToken.Subject != strconv.FormatInt(profile.ProviderID, 10) {
		return newProviderAuthError(OpVerifyIDToken, http.StatusUnauthorized, "",
			fmt.Errorf("id_token subject %q does not match profile id %d", idToken.Subject, profile.ProviderID))
	}
	return nil
}

func normalizeProfile(me *userMeResponse) *domain.ProviderProfile {
	email := strings.TrimSpace(me.KakaoAccount.Email)
	if email == "" {
		email = FallbackEmail(me.ID)
	}

	nickname := strings.TrimSpace(me.KakaoAccount.Profile.Nickname)
	if nickname == "" {
		nickname = strings.TrimSpace(me.Properties.Nickname)
	}
	if nickname == "" {
		nickname = defaultNickname
	}

	image := me.KakaoAccount.Profile.ProfileImageURL
	if image == "" {
		image = me.Properties.ProfileImage
	}

	return &domain.ProviderProfile{
		ProviderID:      me.ID,
		Email:           email,
		Nickname:        TruncateNickname(nickname),
		ProfileImageURL: image,
	}
}

// FallbackEmail is the stable address stored for accounts that withhold an email.
func FallbackEmail(kakaoID int64) string {
	return fmt.Sprintf("kakao_%d@%s", kakaoID, noEmailDomain)
}

// TruncateNickname cuts s to domain.MaxNicknameLength runes.
func TruncateNickname(s string) string {
	if utf8.RuneCountInString(s) <= domain.MaxNicknameLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:domain.MaxNicknameLength])
}
