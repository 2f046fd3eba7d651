package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"mkoval/runcoach-app/internal/domain"
)

// Strava API endpoints.
const (
	baseURL  = "https://www.strava.com/api/v3"
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"

	// Scope needed to read the athlete's activities.
	DefaultScope = "read,activity:read"
)

const requestTimeout = 15 * time.Second

// TokenSet is the provider's answer to a code exchange or a refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	AthleteID    int64 // Only present on the initial code exchange
	Scope        string
}

// Activity is one provider-side activity summary. Raw carries the untouched
// provider JSON for archival.
type Activity struct {
	ID             int64
	Name           string
	Type           string
	StartDate      time.Time
	MovingTimeSec  int
	ElapsedTimeSec int
	DistanceMeters float64
	ElevationGain  float64
	AverageHR      float64
	Raw            json.RawMessage
}

// Client is the activity-provider boundary the sync use case consumes.
type Client interface {
	// AuthCodeURL builds the OAuth authorization redirect carrying state.
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
	ListActivities(ctx context.Context, accessToken string, after time.Time) ([]Activity, error)
	Deauthorize(ctx context.Context, accessToken string) error
}

// apiClient implements Client against the Strava v3 API, using x/oauth2 for
// the token dance and a plain http.Client for resource calls.
type apiClient struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewClient creates a new Strava API client.
func NewClient(clientID, clientSecret, redirectURL string) Client {
	return &apiClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{DefaultScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *apiClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// ExchangeCode trades the authorization code for a token set. Strava returns
// the athlete object alongside the tokens; its id is what lets us route
// webhook events back to a user.
func (c *apiClient) ExchangeCode(ctx context.Context, code string) (TokenSet, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return TokenSet{}, classifyOAuthErr(err)
	}

	set := tokenFromOAuth(tok)
	if athlete, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			set.AthleteID = int64(id)
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	return set, nil
}

// Refresh trades the refresh token for a fresh token set.
func (c *apiClient) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenSet{}, classifyOAuthErr(err)
	}
	return tokenFromOAuth(tok), nil
}

// activityPayload mirrors the fields we lift out of the provider JSON.
type activityPayload struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageHeartrate   float64   `json:"average_heartrate"`
}

// ListActivities fetches the athlete's recent activities created after the
// given time.
func (c *apiClient) ListActivities(ctx context.Context, accessToken string, after time.Time) ([]Activity, error) {
	q := url.Values{}
	q.Set("per_page", "50")
	if !after.IsZero() {
		q.Set("after", strconv.FormatInt(after.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var rawItems []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rawItems); err != nil {
		return nil, fmt.Errorf("decoding activities response: %w", err)
	}

	activities := make([]Activity, 0, len(rawItems))
	for _, raw := range rawItems {
		var p activityPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding activity: %w", err)
		}
		activities = append(activities, Activity{
			ID:             p.ID,
			Name:           p.Name,
			Type:           p.Type,
			StartDate:      p.StartDate,
			MovingTimeSec:  p.MovingTime,
			ElapsedTimeSec: p.ElapsedTime,
			DistanceMeters: p.Distance,
			ElevationGain:  p.TotalElevationGain,
			AverageHR:      p.AverageHeartrate,
			Raw:            raw,
		})
	}
	return activities, nil
}

// Deauthorize revokes the access token on the provider side. Best effort:
// callers may ignore the error during disconnect.
func (c *apiClient) Deauthorize(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.strava.com/oauth/deauthorize", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()
	return classifyStatus(resp.StatusCode)
}

func tokenFromOAuth(tok *oauth2.Token) TokenSet {
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UTC(),
	}
}

// classifyOAuthErr maps token-endpoint failures into the error taxonomy:
// a rejected grant means the credential is dead (re-authenticate), anything
// transport-shaped is retryable.
func classifyOAuthErr(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: provider token endpoint: %v", domain.ErrTransient, err)
		}
		return fmt.Errorf("%w: provider rejected grant", domain.ErrAuthentication)
	}
	return classifyTransportErr(err)
}

func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: provider timeout: %v", domain.ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: provider timeout: %v", domain.ErrTransient, err)
	}
	return fmt.Errorf("%w: provider unreachable: %v", domain.ErrTransient, err)
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: provider rejected token", domain.ErrAuthentication)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: provider returned status %d", domain.ErrTransient, status)
	default:
		return fmt.Errorf("provider returned unexpected status %d", status)
	}
}
