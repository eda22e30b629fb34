package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is Google's reCAPTCHA v3 verification endpoint
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// maxResponseBytes bounds the siteverify response we are willing to read
const maxResponseBytes = 64 * 1024

type siteVerifyResponse struct {
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	Action      string   `json:"action"`
	ErrorCodes  []string `json:"error-codes"`
	Score       float64  `json:"score"`
	Success     bool     `json:"success"`
}

// RecaptchaVerifier verifies reCAPTCHA v3 tokens
type RecaptchaVerifier struct {
	client   *http.Client
	secret   string
	endpoint string
}

// NewRecaptchaVerifier creates a verifier for the given server secret.
// An empty endpoint uses DefaultEndpoint.
func NewRecaptchaVerifier(secret, endpoint string, timeout time.Duration) *RecaptchaVerifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecaptchaVerifier{
		client:   &http.Client{Timeout: timeout},
		secret:   secret,
		endpoint: endpoint,
	}
}

// Verify posts the token to the siteverify endpoint and decodes the verdict.
// A missing token is reported as an unsuccessful result without a network call.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return &Result{Success: false, ErrorCodes: []string{"missing-input-response"}}, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captcha verification returned status %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	return &Result{
		Success:    body.Success,
		Score:      body.Score,
		Action:     body.Action,
		Hostname:   body.Hostname,
		ErrorCodes: body.ErrorCodes,
	}, nil
}
