// Package loginflow drives the identity service's API login flow end to
// end: create a flow, extract its CSRF token, submit password credentials,
// and scrape the session cookie pair from the response. It is the smoke
// test that proves a deployed stack actually signs users in.
package loginflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/systmms/authstack/internal/logging"
)

// sessionCookiePattern matches the session pair in a Set-Cookie header,
// cookie attributes excluded.
var sessionCookiePattern = regexp.MustCompile(`ory_session_token=[^;]*`)

// maxErrorBody bounds how much of a failed response lands in an error
// message.
const maxErrorBody = 200

// Client talks to one identity service public endpoint.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a Client for the identity base URL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse identity URL %s: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("identity URL %q is not an absolute URL", baseURL)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// FlowNode is one UI node of a login flow. Only the attributes the login
// needs are decoded.
type FlowNode struct {
	Attributes struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"attributes"`
}

// Flow is a created login flow.
type Flow struct {
	ID string `json:"id"`
	UI struct {
		Nodes []FlowNode `json:"nodes"`
	} `json:"ui"`
}

// CSRFToken returns the flow's CSRF token. A flow without one cannot be
// submitted, so absence is an explicit error, never an empty value.
func (f *Flow) CSRFToken() (string, error) {
	for _, node := range f.UI.Nodes {
		if node.Attributes.Name != "csrf_token" {
			continue
		}
		if node.Attributes.Value == "" {
			return "", fmt.Errorf("login flow %s carries an empty csrf_token node", f.ID)
		}
		return node.Attributes.Value, nil
	}
	return "", fmt.Errorf("login flow %s has no csrf_token node", f.ID)
}

// CreateFlow starts an API login flow.
func (c *Client) CreateFlow(ctx context.Context) (*Flow, error) {
	endpoint := c.endpoint("/self-service/login/api", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create flow request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create login flow: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read login flow response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create login flow returned status %d: %s", resp.StatusCode, bodyHead(body))
	}

	var flow Flow
	if err := json.Unmarshal(body, &flow); err != nil {
		return nil, fmt.Errorf("parse login flow response: %w", err)
	}
	if flow.ID == "" {
		return nil, fmt.Errorf("login flow response from %s carries no id", endpoint)
	}
	return &flow, nil
}

// passwordSubmission is the login payload. Field order here is the wire
// order.
type passwordSubmission struct {
	Method     string `json:"method"`
	CSRFToken  string `json:"csrf_token"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Session is the outcome of a successful login.
type Session struct {
	// Token is the session token from the response body, when present.
	Token logging.Secret
	// CookiePair is the full ory_session_token=<value> pair from the
	// Set-Cookie header.
	CookiePair logging.Secret
}

// SubmitPassword posts password credentials for a created flow and
// scrapes the session cookie pair from the response.
func (c *Client) SubmitPassword(ctx context.Context, flow *Flow, identifier string, password logging.Secret) (*Session, error) {
	token, err := flow.CSRFToken()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(passwordSubmission{
		Method:     "password",
		CSRFToken:  token,
		Identifier: identifier,
		Password:   password.Reveal(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal login submission: %w", err)
	}

	endpoint := c.endpoint("/self-service/login", url.Values{"flow": []string{flow.ID}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("login returned status %d: %s", resp.StatusCode, bodyHead(respBody))
	}

	session := &Session{}
	var payload struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(respBody, &payload); err == nil {
		session.Token = logging.Secret(payload.SessionToken)
	}

	pair := scrapeSessionCookie(resp.Header)
	if pair == "" {
		return nil, fmt.Errorf("login response carries no session pair in its Set-Cookie headers")
	}
	session.CookiePair = logging.Secret(pair)
	return session, nil
}

// endpoint joins a path (and optional query) onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// scrapeSessionCookie returns the first session pair found across the
// Set-Cookie headers, or "".
func scrapeSessionCookie(header http.Header) string {
	for _, cookie := range header.Values("Set-Cookie") {
		if pair := sessionCookiePattern.FindString(cookie); pair != "" {
			return pair
		}
	}
	return ""
}

func bodyHead(body []byte) string {
	head := strings.TrimSpace(string(body))
	if len(head) > maxErrorBody {
		head = head[:maxErrorBody] + "..."
	}
	return head
}
