package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// ErrNotConfigured is returned when no Postmark server token is set.
var ErrNotConfigured = errors.New("email client not configured: missing server token")

// Client sends transactional mail through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the server token is set.
func (c *Client) Configured() bool {
	return c != nil && c.serverToken != ""
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	Tag           string `json:"Tag,omitempty"`
	MessageStream string `json:"MessageStream"`
}

// SendHelpRequest tells a family member that someone asked for support.
// Anonymous requests omit the requester's name.
func (c *Client) SendHelpRequest(ctx context.Context, to, requesterName, reason, message string, anonymous bool) error {
	who := requesterName
	if anonymous || who == "" {
		who = "A family member"
	}
	subject := fmt.Sprintf("%s could use some support", who)
	link := c.baseURL + "/help"

	text := fmt.Sprintf("%s reached out for support.\n\nReason: %s\n\n%q\n\nRespond in FamWell: %s", who, reason, message, link)
	body := fmt.Sprintf(
		`<p>%s reached out for support.</p><p><strong>Reason:</strong> %s</p><blockquote>%s</blockquote><p><a href="%s">Respond in FamWell</a></p>`,
		html.EscapeString(who), html.EscapeString(reason), html.EscapeString(message), link,
	)
	return c.send(ctx, postmarkEmail{To: to, Subject: subject, TextBody: text, HtmlBody: body, Tag: "help-request"})
}

// SendCrisisAlert notifies a family member that memberName triggered a
// crisis alert.
func (c *Client) SendCrisisAlert(ctx context.Context, to, memberName, message string, contacts []string) error {
	subject := fmt.Sprintf("Urgent: %s needs help now", memberName)
	link := c.baseURL + "/crisis"

	var text strings.Builder
	fmt.Fprintf(&text, "%s has sent a crisis alert.\n\n", memberName)
	if message != "" {
		fmt.Fprintf(&text, "%q\n\n", message)
	}
	if len(contacts) > 0 {
		text.WriteString("Emergency contacts:\n")
		for _, ct := range contacts {
			fmt.Fprintf(&text, "  - %s\n", ct)
		}
		text.WriteString("\n")
	}
	fmt.Fprintf(&text, "Open FamWell: %s", link)

	var body strings.Builder
	fmt.Fprintf(&body, `<p><strong>%s has sent a crisis alert.</strong></p>`, html.EscapeString(memberName))
	if message != "" {
		fmt.Fprintf(&body, `<blockquote>%s</blockquote>`, html.EscapeString(message))
	}
	if len(contacts) > 0 {
		body.WriteString(`<p>Emergency contacts:</p><ul>`)
		for _, ct := range contacts {
			fmt.Fprintf(&body, `<li>%s</li>`, html.EscapeString(ct))
		}
		body.WriteString(`</ul>`)
	}
	fmt.Fprintf(&body, `<p><a href="%s">Open FamWell</a></p>`, link)

	return c.send(ctx, postmarkEmail{To: to, Subject: subject, TextBody: text.String(), HtmlBody: body.String(), Tag: "crisis-alert"})
}

func (c *Client) send(ctx context.Context, msg postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	msg.From = c.fromEmail
	msg.MessageStream = "outbound"

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			ErrorCode int    `json:"ErrorCode"`
			Message   string `json:"Message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("postmark API error: status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return nil
}
