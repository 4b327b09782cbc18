package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendResetCode sends a password reset code email.
func (c *Client) SendResetCode(toEmail, code string) error {
	subject := "Your Laneway password reset code"
	textBody := fmt.Sprintf("Your password reset code is:\n\n%s\n\nThis code expires in 15 minutes. If you did not request a reset, you can ignore this email.", code)
	htmlBody := fmt.Sprintf(
		`<p>Your password reset code is:</p><p style="font-size:24px;letter-spacing:4px;"><strong>%s</strong></p><p>This code expires in 15 minutes. If you did not request a reset, you can ignore this email.</p>`,
		code,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendInvite sends a team invite email with the invite code.
func (c *Client) SendInvite(toEmail, inviterName, code string) error {
	subject := fmt.Sprintf("%s invited you to their team on Laneway", inviterName)
	link := fmt.Sprintf("%s/invite/%s", c.baseURL, code)
	textBody := fmt.Sprintf("%s invited you to join their team on Laneway.\n\nYour invite code is %s. Accept it here:\n\n%s\n\nThe invite expires in 7 days.", inviterName, code, link)
	htmlBody := fmt.Sprintf(
		`<p>%s invited you to join their team on Laneway.</p><p>Your invite code is <strong>%s</strong>.</p><p><a href="%s">Accept the invite</a></p><p>The invite expires in 7 days.</p>`,
		inviterName, code, link,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendSupport forwards a support request to the support inbox.
func (c *Client) SendSupport(supportEmail, fromUser, message string) error {
	subject := fmt.Sprintf("Support request from %s", fromUser)
	textBody := fmt.Sprintf("From: %s\n\n%s", fromUser, message)
	htmlBody := fmt.Sprintf(`<p><strong>From:</strong> %s</p><p>%s</p>`, fromUser, message)
	return c.send(supportEmail, subject, htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
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
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
