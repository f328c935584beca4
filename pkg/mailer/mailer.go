package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/noah-isme/student-portal-api/pkg/config"
)

// Message describes a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Client delivers mail through a plain SMTP relay.
type Client struct {
	cfg config.SMTPConfig
}

// NewClient constructs a mail client from SMTP configuration.
func NewClient(cfg config.SMTPConfig) *Client {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Client{cfg: cfg}
}

// Configured reports whether the relay settings are complete enough to send.
func (c *Client) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != "" && c.cfg.SenderEmail != ""
}

// Send delivers the message, blocking until the relay accepts or rejects it.
func (c *Client) Send(msg Message) error {
	if !c.Configured() {
		return fmt.Errorf("smtp relay not configured")
	}
	if msg.To == "" {
		return fmt.Errorf("missing recipient")
	}

	payload := Render(c.cfg.SenderEmail, msg)
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)

	if c.cfg.UseTLS {
		return c.sendWithStartTLS(addr, auth, msg.To, payload)
	}
	return smtp.SendMail(addr, auth, c.cfg.SenderEmail, []string{msg.To}, payload)
}

// Render assembles the RFC 5322 payload for a message.
func Render(from string, msg Message) []byte {
	headers := map[string]string{
		"From":         from,
		"To":           msg.To,
		"Subject":      msg.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return []byte(b.String())
}

func (c *Client) sendWithStartTLS(addr string, auth smtp.Auth, to string, payload []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp relay: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: c.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(c.cfg.SenderEmail); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data stream: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close data stream: %w", err)
	}

	return client.Quit()
}
