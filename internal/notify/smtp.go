package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// SMTPConfig configures the email digest.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends a plain-text digest of the highlighted postings.
type Email struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

// NewEmail builds an Email channel. From defaults to User.
func NewEmail(cfg SMTPConfig) *Email {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Email{cfg: cfg, sendMail: smtp.SendMail}
}

// Name implements Channel.
func (e *Email) Name() string { return "smtp" }

// Send implements Channel. The context only short-circuits an already
// canceled send; net/smtp has no context support.
func (e *Email) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if len(e.cfg.To) == 0 {
		return fmt.Errorf("smtp recipient is required")
	}
	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	if err := e.sendMail(addr, auth, e.cfg.From, e.cfg.To, e.render(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (e *Email) render(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: Hiring scan: %d new postings\r\n", msg.Inserted)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")
	if len(msg.Highlights) > 0 {
		b.WriteString("\r\nTop matches:\r\n")
		for _, p := range msg.Highlights {
			b.WriteString(digestLine(p))
		}
	}
	return b.Bytes()
}

func digestLine(p posting.JobPosting) string {
	where := p.Company
	if p.Location != "" {
		where += " / " + p.Location
	}
	return fmt.Sprintf("- [%.1f] %s (%s) %s\r\n", p.MatchScore, p.Title, where, p.URL)
}

// SplitRecipients parses a comma-separated address list.
func SplitRecipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
