// Package outbound sends RFP invitations to vendors. The subject line
// carries the reference token so that replies correlate back to the
// request through the same codec the poller decodes with.
package outbound

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/token"
)

// Config holds the static SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ConfigFromModel converts model.SMTPConfig to outbound.Config.
func ConfigFromModel(mc model.SMTPConfig) Config {
	return Config{
		Host:     mc.Host,
		Port:     mc.Port,
		Username: mc.Username,
		Password: mc.Password,
		From:     mc.From,
	}
}

// Mailer sends invitation emails. The SMTP connection is scoped to a
// single Invite call.
type Mailer struct {
	cfg Config
}

// New creates a mailer. No connection is made until Invite.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Subject returns the invitation subject line for a request.
func Subject(id model.RequestID) string {
	return "RFP Invitation - " + token.Encode(id)
}

// Body renders the invitation text for one vendor.
func Body(req *model.Request, vendor *model.Vendor) string {
	return fmt.Sprintf(
		"Dear %s,\n\nWe are looking to procure:\n\n%s\n\nPlease respond by %s.\n\n(Please keep %s in the subject line)\n\nBest regards,\nProcurement Team",
		vendor.Name, req.UserRequest, req.Terms.Deadline, token.Encode(req.ID))
}

// Invite sends one invitation per vendor in a single SMTP session.
func (m *Mailer) Invite(ctx context.Context, req *model.Request, vendors []model.Vendor) error {
	if len(vendors) == 0 {
		return fmt.Errorf("no vendors to invite")
	}

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	var messages []*gomail.Msg
	for i := range vendors {
		vendor := &vendors[i]

		msg := gomail.NewMsg()
		if err := msg.From(m.cfg.From); err != nil {
			return fmt.Errorf("from address: %w", err)
		}
		if err := msg.To(vendor.Email); err != nil {
			return fmt.Errorf("to address %s: %w", vendor.Email, err)
		}
		msg.Subject(Subject(req.ID))
		msg.SetBodyString(gomail.TypeTextPlain, Body(req, vendor))
		messages = append(messages, msg)
	}

	if err := client.DialAndSendWithContext(ctx, messages...); err != nil {
		return fmt.Errorf("send invitations: %w", err)
	}
	return nil
}
