// Package notify delivers enquiry emails over SMTP.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// Notifier sends enquiry related mail
type Notifier interface {
	// SendNotification tells the site owner about a new enquiry
	SendNotification(ctx context.Context, enq *domain.Enquiry) error
	// SendResponse mails an admin response to the enquirer
	SendResponse(ctx context.Context, enq *domain.Enquiry, resp domain.EnquiryResponse) error
}

// New returns a mail notifier, or a no-op one when mail is not configured
func New(cfg config.MailConfig) Notifier {
	if !cfg.Enabled || cfg.Host == "" {
		return NopNotifier{}
	}
	return NewMailNotifier(cfg)
}

// NopNotifier drops every message
type NopNotifier struct{}

func (NopNotifier) SendNotification(context.Context, *domain.Enquiry) error { return nil }

func (NopNotifier) SendResponse(context.Context, *domain.Enquiry, domain.EnquiryResponse) error {
	return nil
}

// MailNotifier sends through a single SMTP relay
type MailNotifier struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewMailNotifier(cfg config.MailConfig) *MailNotifier {
	return &MailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *MailNotifier) SendNotification(ctx context.Context, enq *domain.Enquiry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.cfg.NotifyTo == "" {
		return nil
	}
	m := n.notificationMessage(enq)
	if err := n.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "send enquiry notification %d", enq.ID)
	}
	return nil
}

func (n *MailNotifier) SendResponse(ctx context.Context, enq *domain.Enquiry, resp domain.EnquiryResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := n.responseMessage(enq, resp)
	if err := n.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "send enquiry response %d", enq.ID)
	}
	return nil
}

func (n *MailNotifier) notificationMessage(enq *domain.Enquiry) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.NotifyTo)
	m.SetAddressHeader("Reply-To", enq.Email, enq.Name)
	m.SetHeader("Subject", "New enquiry: "+subjectOf(enq))

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", enq.Name)
	fmt.Fprintf(&b, "Email: %s\n", enq.Email)
	if enq.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", enq.Phone)
	}
	if enq.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", enq.Company)
	}
	if enq.Product != "" {
		fmt.Fprintf(&b, "Product: %s\n", enq.Product)
	}
	fmt.Fprintf(&b, "Priority: %s\n\n%s\n", enq.Priority, enq.Message)
	m.SetBody("text/plain", b.String())
	return m
}

func (n *MailNotifier) responseMessage(enq *domain.Enquiry, resp domain.EnquiryResponse) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetAddressHeader("To", enq.Email, enq.Name)
	m.SetHeader("Subject", "Re: "+subjectOf(enq))
	m.SetBody("text/plain", fmt.Sprintf("Dear %s,\n\n%s\n\n> %s\n", enq.Name, resp.Message, enq.Message))
	return m
}

func subjectOf(enq *domain.Enquiry) string {
	if enq.Subject != "" {
		return enq.Subject
	}
	return "Website enquiry from " + enq.Name
}
