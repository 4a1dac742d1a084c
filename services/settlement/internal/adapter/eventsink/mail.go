package eventsink

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailAlerter e-mails critical events to the operator mailbox. Other
// severities are dropped.
type MailAlerter struct {
	sender MailSender
	from   string
	to     []string
}

func NewMailAlerter(sender MailSender, from string, to []string) *MailAlerter {
	return &MailAlerter{sender: sender, from: from, to: to}
}

// NewSMTPSender returns a gomail dialer for the operator mailbox.
func NewSMTPSender(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

func (a *MailAlerter) Publish(_ context.Context, evt event.Event) error {
	if evt.Severity != event.SeverityCritical || len(a.to) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(a.from, "CoffeeTrace Settlement"))
	m.SetHeader("To", a.to...)
	m.SetHeader("Subject", fmt.Sprintf("[settlement] %s %s", evt.Type, evt.EntityID))
	m.SetBody("text/plain", alertText(evt))
	m.AddAlternative("text/html", "<pre>"+html.EscapeString(alertText(evt))+"</pre>")

	if err := a.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

func alertText(evt event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "event:    %s\n", evt.Type)
	fmt.Fprintf(&b, "entity:   %s %s\n", evt.EntityType, evt.EntityID)
	if evt.FarmerID != "" {
		fmt.Fprintf(&b, "farmer:   %s\n", evt.FarmerID)
	}
	if evt.Status != "" {
		fmt.Fprintf(&b, "status:   %s\n", evt.Status)
	}
	fmt.Fprintf(&b, "occurred: %s\n", evt.OccurredAt.Format(time.RFC3339))
	if evt.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", evt.Message)
	}
	if len(evt.Data) > 0 {
		keys := make([]string, 0, len(evt.Data))
		for k := range evt.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, evt.Data[k])
		}
	}
	return b.String()
}
