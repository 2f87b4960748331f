// Package whois resolves domain registration ages for the link agent.
package whois

import (
	"context"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"go.uber.org/zap"
)

// Client wraps the WHOIS protocol client behind the registration-age port.
// Every failure mode collapses to "age unknown"; a slow or broken registry
// must never become a risk signal.
type Client struct {
	client *whois.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a WHOIS client with the given per-lookup timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	c := whois.NewClient()
	c.SetTimeout(timeout)
	return &Client{client: c, logger: logger, now: time.Now}
}

// RegistrationAge implements core.WhoisClient. The context deadline caps
// the lookup when it is tighter than the configured timeout.
func (c *Client) RegistrationAge(ctx context.Context, domain string) (time.Duration, bool) {
	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := c.client.Whois(domain)
		ch <- reply{raw: raw, err: err}
	}()

	var raw string
	select {
	case <-ctx.Done():
		c.logger.Debug("WHOIS lookup cancelled", zap.String("domain", domain), zap.Error(ctx.Err()))
		return 0, false
	case r := <-ch:
		if r.err != nil {
			c.logger.Debug("WHOIS lookup failed", zap.String("domain", domain), zap.Error(r.err))
			return 0, false
		}
		raw = r.raw
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		c.logger.Debug("WHOIS response unparsable", zap.String("domain", domain), zap.Error(err))
		return 0, false
	}
	if parsed.Domain == nil || parsed.Domain.CreatedDateInTime == nil {
		return 0, false
	}
	age := c.now().Sub(*parsed.Domain.CreatedDateInTime)
	if age < 0 {
		return 0, false
	}
	return age, true
}
