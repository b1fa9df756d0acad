// Package delivery sends notification email through an interchangeable
// backing service.
package delivery

import "context"

// EmailProvider is the adapter interface for outbound mail. Implementations
// exist for a transactional email API and for plain SMTP; the digest loop
// does not care which is wired in.
type EmailProvider interface {
	// Type returns the provider name used for config selection and logs.
	Type() string
	// Send delivers a plain-text message to a single recipient.
	Send(ctx context.Context, to, subject, body string) error
}
