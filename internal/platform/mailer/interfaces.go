package mailer

// Service sends a single email and returns the provider message id when one
// is available.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}
