// Package queue defines the message payloads exchanged over the
// broker and the publisher/consumer pair for the email pipeline.
package queue

// EmailQueueName is the durable queue carrying outbound account
// emails (verification, password reset).
const EmailQueueName = "auth.email"

// EmailMessage is a fully rendered email waiting for delivery. The
// consumer only transports it; rendering happens on the publishing
// side so templates change without redeploying the worker.
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	QueuedAt string `json:"queued_at"`
}
