// Package web serves the subscription form and the unsubscribe links sent in
// schedule update emails.
//
// Routes:
//
//	GET  /                     subscription form, with any pending flash message
//	POST /                     subscribe the submitted address, redirect to /
//	GET  /unsubscribe/{token}  verify the token and remove the subscriber
//	POST /unsubscribe/{token}  one-click unsubscribe (RFC 8058) for mail clients
//	GET  /healthz              liveness plus the in-process metrics
//
// Flash messages survive the POST/redirect/GET round trip in a short-lived
// cookie that is cleared when the form is rendered.
package web
