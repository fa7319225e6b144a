// Package providers contains the shared OAuth2 plumbing, HTTP fetch helpers,
// and webhook signature verifiers used by the built-in provider adapters
// under providers/quickbooks and providers/xero.
package providers
