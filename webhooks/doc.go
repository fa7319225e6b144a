// Package webhooks contains webhook verification and dispatch components.
//
// Every delivery is verified against the provider's signature scheme before
// anything else happens; a signature mismatch is rejected with no side
// effects. Verified deliveries are deduplicated through a delivery ledger and
// fanned out as sync triggers for the affected connections.
package webhooks
