// Package core contains the canonical ledgersync domain: connection and
// sync-job entities, provider contracts, and the OAuth connection manager.
// Lower-level adapters must depend on this package; core must not depend on
// provider-specific or transport-specific adapters.
package core
