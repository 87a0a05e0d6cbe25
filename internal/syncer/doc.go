// Package syncer drives periodic synchronization of completed remote jobs
// into the local vault. The scheduler polls on a fixed interval, backs off
// exponentially on failures, and trips a circuit breaker after repeated
// consecutive failures; each cycle fetches pending results sequentially and
// records them in the ledger.
package syncer
