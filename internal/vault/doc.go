// Package vault abstracts the local write target for materialized notes so
// the sync core stays independent of the host filesystem layout.
package vault
