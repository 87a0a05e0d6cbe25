// Package notifications delivers sync and upload event notifications through
// an ntfy topic. Without a configured topic every call is a no-op.
package notifications
