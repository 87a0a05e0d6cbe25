// Package daemon wires the sync scheduler, ledger store, and notification
// service into a single-instance background process controlled over IPC.
package daemon
