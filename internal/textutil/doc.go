// Package textutil provides small text helpers shared across components,
// primarily filename sanitization for materialized artifacts.
package textutil
