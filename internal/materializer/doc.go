// Package materializer renders fetched note results into markdown files
// inside the vault, bucketing them by the configured organization mode and
// resolving filename collisions with bounded numeric suffixes.
package materializer
