// Command inksync is the CLI for uploading note scans, inspecting remote
// processing jobs, and controlling the inksyncd background daemon.
package main
