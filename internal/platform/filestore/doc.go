// Package filestore implements the task record store on top of a single
// JSON ledger file. Every mutation is flushed to disk with an atomic
// temp-file rename, so a crash mid-pipeline leaves the last committed state
// visible to clients after restart instead of an indefinitely queued ghost.
package filestore
