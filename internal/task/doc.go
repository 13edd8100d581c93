// Package task implements the orchestration core: a Manager that accepts
// submissions, a bounded FIFO queue, a fixed-size worker pool and the stage
// runner that drives each task through its pipeline exactly once.
//
// Stages of a single task run strictly in sequence on one worker slot.
// Cross-task concurrency is bounded by the pool size. All task mutation goes
// through the injected store so every transition is atomic and durable, and
// each transition is published to the configured event emitter.
package task
