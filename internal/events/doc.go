// Package events provides types and interfaces for publishing task lifecycle
// notifications.
//
// The task manager emits a TaskStateEvent on every state transition. Emitters
// decide where those events go: the in-memory emitter fans them out to
// registered handlers inside the process, and the NATS emitter publishes them
// on a subject so external consumers can follow task progress without polling
// the HTTP API.
//
// The primary components are:
// - TaskStateEvent: Represents a task state transition
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
