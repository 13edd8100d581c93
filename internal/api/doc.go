// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between polling clients and
// the task orchestration manager, translating HTTP concerns to task
// operations.
package api
