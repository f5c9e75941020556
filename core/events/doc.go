// Package events defines the batch related events emitted on the event bus.
//
// Available event types:
//   - JobEvent: a person's job changed state
//   - ProgressEvent: periodic count of finished jobs
package events
