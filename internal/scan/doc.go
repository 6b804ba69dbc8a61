// Package scan produces scan events for audit tasks.
//
// Two producers feed the task state machine through Recorder:
//
//   - BulkRunner drives a Provider through one bulk pass and records the
//     resulting summary and missing assets on the task.
//   - LiveSession holds a Camera, debounces its QR decodes and records one
//     classified scan per accepted decode.
//
// Both producers own their timers and devices and release them on every
// exit path, including cancellation.
package scan
