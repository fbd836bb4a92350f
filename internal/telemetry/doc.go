// Package telemetry is the fire-and-forget event gateway for session
// operations.
//
// Every login/logout outcome produces exactly one event with a fixed
// schema. Emit never blocks and never propagates sink failures: events go
// through a bounded queue drained by one worker, overflow is dropped and
// counted, and panicking sinks are recovered.
package telemetry
