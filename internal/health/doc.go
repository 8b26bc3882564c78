// Package health provides composable probes and the HTTP handlers behind
// /-/healthy and /-/ready on both listeners.
//
// Probes combine with [All] (AND) and [Any] (OR). [CheckFunc] adapts a
// plain function and [Named] plus [WithTimeout] wrap dependency checks
// such as a Redis ping so a hung backend cannot stall the probe.
//
// [ShutdownGate] fails readiness as soon as drain starts so load balancers
// stop routing new requests before in-flight ones are finished.
package health
