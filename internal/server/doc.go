// Package server hosts the Fiber HTTP surface: the resolve endpoint, the
// request middleware chain, and the diagnostics route group under /-/.
// It accepts the resolver and registry as explicit dependencies so tests can
// inject fakes; keep exports narrow.
package server
