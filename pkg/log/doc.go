// Package log configures the zerolog-based logger shared by every amaxa
// component. Call Init once at process startup; components obtain
// child loggers via WithComponent/WithOperation/WithSObject rather than
// touching the global Logger directly, so tests can inject their own.
package log
