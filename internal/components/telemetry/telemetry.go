package telemetry

import (
	"fmt"
)

// API is what every component reports through, tests swap in a Recorder.
//
// Ids name the component that reported, not the line: `<struct>.<method>`
// in lowercase, dashes between words (ex. `crawler.pages-visited`). The
// package prefix comes from ScopedAPI.
//
// note: fault injection point
type API interface {
	// ReportBroken is for failures someone has to fix.
	ReportBroken(id string, params ...any)
	// ReportWarning is for failures the component recovered from.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped unless verbose logging is on.
	ReportDebug(msg string, params ...any)
	// ReportCount records a gauge reading, readings are not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>: ".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
