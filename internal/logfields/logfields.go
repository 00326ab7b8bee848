package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyItem       = "item"
	KeyRep        = "rep"
	KeySnapshot   = "snapshot"
	KeyFilter     = "filter"
	KeyLayout     = "layout"
	KeyPath       = "path"
	KeyBackend    = "backend"
	KeyEvent      = "event"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Item(identifier string) slog.Attr   { return slog.String(KeyItem, identifier) }
func Rep(name string) slog.Attr          { return slog.String(KeyRep, name) }
func Snapshot(name string) slog.Attr     { return slog.String(KeySnapshot, name) }
func Filter(name string) slog.Attr       { return slog.String(KeyFilter, name) }
func Layout(identifier string) slog.Attr { return slog.String(KeyLayout, identifier) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Backend(b string) slog.Attr         { return slog.String(KeyBackend, b) }
func Event(name string) slog.Attr        { return slog.String(KeyEvent, name) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
