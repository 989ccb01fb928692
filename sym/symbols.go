// Package sym defines the symbols used to tag Sakura log entries and CLI output.
// They are stable across logs, the status websocket and the CLI.
package sym

// Subsystem glyphs
const (
	Sakura        = "桜" // scheduler facade and job queue
	DispatchOpen  = "✿" // dispatcher attached to a worker
	DispatchClose = "❀" // dispatcher detached, held job released
	DB            = "⊔" // database and migrations
	AM            = "≡" // configuration
)

// Def describes one symbol.
type Def struct {
	Glyph       string
	Name        string
	Description string
}

// All returns every symbol with a short description, in display order.
func All() []Def {
	return []Def{
		{Glyph: Sakura, Name: "sakura", Description: "scheduler and job queue"},
		{Glyph: DispatchOpen, Name: "dispatch-open", Description: "dispatcher started"},
		{Glyph: DispatchClose, Name: "dispatch-close", Description: "dispatcher stopped"},
		{Glyph: DB, Name: "db", Description: "database"},
		{Glyph: AM, Name: "am", Description: "configuration"},
	}
}

// Lookup returns the glyph registered under name.
func Lookup(name string) (string, bool) {
	for _, d := range All() {
		if d.Name == name {
			return d.Glyph, true
		}
	}
	return "", false
}
