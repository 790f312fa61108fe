// Package diagnostics carries recoverable parse/semantic findings that a
// stage collects instead of failing outright. The tolerant parser never
// aborts before EOF; instead it appends to a Bag and keeps going.
package diagnostics

import (
	"fmt"

	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Diagnostic is one recoverable finding.
type Diagnostic struct {
	Kind     zerr.Kind
	Message  string
	Pos      zerr.Position
	Recovery string // recovery action taken, e.g. "sync-to-statement-boundary", "brace_mismatch"
}

func (d Diagnostic) String() string {
	if d.Recovery != "" {
		return fmt.Sprintf("%s at %s: %s (recovery: %s)", d.Kind, d.Pos, d.Message, d.Recovery)
	}
	return fmt.Sprintf("%s at %s: %s", d.Kind, d.Pos, d.Message)
}

// Bag accumulates diagnostics across a single parse or analysis pass.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Addf(kind zerr.Kind, pos zerr.Position, recovery, format string, args ...any) {
	b.Add(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, Recovery: recovery})
}

func (b *Bag) Empty() bool { return len(b.items) == 0 }

func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) Len() int { return len(b.items) }
