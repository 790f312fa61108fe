// Package renderer provides a no-op implementation of the terminal UI
// collaborator's contract, value.Renderer. The core (pkg/eval, pkg/vm)
// depends only on value.Renderer's single Op method; this package
// exists so a host or a test has a concrete, harmless value to plug
// into value.CallCtx.Renderer without pulling in a real terminal UI
// dependency (§4.7, §6.2).
package renderer

import (
	"fmt"

	"github.com/zexus-lang/zexus/pkg/core/value"
)

// Stub is a value.Renderer that performs no actual UI rendering. print
// still reaches the terminal (via Println, defaulting to fmt.Println)
// so a script that only prints behaves the same with or without a
// real UI host attached; every other op (define_screen, create_canvas,
// draw_line, and the rest of the screen/component/theme surface) is
// accepted and answers Null, so declarative UI code exercises without
// a real backend, the way tests exercise the rest of the evaluator
// without a live terminal.
type Stub struct {
	// Println receives print output; overridable so a test can capture
	// it instead of writing to stdout.
	Println func(args []value.Value)
}

// New returns a Stub that prints to stdout.
func New() *Stub {
	return &Stub{Println: func(args []value.Value) {
		strs := make([]any, len(args))
		for i, a := range args {
			strs[i] = a.String()
		}
		fmt.Println(strs...)
	}}
}

func (s *Stub) Op(tag string, args []value.Value) (value.Value, error) {
	if tag == "print" && s.Println != nil {
		s.Println(args)
	}
	return value.Null, nil
}
