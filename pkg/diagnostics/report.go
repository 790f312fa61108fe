package diagnostics

import (
	"github.com/pterm/pterm"

	"github.com/zexus-lang/zexus/pkg/config"
)

// Report renders the bag as a colorized table when debug logging is on,
// mirroring the pretty compiler-diagnostic printing gorgo's REPL does with
// pterm. It never affects evaluation semantics — call it purely for its
// side effect of writing to stdout.
func Report(cfg *config.Config, b *Bag) {
	if cfg == nil || !cfg.EnableDebugLogs || b.Empty() {
		return
	}
	rows := pterm.TableData{{"kind", "position", "message", "recovery"}}
	for _, d := range b.Items() {
		rows = append(rows, []string{string(d.Kind), d.Pos.String(), d.Message, d.Recovery})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// Trace prints a single debug line, the same role debug_log/debug_trace
// play in the built-in registry, gated behind EnableDebugLogs.
func Trace(cfg *config.Config, msg string) {
	if cfg == nil || !cfg.EnableDebugLogs {
		return
	}
	pterm.Debug.Println(msg)
}
