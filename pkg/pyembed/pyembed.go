// Package pyembed executes {| python ... |} embedded blocks (§4.7,
// SUPPLEMENTED FEATURES) through gpython, the pure-Go Python
// interpreter. Zexus never shells out to a system Python
// interpreter; embedded Python runs in-process against gpython's own
// VM and module system, so it shares the host process's stdout,
// filesystem, and lifetime.
package pyembed

import (
	"github.com/go-python/gpython/py"
	_ "github.com/go-python/gpython/stdlib"

	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Run executes source as a Python module. A Python-side exception
// surfaces to the caller as an InternalError, keeping the embedded
// language's failure modes opaque to the rest of the evaluator (§4.7).
func Run(source string, pos zerr.Position) (value.Value, error) {
	ctx := py.NewContext(py.DefaultContextOpts())
	code, err := py.Compile(source, "<embedded>", py.ExecMode, 0, true)
	if err != nil {
		return nil, zerr.New(zerr.Internal, pos, "embedded python block failed: %s", err)
	}
	if _, err := py.RunCode(ctx, code, "<embedded>", nil); err != nil {
		return nil, zerr.New(zerr.Internal, pos, "embedded python block failed: %s", err)
	}
	return value.Null, nil
}
