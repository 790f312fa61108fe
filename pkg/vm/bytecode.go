// Package vm implements the bytecode compiler target: an opcode set,
// a linear instruction stream per function, and a stack machine that
// executes it (§3.4, §4.6, §4.7).
package vm

import "github.com/zexus-lang/zexus/pkg/core/value"

// Op is one bytecode instruction's opcode (§3.4).
type Op uint8

const (
	OpLoadConst Op = iota
	OpLoad
	OpStore
	OpAssign
	OpPop
	OpDup
	OpMakeList
	OpMakeMap
	OpIndex
	OpProp
	OpBin
	OpUn
	OpJump
	OpJumpIfFalse
	OpCallName
	OpCallFuncConst
	OpCallTop
	OpReturn
	OpStoreFunc
	OpSpawn
	OpAwait
	OpRegisterEvent
	OpEmitEvent
	OpDefineEnum
	OpAssertProtocol
	OpImport
	OpTryPush
	OpTryPop
	OpRaise
	OpRenderOp
	OpExport
)

// Instr is one instruction: an opcode plus whichever operand fields it
// needs. Unused fields are the zero value.
type Instr struct {
	Op       Op
	Int      int      // jump target, const-pool index, function-pool index, arg count
	Str      string   // identifier name / operator symbol / event or tag name
	Names    []string // parameter or field lists (STORE_FUNC, DEFINE_ENUM, REGISTER_EVENT)
	Line     int
}

// FunctionProto is one compiled function: its own instruction stream
// and constant pool, closed over whatever cells the emitter determined
// it captures (§4.5 free-variable analysis, §4.6).
type FunctionProto struct {
	Name    string
	Params  []string
	Code    []Instr
	Consts  []value.Value
	IsAsync bool
	Free    []string // free variable names to capture from the defining frame
}

// Program is the emitter's output: the top-level script's own
// instruction stream (the implicit "main" function) plus every nested
// function it declared.
type Program struct {
	Main      *FunctionProto
	Functions []*FunctionProto
}
