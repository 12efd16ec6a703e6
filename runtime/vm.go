package runtime

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	maxFrames        = 64
	initialStackSize = 256
)

// callFrame is one activation record: the function being executed, an
// instruction pointer into its chunk, and the base stack slot its locals
// (including the callee itself, at base) are measured from. Calling a
// Closure just unwraps to its Function here (see callValue) — there's
// no upvalue state a frame needs to track separately.
type callFrame struct {
	fn   *ObjFunction
	ip   int
	base int
}

func (f *callFrame) chunk() *Chunk { return f.fn.Chunk }

// VM is the stack machine: a growable value stack, a bounded call-frame
// array, the interned-string table, the globals table, and the head of
// the object roster (never walked to free objects; Go's garbage collector
// reclaims them).
type VM struct {
	stack    []Value
	stackTop int

	frames     [maxFrames]callFrame
	frameCount int

	globals      *Table
	strings      *Table
	internedObjs map[*ObjString]*Obj
	objects      *Obj

	lastCallErr *RuntimeError

	log *logrus.Logger
	// Trace enables per-instruction disassembly logging at Debug level.
	Trace bool
	// Out is where `print` statements write; defaults to os.Stdout.
	Out io.Writer
}

// New constructs a VM with its own globals/string tables and registers
// the native function surface. logger may be nil, in which case
// diagnostics are discarded.
func New(logger *logrus.Logger) *VM {
	if logger == nil {
		logger = newDiscardLogger()
	}
	vm := &VM{
		stack:        make([]Value, initialStackSize),
		globals:      NewTable().WithLogger(logger),
		strings:      NewTable().WithLogger(logger),
		internedObjs: make(map[*ObjString]*Obj),
		log:          logger,
		Out:          os.Stdout,
	}
	vm.registerNatives()
	return vm
}

// --- object allocation: every heap object threads onto the roster here ---

func (vm *VM) allocate(o *Obj) *Obj {
	o.next = vm.objects
	vm.objects = o
	return o
}

// internString returns the shared *ObjString for chars, allocating and
// interning it on first sight.
func (vm *VM) internString(chars string) *ObjString {
	hash := fnv1a32(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	str := &ObjString{Chars: chars, Hash: hash}
	obj := vm.allocate(&Obj{Type: ObjString, str: str})
	vm.strings.Set(str, NilVal())
	vm.internedObjs[str] = obj
	return str
}

// takeString adopts an already-built buffer (e.g. the result of string
// concatenation). Go strings are immutable, so there is no buffer to
// free on an intern hit; it is simply dropped.
func (vm *VM) takeString(chars string) *ObjString {
	return vm.internString(chars)
}

// objFor returns the roster Obj wrapping an interned ObjString.
func (vm *VM) objFor(str *ObjString) *Obj {
	if o, ok := vm.internedObjs[str]; ok {
		return o
	}
	return vm.allocate(&Obj{Type: ObjString, str: str})
}

// newStringObj interns chars and returns the Obj wrapping the shared
// ObjString.
func (vm *VM) newStringObj(chars string) *Obj {
	return vm.objFor(vm.internString(chars))
}

func (vm *VM) newFunctionObj(fn *ObjFunction) *Obj {
	return vm.allocate(&Obj{Type: ObjFunction, fn: fn})
}

func (vm *VM) newNativeObj(n *ObjNative) *Obj {
	return vm.allocate(&Obj{Type: ObjNative, nat: n})
}

func (vm *VM) newClosureObj(fn *ObjFunction) *Obj {
	return vm.allocate(&Obj{Type: ObjClosure, clo: &ObjClosure{Function: fn}})
}

// newObj allocates from a pre-built wrapper. A string wrapper reuses the
// roster Obj of its already-interned ObjString rather than allocating a
// second header for the same content.
func (vm *VM) newObj(w objWrapper) *Obj {
	switch w.typ {
	case ObjString:
		return vm.objFor(w.str)
	case ObjNative:
		return vm.newNativeObj(w.nat)
	case ObjFunction:
		return vm.newFunctionObj(w.fn)
	case ObjClosure:
		return vm.allocate(&Obj{Type: ObjClosure, clo: w.clo})
	default:
		return nil
	}
}

// --- stack ---

func (vm *VM) push(v Value) {
	if vm.stackTop >= len(vm.stack) {
		grown := make([]Value, len(vm.stack)*2)
		copy(grown, vm.stack)
		vm.stack = grown
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
}

// --- top-level entry point ---

// Interpret compiles and runs source, returning the outcome and, on
// failure, the error (a *multierror.Error for compile failures, a
// *RuntimeError for runtime faults).
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := Compile(source, vm)
	if err != nil {
		return InterpretCompileError, err
	}

	fnObj := vm.newFunctionObj(fn)
	vm.push(ObjVal(fnObj))
	vm.callValue(ObjVal(fnObj), 0)

	return vm.run()
}

// Global looks up a top-level binding by name, mainly useful for tests and
// embedders inspecting VM state after Interpret returns.
func (vm *VM) Global(name string) (Value, bool) {
	return vm.globals.Get(vm.internString(name))
}

func (vm *VM) run() (InterpretResult, error) {
	for {
		frame := &vm.frames[vm.frameCount-1]

		if vm.Trace {
			line, _ := DisassembleInstruction(frame.chunk(), frame.ip)
			vm.log.Debug(line)
		}

		op := OpCode(vm.readByte(frame))
		switch op {
		case OpConstant:
			vm.push(frame.chunk().Constants[vm.readByte(frame)])
		case OpConstantLong:
			idx := int(vm.readByte(frame)) | int(vm.readByte(frame))<<8 | int(vm.readByte(frame))<<16
			vm.push(frame.chunk().Constants[idx])
		case OpNil:
			vm.push(NilVal())
		case OpTrue:
			vm.push(BoolVal(true))
		case OpFalse:
			vm.push(BoolVal(false))
		case OpPop:
			vm.pop()
		case OpGetLocal:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.base+int(slot)])
		case OpSetLocal:
			slot := vm.readByte(frame)
			vm.stack[frame.base+int(slot)] = vm.peek(0)
		case OpGetGlobal:
			name := frame.chunk().Constants[vm.readByte(frame)].AsString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := frame.chunk().Constants[vm.readByte(frame)].AsString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OpSetGlobal:
			name := frame.chunk().Constants[vm.readByte(frame)].AsString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(ValuesEqual(a, b)))
		case OpGreater:
			res, ok := vm.numericCompare(func(a, b float64) bool { return a > b })
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)
		case OpLess:
			res, ok := vm.numericCompare(func(a, b float64) bool { return a < b })
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)
		case OpAdd:
			res, err := vm.add()
			if err != nil {
				return vm.runtimeError("%s", err.Error())
			}
			vm.push(res)
		case OpSubtract:
			res, ok := vm.numericBinary(func(a, b float64) float64 { return a - b })
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)
		case OpMultiply:
			res, ok := vm.numericBinary(func(a, b float64) float64 { return a * b })
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)
		case OpDivide:
			res, ok := vm.numericBinary(func(a, b float64) float64 { return a / b })
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)
		case OpNot:
			vm.push(BoolVal(Falsey(vm.pop())))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberVal(-vm.pop().Number))
		case OpPrint:
			fmt.Fprintln(vm.Out, vm.pop().String())
		case OpJump:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case OpJumpIfFalse:
			offset := vm.readShort(frame)
			if Falsey(vm.peek(0)) {
				frame.ip += int(offset)
			}
		case OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)
		case OpCall:
			argc := int(vm.readByte(frame))
			if !vm.callValue(vm.peek(argc), argc) {
				return InterpretRuntimeError, vm.lastCallErr
			}
		case OpClosure:
			fn := frame.chunk().Constants[vm.readByte(frame)].AsFunction()
			vm.push(ObjVal(vm.newClosureObj(fn)))
		case OpReturn:
			result := vm.pop()
			finishedBase := frame.base
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK, nil
			}
			vm.stackTop = finishedBase
			vm.push(result)
		default:
			return vm.runtimeError("Unknown opcode %d.", byte(op))
		}

		if vm.frameCount == 0 {
			return InterpretOK, nil
		}
	}
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.chunk().Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) uint16 {
	b := frame.chunk().Code[frame.ip : frame.ip+2]
	frame.ip += 2
	return binary.BigEndian.Uint16(b)
}

func (vm *VM) numericBinary(f func(a, b float64) float64) (Value, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return Value{}, false
	}
	b := vm.pop().Number
	a := vm.pop().Number
	return NumberVal(f(a, b)), true
}

func (vm *VM) numericCompare(f func(a, b float64) bool) (Value, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return Value{}, false
	}
	b := vm.pop().Number
	a := vm.pop().Number
	return BoolVal(f(a, b)), true
}

func (vm *VM) add() (Value, error) {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		return NumberVal(a.Number + b.Number), nil
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		joined := a.AsString().Chars + b.AsString().Chars
		return ObjVal(vm.newStringObj(joined)), nil
	default:
		return Value{}, fmt.Errorf("Operands must be two numbers or two strings.")
	}
}

// --- call protocol ---

// callValue dispatches on the callee's variant. Both ObjFunction and
// ObjClosure use the same frame-push logic: the compiler never emits
// OpClosure (see compiler.go's function()), so every user-defined
// function value on the stack is a bare ObjFunction, not a Closure — a
// Function and a Closure whose Function it wraps are called identically.
func (vm *VM) callValue(callee Value, argc int) bool {
	if callee.IsObj() {
		switch callee.Obj.Type {
		case ObjFunction:
			return vm.call(callee.AsFunction(), argc)
		case ObjClosure:
			return vm.call(callee.AsClosure().Function, argc)
		case ObjNative:
			native := callee.AsNative()
			argsBase := vm.stackTop - argc
			args := make([]Value, argc)
			copy(args, vm.stack[argsBase:vm.stackTop])
			res, err := native.Fn(args)
			if err != nil {
				return vm.callError("%s", err.Error())
			}
			vm.stackTop = argsBase - 1
			vm.push(res)
			return true
		}
	}
	return vm.callError("Can only call functions and classes.")
}

func (vm *VM) call(fn *ObjFunction, argc int) bool {
	if argc != fn.Arity {
		return vm.callError("Expected %d arguments but got %d.", fn.Arity, argc)
	}
	if vm.frameCount == maxFrames {
		return vm.callError("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	frame.fn = fn
	frame.ip = 0
	frame.base = vm.stackTop - argc - 1
	vm.frameCount++
	return true
}

// callError formats and logs a call-protocol fault exactly like
// runtimeError, then resets the stack/frames so the next Interpret call
// (the REPL reuses one VM across lines) doesn't resume a corrupted frame.
func (vm *VM) callError(format string, args ...interface{}) bool {
	err := vm.formatRuntimeError(format, args...)
	vm.log.WithField("trace", err.Trace).Warn(err.Message)
	vm.lastCallErr = err
	vm.resetStack()
	return false
}

// --- runtime errors ---

func (vm *VM) runtimeError(format string, args ...interface{}) (InterpretResult, error) {
	err := vm.formatRuntimeError(format, args...)
	vm.log.WithField("trace", err.Trace).Warn(err.Message)
	vm.resetStack()
	return InterpretRuntimeError, err
}

func (vm *VM) formatRuntimeError(format string, args ...interface{}) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.chunk().LineOf(f.ip - 1)
		name := "<script>"
		if f.fn.Name != "" {
			name = fmt.Sprintf("%s()", f.fn.Name)
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	return &RuntimeError{Message: msg, Trace: trace}
}
