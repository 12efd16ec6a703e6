package runtime

import "fmt"

// ObjType tags the heap-object variants.
type ObjType int

const (
	ObjString ObjType = iota
	ObjFunction
	ObjNative
	ObjClosure
)

// Obj is the common header every heap-allocated object carries: a variant
// tag and an intrusive next-link threading it onto the VM's object
// roster. No code walks the roster to free objects; they are reclaimed
// by Go's garbage collector once the VM is unreachable.
type Obj struct {
	Type ObjType
	next *Obj

	str *ObjString
	fn  *ObjFunction
	nat *ObjNative
	clo *ObjClosure
}

func (o *Obj) AsString() *ObjString     { return o.str }
func (o *Obj) AsFunction() *ObjFunction { return o.fn }
func (o *Obj) AsNative() *ObjNative     { return o.nat }
func (o *Obj) AsClosure() *ObjClosure   { return o.clo }

func (o *Obj) String() string {
	switch o.Type {
	case ObjString:
		return o.str.Chars
	case ObjFunction:
		if o.fn.Name == "" {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", o.fn.Name)
	case ObjNative:
		return "<native fn>"
	case ObjClosure:
		if o.clo.Function.Name == "" {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", o.clo.Function.Name)
	default:
		return "<obj>"
	}
}

// ObjString is an immutable byte sequence with a precomputed FNV-1a hash.
// All strings are interned in the VM's string table so that equal
// content shares one object (reference equality == value equality).
type ObjString struct {
	Chars string
	Hash  uint32
}

// ObjFunction is a compiled function: its arity, owned Chunk, and an
// optional name (empty for the implicit top-level script function).
type ObjFunction struct {
	Name  string
	Arity int
	Chunk *Chunk
}

// NativeFn is a host routine bound into globals. It receives a copy of the
// call's arguments (the count is len(args)); a non-nil error becomes a
// runtime error.
type NativeFn func(args []Value) (Value, error)

type ObjNative struct {
	Name string
	Fn   NativeFn
}

// ObjClosure thinly wraps a Function. No upvalue capture is implemented.
// The VM's CLOSURE handler creates one, but the compiler never emits
// CLOSURE; it is a pure identity wrapper.
type ObjClosure struct {
	Function *ObjFunction
}

// fnv1a32 computes the 32-bit FNV-1a hash used to key interned strings.
func fnv1a32(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
