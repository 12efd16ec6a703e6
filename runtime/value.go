package runtime

import "fmt"

// ValueType tags the four variants a Value can hold.
type ValueType int

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is the tagged union every VM stack slot and constant-pool entry
// holds. It is small and copied by value; only the ValObj variant carries
// a pointer into the object roster.
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Obj    *Obj
}

func NilVal() Value             { return Value{Type: ValNil} }
func BoolVal(b bool) Value      { return Value{Type: ValBool, Bool: b} }
func NumberVal(n float64) Value { return Value{Type: ValNumber, Number: n} }
func ObjVal(o *Obj) Value       { return Value{Type: ValObj, Obj: o} }

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool   { return v.IsObj() && v.Obj.Type == ObjString }
func (v Value) IsFunction() bool { return v.IsObj() && v.Obj.Type == ObjFunction }
func (v Value) IsClosure() bool  { return v.IsObj() && v.Obj.Type == ObjClosure }
func (v Value) IsNative() bool   { return v.IsObj() && v.Obj.Type == ObjNative }

func (v Value) AsString() *ObjString     { return v.Obj.AsString() }
func (v Value) AsFunction() *ObjFunction { return v.Obj.AsFunction() }
func (v Value) AsClosure() *ObjClosure   { return v.Obj.AsClosure() }
func (v Value) AsNative() *ObjNative     { return v.Obj.AsNative() }

// Falsey implements the language's boolean coercion: nil and false are
// falsey, everything else (including 0 and "") is truthy.
func Falsey(v Value) bool {
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return !v.Bool
	default:
		return false
	}
}

// ValuesEqual implements variant-then-payload equality. Object equality is
// reference equality except for strings, where interning makes reference
// equality and content equality coincide.
func ValuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValNil:
		return true
	case ValBool:
		return a.Bool == b.Bool
	case ValNumber:
		return a.Number == b.Number
	case ValObj:
		return a.Obj == b.Obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.Number)
	case ValObj:
		return v.Obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
