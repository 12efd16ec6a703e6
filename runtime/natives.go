package runtime

import "time"

// defineNative interns name, wraps fn in an ObjNative, and installs it in
// globals. Both the name and the native object are pushed onto the VM
// stack for the duration of the table insertion: a future tracing
// collector would otherwise see no root keeping them alive between
// allocation and the table write.
func (vm *VM) defineNative(name string, fn NativeFn) {
	nameObj := vm.internString(name)
	vm.push(ObjVal(vm.newObj(nameObj.asObjWrapper())))
	nativeObj := &ObjNative{Name: name, Fn: fn}
	vm.push(ObjVal(vm.newObj(nativeObjWrapper(nativeObj))))
	vm.globals.Set(nameObj, vm.stack[vm.stackTop-1])
	vm.pop()
	vm.pop()
}

func (o *ObjString) asObjWrapper() objWrapper { return objWrapper{typ: ObjString, str: o} }

func nativeObjWrapper(n *ObjNative) objWrapper { return objWrapper{typ: ObjNative, nat: n} }

// objWrapper is the constructor-side payload for vm.newObj: it carries
// exactly one populated variant, mirroring the Obj fields it seeds.
type objWrapper struct {
	typ ObjType
	str *ObjString
	fn  *ObjFunction
	nat *ObjNative
	clo *ObjClosure
}

func (vm *VM) registerNatives() {
	vm.defineNative("clock", func(args []Value) (Value, error) {
		return NumberVal(float64(time.Now().UnixNano()) / 1e9), nil
	})
	vm.defineNative("len", func(args []Value) (Value, error) {
		if len(args) != 1 || !args[0].IsString() {
			return NilVal(), &RuntimeError{Message: "len() expects a single string argument."}
		}
		return NumberVal(float64(len(args[0].AsString().Chars))), nil
	})
	vm.defineNative("type_of", func(args []Value) (Value, error) {
		if len(args) != 1 {
			return NilVal(), &RuntimeError{Message: "type_of() expects a single argument."}
		}
		return ObjVal(vm.newObj(objWrapper{typ: ObjString, str: vm.internString(typeName(args[0]))})), nil
	})
}

func typeName(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsFunction(), v.IsClosure(), v.IsNative():
		return "function"
	default:
		return "object"
	}
}
