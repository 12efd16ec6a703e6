package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (*VM, *bytes.Buffer, InterpretResult, error) {
	t.Helper()
	vm := New(nil)
	var out bytes.Buffer
	vm.Out = &out
	result, err := vm.Interpret(source)
	return vm, &out, result, err
}

func TestArithmeticPrecedence(t *testing.T) {
	vm, out, result, err := run(t, `print 2 + 3 * 4;`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "14\n", out.String())
	_ = vm
}

func TestStringConcatenation(t *testing.T) {
	_, out, result, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "foobar\n", out.String())
}

func TestWhileLoop(t *testing.T) {
	vm, out, result, err := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "10\n", out.String())

	sum, ok := vm.Global("sum")
	require.True(t, ok)
	assert.Equal(t, 10.0, sum.Number)
}

func TestForLoopDesugarsToWhile(t *testing.T) {
	_, out, result, err := run(t, `
		var total = 0;
		for (var i = 0; i < 4; i = i + 1) {
			total = total + i;
		}
		print total;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "6\n", out.String())
}

func TestRecursiveFibonacci(t *testing.T) {
	_, out, result, err := run(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "55\n", out.String())
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, _, result, err := run(t, `print undefined_thing;`)
	require.Error(t, err)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestTypeMismatchIsRuntimeError(t *testing.T) {
	_, _, result, err := run(t, `print 1 + "two";`)
	require.Error(t, err)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, err.Error(), "Operands must be")
}

func TestBlockScopingShadowsOuterBinding(t *testing.T) {
	_, out, result, err := run(t, `
		var x = "outer";
		{
			var x = "inner";
			print x;
		}
		print x;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "inner\nouter\n", out.String())
}

func TestClockNativeReturnsANumber(t *testing.T) {
	vm, _, result, err := run(t, `var t = clock();`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)

	tv, ok := vm.Global("t")
	require.True(t, ok)
	assert.True(t, tv.IsNumber())
}

func TestRuntimeErrorIncludesStackTrace(t *testing.T) {
	_, _, result, err := run(t, `
		fun inner() {
			return 1 + "two";
		}
		fun outer() {
			return inner();
		}
		outer();
	`)
	require.Error(t, err)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.True(t, strings.Contains(err.Error(), "inner()"))
	assert.True(t, strings.Contains(err.Error(), "outer()"))
}

func TestStackIsEmptyAfterProgramCompletes(t *testing.T) {
	vm, _, result, err := run(t, `
		var a = 1;
		var b = 2;
		print a + b;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, 0, vm.stackTop)
}
