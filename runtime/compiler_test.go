package runtime

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileValidProgramProducesNoError(t *testing.T) {
	vm := New(nil)
	fn, err := Compile(`print 1 + 1;`, vm)
	require.NoError(t, err)
	require.NotNil(t, fn)
	assert.Equal(t, "", fn.Name)
}

func TestCompileAggregatesMultipleDistinctErrors(t *testing.T) {
	vm := New(nil)
	_, err := Compile(`
		print 1 +;
		var = 2;
		print "unterminated;
	`, vm)
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(merr.Errors), 2)
}

func TestCompileRejectsRedeclarationInSameScope(t *testing.T) {
	vm := New(nil)
	_, err := Compile(`
		{
			var a = 1;
			var a = 2;
		}
	`, vm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Already a variable")
}

func TestCompileRejectsReadOfVariableInOwnInitializer(t *testing.T) {
	vm := New(nil)
	_, err := Compile(`
		{
			var a = a;
		}
	`, vm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own initializer")
}

func TestCompileRejectsTopLevelReturn(t *testing.T) {
	vm := New(nil)
	_, err := Compile(`return 1;`, vm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return from top-level code")
}

func TestCompileEmitsJumpThatPatchesToCorrectTarget(t *testing.T) {
	vm := New(nil)
	fn, err := Compile(`if (true) { print 1; } print 2;`, vm)
	require.NoError(t, err)

	chunk := fn.Chunk
	foundJump := false
	for offset := 0; offset < len(chunk.Code); {
		op := OpCode(chunk.Code[offset])
		_, next := DisassembleInstruction(chunk, offset)
		if op == OpJumpIfFalse {
			foundJump = true
			jumpLen := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
			target := offset + 3 + jumpLen
			assert.LessOrEqual(t, target, len(chunk.Code))
		}
		offset = next
	}
	assert.True(t, foundJump, "expected a JUMP_IF_FALSE in the compiled if-statement")
}

func TestCompileInternsDuplicateStringLiterals(t *testing.T) {
	vm := New(nil)
	fn, err := Compile(`print "shared"; print "shared";`, vm)
	require.NoError(t, err)

	var strs []*ObjString
	for _, c := range fn.Chunk.Constants {
		if c.IsString() {
			strs = append(strs, c.AsString())
		}
	}
	require.Len(t, strs, 2)
	assert.Same(t, strs[0], strs[1])
}
