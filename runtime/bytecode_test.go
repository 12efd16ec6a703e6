package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWriteRecordsLines(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpPop), 1)
	c.Write(byte(OpNil), 2)

	assert.Equal(t, 1, c.LineOf(0))
	assert.Equal(t, 1, c.LineOf(1))
	assert.Equal(t, 2, c.LineOf(2))
}

func TestChunkLineOfIsMonotonicBetweenRuns(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 5; i++ {
		c.Write(byte(OpPop), 10)
	}
	for i := 0; i < 5; i++ {
		c.Write(byte(OpPop), 20)
	}
	for off := 0; off < 5; off++ {
		assert.Equal(t, 10, c.LineOf(off))
	}
	for off := 5; off < 10; off++ {
		assert.Equal(t, 20, c.LineOf(off))
	}
}

func TestWriteConstantUsesShortFormUnder256(t *testing.T) {
	c := NewChunk()
	c.WriteConstant(NumberVal(42), 1)

	require.Len(t, c.Code, 2)
	assert.Equal(t, byte(OpConstant), c.Code[0])
	assert.Equal(t, byte(0), c.Code[1])
	assert.Equal(t, 42.0, c.Constants[0].Number)
}

func TestWriteConstantUsesLongFormOver255(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 300; i++ {
		c.AddConstant(NumberVal(float64(i)))
	}
	c.WriteConstant(NumberVal(999), 1)

	require.Len(t, c.Code, 4)
	assert.Equal(t, byte(OpConstantLong), c.Code[0])
	idx := int(c.Code[1]) | int(c.Code[2])<<8 | int(c.Code[3])<<16
	assert.Equal(t, 300, idx)
	assert.Equal(t, 999.0, c.Constants[idx].Number)
}

func TestDisassembleInstructionAdvancesByOperandWidth(t *testing.T) {
	c := NewChunk()
	c.WriteConstant(NumberVal(1), 1)
	c.Write(byte(OpReturn), 1)

	_, next := DisassembleInstruction(c, 0)
	assert.Equal(t, 2, next)
	line, next2 := DisassembleInstruction(c, next)
	assert.Equal(t, 3, next2)
	assert.Contains(t, line, "RETURN")
}
