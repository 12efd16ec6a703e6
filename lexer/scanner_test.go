package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := New(src)
	var toks []Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == Error {
			break
		}
	}
	return toks
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){};,.-+*/ ! != = == < <= > >=")
	want := []TokenType{
		LeftParen, RightParen, LeftBrace, RightBrace, Semicolon, Comma, Dot,
		Minus, Plus, Star, Slash, Bang, BangEqual, Equal, EqualEqual, Less,
		LessEqual, Greater, GreaterEqual, EOF,
	}
	require.Len(t, toks, len(want))
	for i, ty := range want {
		assert.Equal(t, ty, toks[i].Type, "token %d", i)
	}
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll(t, "var fun and or nilly nil")
	require.Len(t, toks, 7)
	assert.Equal(t, Var, toks[0].Type)
	assert.Equal(t, Fun, toks[1].Type)
	assert.Equal(t, And, toks[2].Type)
	assert.Equal(t, Or, toks[3].Type)
	assert.Equal(t, Identifier, toks[4].Type)
	assert.Equal(t, "nilly", toks[4].Lexeme)
	assert.Equal(t, Nil, toks[5].Type)
}

func TestScanNumberLiterals(t *testing.T) {
	toks := scanAll(t, "123 45.67 8.")
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, Number, toks[0].Type)
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, Number, toks[1].Type)
	assert.Equal(t, "45.67", toks[1].Lexeme)
	// A trailing dot with no following digit is not part of the number.
	assert.Equal(t, "8", toks[2].Lexeme)
}

func TestScanStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Len(t, toks, 2)
	assert.Equal(t, String, toks[0].Type)
	assert.Equal(t, `"hello world"`, toks[0].Lexeme)
}

func TestScanUnterminatedStringErrors(t *testing.T) {
	toks := scanAll(t, `"unterminated`)
	require.Len(t, toks, 1)
	assert.Equal(t, Error, toks[0].Type)
}

func TestScanTracksLinesAcrossComments(t *testing.T) {
	src := "1\n// comment\n2\n/* block\nspanning */\n3"
	toks := scanAll(t, src)
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 3, toks[1].Line)
	assert.Equal(t, 6, toks[2].Line)
}

func TestScanUnexpectedCharacterErrors(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 1)
	assert.Equal(t, Error, toks[0].Type)
}
