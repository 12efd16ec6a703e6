package runtime

import (
	"fmt"
	"strconv"

	"dyms/lexer"

	multierror "github.com/hashicorp/go-multierror"
)

// Precedence is the climbing ladder the Pratt parser dispatches on,
// lowest to highest.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.LeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		lexer.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		lexer.Plus:         {infix: (*Compiler).binary, precedence: PrecTerm},
		lexer.Slash:        {infix: (*Compiler).binary, precedence: PrecFactor},
		lexer.Star:         {infix: (*Compiler).binary, precedence: PrecFactor},
		lexer.Bang:         {prefix: (*Compiler).unary},
		lexer.BangEqual:    {infix: (*Compiler).binary, precedence: PrecEquality},
		lexer.EqualEqual:   {infix: (*Compiler).binary, precedence: PrecEquality},
		lexer.Greater:      {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.GreaterEqual: {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.Less:         {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.LessEqual:    {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.Identifier:   {prefix: (*Compiler).variable},
		lexer.String:       {prefix: (*Compiler).string},
		lexer.Number:       {prefix: (*Compiler).number},
		lexer.And:          {infix: (*Compiler).and_, precedence: PrecAnd},
		lexer.Or:           {infix: (*Compiler).or_, precedence: PrecOr},
		lexer.False:        {prefix: (*Compiler).literal},
		lexer.Nil:          {prefix: (*Compiler).literal},
		lexer.True:         {prefix: (*Compiler).literal},
	}
}

func (c *Compiler) ruleFor(t lexer.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}

// functionType distinguishes the implicit top-level script function from
// user-declared functions (only the former rejects a `return` statement).
type functionType int

const (
	typeScript functionType = iota
	typeFunction
)

// local is one entry in a compiler frame's bounded locals array. depth
// -1 means "declared but not yet initialized" (its own initializer is
// still being compiled).
type local struct {
	name  string
	depth int
}

const maxLocals = 256

// compilerFrame is one per-function entry in the lexical compiler stack,
// linked to its enclosing frame so that finishing a nested function body
// returns compilation to the outer function. Names resolve only against
// the current frame's locals, then as globals: outer functions' locals
// are not visible (this language has no upvalues).
type compilerFrame struct {
	enclosing *compilerFrame
	function  *ObjFunction
	fnType    functionType

	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// Compiler is the single-pass Pratt parser: each parse action emits
// bytecode directly into the current frame's chunk as it recognizes
// syntax, with no intervening AST.
type Compiler struct {
	vm      *VM
	scanner *lexer.Scanner

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errs      *multierror.Error

	frame *compilerFrame
}

// Compile runs the whole single-pass pipeline over source and returns the
// top-level script function, or a *multierror.Error enumerating every
// diagnostic collected across the run if hadError is set.
func Compile(source string, vm *VM) (*ObjFunction, error) {
	c := &Compiler{vm: vm, scanner: lexer.New(source)}
	c.pushFrame(typeScript, "")

	c.advance()
	for !c.match(lexer.EOF) {
		c.declaration()
	}

	fn := c.endCompiler()
	if c.hadError {
		return nil, c.errs
	}
	return fn, nil
}

func (c *Compiler) pushFrame(t functionType, name string) {
	frame := &compilerFrame{
		enclosing: c.frame,
		fnType:    t,
		function:  &ObjFunction{Name: name, Chunk: NewChunk()},
	}
	// Slot 0 is reserved: the callee itself occupies the base slot so
	// that arguments start at slot 1.
	frame.locals[0] = local{name: "", depth: 0}
	frame.localCount = 1
	c.frame = frame
}

func (c *Compiler) chunk() *Chunk { return c.frame.function.Chunk }

// --- token plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Type != lexer.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Type == lexer.EOF {
		where = "at end"
	} else if tok.Type == lexer.Error {
		where = ""
	}
	c.errs = multierror.Append(c.errs, &CompileError{Line: tok.Line, Where: where, Message: msg})
}

// synchronize skips tokens until a statement boundary so one compile run
// can surface more than the first error.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != lexer.EOF {
		if c.previous.Type == lexer.Semicolon {
			return
		}
		switch c.current.Type {
		case lexer.Class, lexer.Fun, lexer.Var, lexer.For, lexer.If, lexer.While, lexer.Print, lexer.Return:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) emitByte(b byte)  { c.chunk().Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op OpCode) { c.emitByte(byte(op)) }
func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) emitConstant(v Value) {
	c.chunk().WriteConstant(v, c.previous.Line)
}

// emitJump emits op followed by a 2-byte placeholder, returning the
// placeholder's offset for patchJump.
func (c *Compiler) emitJump(op OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
		return
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *Compiler) endCompiler() *ObjFunction {
	c.emitOp(OpNil)
	c.emitOp(OpReturn)
	fn := c.frame.function
	c.frame = c.frame.enclosing
	return fn
}

// --- scopes ---

func (c *Compiler) beginScope() { c.frame.scopeDepth++ }

func (c *Compiler) endScope() {
	c.frame.scopeDepth--
	for c.frame.localCount > 0 && c.frame.locals[c.frame.localCount-1].depth > c.frame.scopeDepth {
		c.emitOp(OpPop)
		c.frame.localCount--
	}
}

// --- Pratt core ---

func (c *Compiler) parsePrecedence(min Precedence) {
	c.advance()
	prefix := c.ruleFor(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := min <= PrecAssignment
	prefix(c, canAssign)

	for min <= c.ruleFor(c.current.Type).precedence {
		c.advance()
		infix := c.ruleFor(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

// --- declarations & statements ---

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.Var):
		c.varDeclaration()
	case c.match(lexer.Fun):
		c.funDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.Print):
		c.printStatement()
	case c.match(lexer.If):
		c.ifStatement()
	case c.match(lexer.While):
		c.whileStatement()
	case c.match(lexer.For):
		c.forStatement()
	case c.match(lexer.Return):
		c.returnStatement()
	case c.match(lexer.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.RightBrace) && !c.check(lexer.EOF) {
		c.declaration()
	}
	c.consume(lexer.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.Semicolon, "Expect ';' after value.")
	c.emitOp(OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.Semicolon, "Expect ';' after expression.")
	c.emitOp(OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emitOp(OpPop)

	if c.match(lexer.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(lexer.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OpPop)
}

// forStatement desugars `for (init; cond; step) body` into
// `{ init; while (cond) { body; step; } }` (spec.md's permitted
// alternative to a dedicated opcode). It emits the same JUMP_IF_FALSE /
// LOOP pattern as whileStatement rather than calling it; the step clause
// is compiled ahead of the body and jumped over on entry.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.Semicolon):
		// no initializer
	case c.match(lexer.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.check(lexer.Semicolon) {
		c.expression()
		c.consume(lexer.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.emitOp(OpPop)
	} else {
		c.advance() // consume ';'
	}

	if !c.check(lexer.RightParen) {
		bodyJump := c.emitJump(OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(OpPop)
		c.consume(lexer.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.advance() // consume ')'
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.frame.fnType == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(lexer.Semicolon) {
		c.emitOp(OpNil)
		c.emitOp(OpReturn)
		return
	}
	c.expression()
	c.consume(lexer.Semicolon, "Expect ';' after return value.")
	c.emitOp(OpReturn)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(lexer.Equal) {
		c.expression()
	} else {
		c.emitOp(OpNil)
	}
	c.consume(lexer.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

func (c *Compiler) function(t functionType) {
	name := c.previous.Lexeme
	c.pushFrame(t, name)
	c.beginScope()

	c.consume(lexer.LeftParen, "Expect '(' after function name.")
	if !c.check(lexer.RightParen) {
		for {
			c.frame.function.Arity++
			if c.frame.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(lexer.Comma) {
				break
			}
		}
	}
	c.consume(lexer.RightParen, "Expect ')' after parameters.")
	c.consume(lexer.LeftBrace, "Expect '{' before function body.")
	c.block()

	fn := c.endCompiler()
	c.emitConstant(ObjVal(c.vm.newFunctionObj(fn)))
}

// --- variable resolution ---

func (c *Compiler) parseVariable(msg string) int {
	c.consume(lexer.Identifier, msg)
	c.declareVariable()
	if c.frame.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) identifierConstant(name string) int {
	return c.chunk().AddConstant(ObjVal(c.vm.newStringObj(name)))
}

func (c *Compiler) declareVariable() {
	if c.frame.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := c.frame.localCount - 1; i >= 0; i-- {
		l := c.frame.locals[i]
		if l.depth != -1 && l.depth < c.frame.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if c.frame.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.frame.locals[c.frame.localCount] = local{name: name, depth: -1}
	c.frame.localCount++
}

func (c *Compiler) markInitialized() {
	if c.frame.scopeDepth == 0 {
		return
	}
	c.frame.locals[c.frame.localCount-1].depth = c.frame.scopeDepth
}

func (c *Compiler) defineVariable(global int) {
	if c.frame.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OpDefineGlobal), byte(global))
}

func (c *Compiler) resolveLocal(name string) int {
	for i := c.frame.localCount - 1; i >= 0; i-- {
		l := c.frame.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// --- parse actions (prefix/infix) ---

func (c *Compiler) number(canAssign bool) {
	v, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(NumberVal(v))
}

func (c *Compiler) string(canAssign bool) {
	// Strip the surrounding quotes; the scanner hands us the raw lexeme
	// including them.
	raw := c.previous.Lexeme
	content := raw[1 : len(raw)-1]
	c.emitConstant(ObjVal(c.vm.newStringObj(content)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case lexer.False:
		c.emitOp(OpFalse)
	case lexer.True:
		c.emitOp(OpTrue)
	case lexer.Nil:
		c.emitOp(OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(lexer.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case lexer.Minus:
		c.emitOp(OpNegate)
	case lexer.Bang:
		c.emitOp(OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	rule := c.ruleFor(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case lexer.BangEqual:
		c.emitOp(OpEqual)
		c.emitOp(OpNot)
	case lexer.EqualEqual:
		c.emitOp(OpEqual)
	case lexer.Greater:
		c.emitOp(OpGreater)
	case lexer.GreaterEqual:
		c.emitOp(OpLess)
		c.emitOp(OpNot)
	case lexer.Less:
		c.emitOp(OpLess)
	case lexer.LessEqual:
		c.emitOp(OpGreater)
		c.emitOp(OpNot)
	case lexer.Plus:
		c.emitOp(OpAdd)
	case lexer.Minus:
		c.emitOp(OpSubtract)
	case lexer.Star:
		c.emitOp(OpMultiply)
	case lexer.Slash:
		c.emitOp(OpDivide)
	}
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	c.emitOp(OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	name := c.previous.Lexeme

	var getOp, setOp OpCode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.match(lexer.Equal) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

func (c *Compiler) call(canAssign bool) {
	argc := c.argumentList()
	c.emitBytes(byte(OpCall), byte(argc))
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(lexer.RightParen) {
		for {
			c.expression()
			if argc == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(lexer.Comma) {
				break
			}
		}
	}
	c.consume(lexer.RightParen, "Expect ')' after arguments.")
	return argc
}
