// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/iter"
	"gopkg.microglot.org/litdata/internal/optional"
)

const (
	lexerLiteralLookahead = 2
	byteOrderMark         = 0xFEFF
)

var _ idl.Lexer = (*LexerLiteral)(nil)

// LexerLiteral tokenizes value literals. Lexical errors are sent to the
// reporter and end the token stream.
type LexerLiteral struct {
	reporter exc.Reporter
}

func NewLexerLiteral(reporter exc.Reporter) *LexerLiteral {
	return &LexerLiteral{reporter: reporter}
}

func (self *LexerLiteral) Lex(ctx context.Context, f idl.File) (idl.LexerFile, error) {
	return &lexerFileLiteral{
		File:     f,
		reporter: self.reporter,
	}, nil
}

// LexString tokenizes in-memory text without going through a file body.
func (self *LexerLiteral) LexString(uri string, text string) idl.Iterator[*idl.Token] {
	return newLexerLiteralTokens(uri, iter.NewUnicodeString(text), self.reporter)
}

type lexerFileLiteral struct {
	idl.File
	reporter exc.Reporter
}

func (self *lexerFileLiteral) Tokens(ctx context.Context) (idl.Iterator[*idl.Token], error) {
	b, err := self.File.Body(ctx)
	if err != nil {
		return nil, err
	}
	return newLexerLiteralTokens(self.File.Path(ctx), iter.NewUnicodeFileBodyCtx(ctx, b), self.reporter), nil
}

func newLexerLiteralTokens(uri string, points idl.Iterator[idl.CodePoint], reporter exc.Reporter) *lexerLiteralTokens {
	return &lexerLiteralTokens{
		uri:      uri,
		body:     iter.NewLookahead(points, lexerLiteralLookahead),
		reporter: reporter,
		line:     1,
		col:      1,
	}
}

// lexerLiteralTokens tracks the location of the next unread code point.
type lexerLiteralTokens struct {
	uri      string
	body     idl.Lookahead[idl.CodePoint]
	reporter exc.Reporter
	line     int32
	col      int32
	offset   int64
	done     bool
}

func (self *lexerLiteralTokens) Next(ctx context.Context) optional.Optional[*idl.Token] {
	if self.done {
		return optional.None[*idl.Token]()
	}
	for {
		start := self.location()
		point := self.next(ctx)
		if !point.IsPresent() {
			self.done = true
			return self.token(start, idl.TokenTypeEOF, "")
		}
		r := rune(point.Value())
		switch r {
		case byteOrderMark:
			if start.Offset == 0 {
				continue
			}
			return self.token(start, idl.TokenTypeUnknown, string(r))
		case ' ', '\t':
			continue
		case '\n':
			return self.newLineToken(start, "\n")
		case '\r':
			if self.peekIs(ctx, 1, '\n') {
				_ = self.next(ctx)
				return self.newLineToken(start, "\r\n")
			}
			return self.newLineToken(start, "\r")
		case '-':
			return self.token(start, idl.TokenTypeMinus, "-")
		case ',':
			return self.token(start, idl.TokenTypeComma, ",")
		case '{':
			return self.token(start, idl.TokenTypeCurlyOpen, "{")
		case '}':
			return self.token(start, idl.TokenTypeCurlyClose, "}")
		case '[':
			return self.token(start, idl.TokenTypeSquareOpen, "[")
		case ']':
			return self.token(start, idl.TokenTypeSquareClose, "]")
		case '"':
			return self.readText(ctx, start)
		case '\'':
			return self.readChar(ctx, start)
		case '/':
			switch {
			case self.peekIs(ctx, 1, '/'):
				_ = self.next(ctx)
				return self.readCommentLine(ctx, start)
			case self.peekIs(ctx, 1, '*'):
				_ = self.next(ctx)
				return self.readCommentBlock(ctx, start)
			default:
				return self.token(start, idl.TokenTypeUnknown, "/")
			}
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return self.readNumber(ctx, start, r)
		default:
			if r == '_' || unicode.IsLetter(r) {
				return self.readIdentifier(ctx, start, r)
			}
			return self.token(start, idl.TokenTypeUnknown, string(r))
		}
	}
}

func (self *lexerLiteralTokens) readIdentifier(ctx context.Context, start idl.Location, first rune) optional.Optional[*idl.Token] {
	var builder strings.Builder
	_, _ = builder.WriteRune(first)
	for {
		n := self.body.Lookahead(ctx, 1)
		if n.IsPresent() && (unicode.IsLetter(rune(n.Value())) || unicode.IsDigit(rune(n.Value())) || n.Value() == '_') {
			_ = self.next(ctx)
			_, _ = builder.WriteRune(rune(n.Value()))
			continue
		}
		break
	}
	if builder.String() == "nil" {
		return self.token(start, idl.TokenTypeKeywordNil, "nil")
	}
	return self.token(start, idl.TokenTypeIdentifier, builder.String())
}

// readNumber handles decimal and hex integers and decimal floats with an
// optional exponent. The sign is a separate token.
func (self *lexerLiteralTokens) readNumber(ctx context.Context, start idl.Location, first rune) optional.Optional[*idl.Token] {
	var builder strings.Builder
	_, _ = builder.WriteRune(first)
	if first == '0' && (self.peekIs(ctx, 1, 'x') || self.peekIs(ctx, 1, 'X')) {
		_, _ = builder.WriteRune(rune(self.next(ctx).Value()))
		if self.readDigits(ctx, &builder, isHexDigit) == 0 {
			return self.fail(start, exc.CodeInvalidToken, "hex literal requires at least one digit")
		}
		return self.finishNumber(ctx, start, idl.TokenTypeInteger, builder.String())
	}
	self.readDigits(ctx, &builder, isDecimalDigit)
	kind := idl.TokenTypeInteger
	if self.peekIs(ctx, 1, '.') {
		if n := self.body.Lookahead(ctx, 2); n.IsPresent() && isDecimalDigit(rune(n.Value())) {
			_, _ = builder.WriteRune(rune(self.next(ctx).Value()))
			self.readDigits(ctx, &builder, isDecimalDigit)
			kind = idl.TokenTypeFloat
		}
	}
	if self.peekIs(ctx, 1, 'e') || self.peekIs(ctx, 1, 'E') {
		_, _ = builder.WriteRune(rune(self.next(ctx).Value()))
		if self.peekIs(ctx, 1, '+') || self.peekIs(ctx, 1, '-') {
			_, _ = builder.WriteRune(rune(self.next(ctx).Value()))
		}
		if self.readDigits(ctx, &builder, isDecimalDigit) == 0 {
			return self.fail(start, exc.CodeInvalidToken, "float exponent requires at least one digit")
		}
		kind = idl.TokenTypeFloat
	}
	return self.finishNumber(ctx, start, kind, builder.String())
}

func (self *lexerLiteralTokens) finishNumber(ctx context.Context, start idl.Location, kind idl.TokenType, value string) optional.Optional[*idl.Token] {
	if n := self.body.Lookahead(ctx, 1); n.IsPresent() && (n.Value() == '_' || unicode.IsLetter(rune(n.Value()))) {
		return self.fail(start, exc.CodeInvalidToken, "malformed number literal "+value+string(rune(n.Value())))
	}
	return self.token(start, kind, value)
}

func (self *lexerLiteralTokens) readDigits(ctx context.Context, builder *strings.Builder, keep func(rune) bool) int {
	count := 0
	for {
		n := self.body.Lookahead(ctx, 1)
		if !n.IsPresent() || !keep(rune(n.Value())) {
			return count
		}
		_ = self.next(ctx)
		_, _ = builder.WriteRune(rune(n.Value()))
		count = count + 1
	}
}

// readQuoted collects a quoted literal, escapes included, up to the closing
// quote. The result still carries both quotes.
func (self *lexerLiteralTokens) readQuoted(ctx context.Context, start idl.Location, quote rune) (string, bool) {
	var builder strings.Builder
	_, _ = builder.WriteRune(quote)
	for {
		n := self.body.Lookahead(ctx, 1)
		if !n.IsPresent() || n.Value() == '\n' || n.Value() == '\r' {
			_ = self.fail(start, exc.CodeUnterminatedText, "unterminated string literal")
			return "", false
		}
		_ = self.next(ctx)
		_, _ = builder.WriteRune(rune(n.Value()))
		switch rune(n.Value()) {
		case quote:
			return builder.String(), true
		case '\\':
			if nn := self.body.Lookahead(ctx, 1); nn.IsPresent() && nn.Value() != '\n' && nn.Value() != '\r' {
				_ = self.next(ctx)
				_, _ = builder.WriteRune(rune(nn.Value()))
			}
		}
	}
}

func (self *lexerLiteralTokens) readText(ctx context.Context, start idl.Location) optional.Optional[*idl.Token] {
	raw, ok := self.readQuoted(ctx, start, '"')
	if !ok {
		return optional.None[*idl.Token]()
	}
	value, err := strconv.Unquote(raw)
	if err != nil {
		return self.fail(start, exc.CodeInvalidToken, "invalid string literal "+raw)
	}
	return self.token(start, idl.TokenTypeText, value)
}

// readChar turns a character literal into the integer value of its code
// point.
func (self *lexerLiteralTokens) readChar(ctx context.Context, start idl.Location) optional.Optional[*idl.Token] {
	raw, ok := self.readQuoted(ctx, start, '\'')
	if !ok {
		return optional.None[*idl.Token]()
	}
	value, err := strconv.Unquote(raw)
	if err != nil || utf8.RuneCountInString(value) != 1 {
		return self.fail(start, exc.CodeInvalidToken, "invalid character literal "+raw)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return self.token(start, idl.TokenTypeInteger, strconv.Itoa(int(r)))
}

func (self *lexerLiteralTokens) readCommentLine(ctx context.Context, start idl.Location) optional.Optional[*idl.Token] {
	var builder strings.Builder
	for {
		n := self.body.Lookahead(ctx, 1)
		if !n.IsPresent() || n.Value() == '\n' || n.Value() == '\r' {
			return self.token(start, idl.TokenTypeComment, builder.String())
		}
		_ = self.next(ctx)
		_, _ = builder.WriteRune(rune(n.Value()))
	}
}

func (self *lexerLiteralTokens) readCommentBlock(ctx context.Context, start idl.Location) optional.Optional[*idl.Token] {
	var builder strings.Builder
	for {
		n := self.body.Lookahead(ctx, 1)
		if !n.IsPresent() {
			return self.fail(start, exc.CodeUnterminatedText, "unterminated comment block")
		}
		_ = self.next(ctx)
		switch rune(n.Value()) {
		case '*':
			if self.peekIs(ctx, 1, '/') {
				_ = self.next(ctx)
				return self.token(start, idl.TokenTypeComment, builder.String())
			}
		case '\r':
			if self.peekIs(ctx, 1, '\n') {
				_ = self.next(ctx)
				_, _ = builder.WriteRune('\r')
				n = optional.Some[idl.CodePoint]('\n')
			}
			self.newLine()
		case '\n':
			self.newLine()
		}
		_, _ = builder.WriteRune(rune(n.Value()))
	}
}

func (self *lexerLiteralTokens) peekIs(ctx context.Context, n uint8, r rune) bool {
	p := self.body.Lookahead(ctx, n)
	return p.IsPresent() && rune(p.Value()) == r
}

func (self *lexerLiteralTokens) next(ctx context.Context) optional.Optional[idl.CodePoint] {
	n := self.body.Next(ctx)
	if n.IsPresent() {
		self.col = self.col + 1
		self.offset = self.offset + int64(utf8.RuneLen(rune(n.Value())))
	}
	return n
}

func (self *lexerLiteralTokens) location() idl.Location {
	return idl.Location{Line: self.line, Column: self.col, Offset: self.offset}
}

func (self *lexerLiteralTokens) newLine() {
	self.line = self.line + 1
	self.col = 1
}

func (self *lexerLiteralTokens) newLineToken(start idl.Location, v string) optional.Optional[*idl.Token] {
	self.newLine()
	return self.token(start, idl.TokenTypeNewline, v)
}

func (self *lexerLiteralTokens) token(start idl.Location, kind idl.TokenType, value string) optional.Optional[*idl.Token] {
	end := self.location()
	return optional.Some(&idl.Token{
		Span:  &idl.Span{Start: &start, End: &end},
		Type:  kind,
		Value: value,
	})
}

func (self *lexerLiteralTokens) fail(start idl.Location, code string, message string) optional.Optional[*idl.Token] {
	self.done = true
	_ = self.reporter.Report(exc.New(exc.Location{URI: self.uri, Location: start}, code, message))
	return optional.None[*idl.Token]()
}

func (self *lexerLiteralTokens) Close(ctx context.Context) error {
	return self.body.Close(ctx)
}

func isDecimalDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDecimalDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
