// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/heap"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/iter"
	"gopkg.microglot.org/litdata/internal/types"
)

type parserLiteral struct {
	ctx      context.Context
	reporter exc.Reporter
	uri      string
	tokens   idl.Lookahead[*idl.Token]
	registry idl.TypeRegistry
	heap     *heap.Heap
	roster   *roster
	maxDepth int
	// set by unary minus for the literal that follows it
	negated bool
	// number of exceptions the reporter held before this parse started
	baseline int
}

func newParserLiteral(ctx context.Context, o *options, reg idl.TypeRegistry, h *heap.Heap, tx *roster, tokens idl.Iterator[*idl.Token]) *parserLiteral {
	filtered := iter.NewIteratorFilter(tokens, idl.Filter[*idl.Token](iter.FilterFunc[*idl.Token](func(ctx context.Context, t *idl.Token) bool {
		return t.Type != idl.TokenTypeComment
	})))
	return &parserLiteral{
		ctx:      ctx,
		reporter: o.reporter,
		uri:      o.uri,
		tokens:   iter.NewLookahead(filtered, 1),
		registry: reg,
		heap:     h,
		roster:   tx,
		maxDepth: o.maxDepth,
		baseline: len(o.reporter.Reported()),
	}
}

func (p *parserLiteral) peek() *idl.Token {
	maybeToken := p.tokens.Lookahead(p.ctx, 0)
	if !maybeToken.IsPresent() {
		return nil
	}
	return maybeToken.Value()
}

func (p *parserLiteral) advance() {
	_ = p.tokens.Next(p.ctx)
}

// current returns the current token. A missing token means the lexer gave up
// so the lexical error it reported is returned instead.
func (p *parserLiteral) current() (*idl.Token, error) {
	if tok := p.peek(); tok != nil {
		return tok, nil
	}
	if reported := exc.Since(p.reporter, p.baseline); len(reported) > 0 {
		return nil, reported[len(reported)-1]
	}
	return nil, p.report(nil, exc.CodeUnexpectedEOF, "unexpected end of token stream")
}

func (p *parserLiteral) report(tok *idl.Token, code string, message string) exc.Exception {
	loc := exc.Location{URI: p.uri}
	if tok != nil {
		loc.Location = *tok.Span.Start
	}
	e := exc.New(loc, code, message)
	_ = p.reporter.Report(e)
	return e
}

func (p *parserLiteral) reportf(tok *idl.Token, code string, format string, args ...any) exc.Exception {
	return p.report(tok, code, fmt.Sprintf(format, args...))
}

// expect advances over a token of the given type or fails.
func (p *parserLiteral) expect(tt idl.TokenType) (*idl.Token, error) {
	tok, err := p.current()
	if err != nil {
		return nil, err
	}
	if tok.Type != tt {
		return nil, p.reportf(tok, exc.CodeUnexpectedToken, "%s expected, found: %s", tt, describe(tok))
	}
	p.advance()
	return tok, nil
}

// gobbleNewlines advances over any run of line breaks and reports whether
// there was one.
func (p *parserLiteral) gobbleNewlines() (bool, error) {
	found := false
	for {
		tok, err := p.current()
		if err != nil {
			return false, err
		}
		if tok.Type != idl.TokenTypeNewline {
			return found, nil
		}
		found = true
		p.advance()
	}
}

func (p *parserLiteral) lookupType(tok *idl.Token, id idl.TypeID) (*idl.Type, error) {
	t := p.registry.Type(id)
	if t == nil {
		return nil, p.reportf(tok, exc.CodeInvalidTypeHandle, "unknown type handle %d", id)
	}
	return t, nil
}

// Data = Literal [ NEWLINE ] EOF
func (p *parserLiteral) parseData(id idl.TypeID) (heap.Value, error) {
	tok, err := p.current()
	if err != nil {
		return heap.Nil(), err
	}
	t, err := p.lookupType(tok, id)
	if err != nil {
		return heap.Nil(), err
	}
	slots, err := p.parseLiteral(nil, id, true, 0)
	if err != nil {
		return heap.Nil(), err
	}
	tok, err = p.current()
	if err != nil {
		return heap.Nil(), err
	}
	if tok.Type == idl.TokenTypeNewline {
		p.advance()
		tok, err = p.current()
		if err != nil {
			return heap.Nil(), err
		}
	}
	if tok.Type != idl.TokenTypeEOF {
		return heap.Nil(), p.reportf(tok, exc.CodeUnexpectedToken, "end of input expected, found: %s", describe(tok))
	}
	if t.IsStruct() {
		return heap.Struct(id, slots), nil
	}
	return slots[0], nil
}

// Literal = INT | FLOAT | STRING | "nil" | "-" Literal | Vector | Record
//
// The slots the literal produces are appended to dst when want is set. An
// inline record appends one slot per flattened field, everything else
// appends exactly one.
func (p *parserLiteral) parseLiteral(dst []heap.Value, id idl.TypeID, want bool, depth int) ([]heap.Value, error) {
	negated := p.negated
	p.negated = false
	tok, err := p.current()
	if err != nil {
		return dst, err
	}
	if depth > p.maxDepth {
		return dst, p.reportf(tok, exc.CodeNestingTooDeep, "literal nested deeper than %d levels", p.maxDepth)
	}
	t, err := p.lookupType(tok, id)
	if err != nil {
		return dst, err
	}
	if t.Kind == idl.KindNil && t.Elem != idl.NoType && tok.Type != idl.TokenTypeKeywordNil {
		p.negated = negated
		return p.parseLiteral(dst, t.Elem, want, depth)
	}
	switch tok.Type {
	case idl.TokenTypeInteger:
		if err := p.expectKind(tok, t, idl.KindInt); err != nil {
			return dst, err
		}
		v, err := parseInt(tok.Value, negated)
		if err != nil {
			return dst, p.reportf(tok, exc.CodeInvalidNumber, "integer literal %s out of range", tok.Value)
		}
		p.advance()
		if want {
			dst = append(dst, heap.Int(v))
		}
		return dst, nil
	case idl.TokenTypeFloat:
		if err := p.expectKind(tok, t, idl.KindFloat); err != nil {
			return dst, err
		}
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return dst, p.reportf(tok, exc.CodeInvalidNumber, "float literal %s out of range", tok.Value)
		}
		p.advance()
		if want {
			dst = append(dst, heap.Float(v))
		}
		return dst, nil
	case idl.TokenTypeText:
		if err := p.expectKind(tok, t, idl.KindString); err != nil {
			return dst, err
		}
		p.advance()
		if want {
			s := p.heap.NewString(types.TypeString, tok.Value)
			p.roster.add(s)
			dst = append(dst, heap.Ref(s))
		}
		return dst, nil
	case idl.TokenTypeKeywordNil:
		if err := p.expectKind(tok, t, idl.KindNil); err != nil {
			return dst, err
		}
		p.advance()
		if want {
			dst = append(dst, heap.Nil())
		}
		return dst, nil
	case idl.TokenTypeMinus:
		return p.parseNegative(dst, tok, id, want, negated, depth)
	case idl.TokenTypeSquareOpen:
		if err := p.expectKind(tok, t, idl.KindVector); err != nil {
			return dst, err
		}
		p.advance()
		if t.Kind == idl.KindAny {
			id = types.TypeVectorAny
		}
		return p.parseElems(dst, idl.TokenTypeSquareClose, id, -1, want, depth)
	case idl.TokenTypeIdentifier:
		if t.Kind == idl.KindInt && t.Enum != idl.NoEnum {
			return p.parseEnumValue(dst, tok, t, want)
		}
		return p.parseRecord(dst, tok, id, t, want, depth)
	default:
		return dst, p.reportf(tok, exc.CodeUnexpectedToken, "illegal start of expression: %s", describe(tok))
	}
}

// expectKind fails when a literal of the given kind cannot stand where a
// value of type t is expected.
func (p *parserLiteral) expectKind(tok *idl.Token, t *idl.Type, given idl.Kind) error {
	if t.Kind == given || t.Kind == idl.KindAny {
		return nil
	}
	return p.reportf(tok, exc.CodeTypeMismatch, "type %s required, %s given", t.Kind, given)
}

// parseNegative negates the literal that follows. In skip mode the operand is
// only validated syntactically, so a non-numeric operand is not an error there.
func (p *parserLiteral) parseNegative(dst []heap.Value, tok *idl.Token, id idl.TypeID, want bool, negated bool, depth int) ([]heap.Value, error) {
	p.advance()
	start := len(dst)
	p.negated = !negated
	dst, err := p.parseLiteral(dst, id, want, depth+1)
	if err != nil || !want {
		return dst, err
	}
	if len(dst) != start+1 {
		return dst, p.report(tok, exc.CodeNumericExpected, "unary minus: numeric value expected")
	}
	v, ok := dst[start].Negate()
	if !ok {
		return dst, p.report(tok, exc.CodeNumericExpected, "unary minus: numeric value expected")
	}
	dst[start] = v
	return dst, nil
}

func (p *parserLiteral) parseEnumValue(dst []heap.Value, tok *idl.Token, t *idl.Type, want bool) ([]heap.Value, error) {
	v, ok := p.registry.LookupEnum(t.Enum, tok.Value)
	if !ok {
		var names []string
		if e := p.registry.Enum(t.Enum); e != nil {
			for _, ev := range e.Values {
				names = append(names, ev.Name)
			}
		}
		return dst, p.report(tok, exc.CodeUnknownEnumValue, "unknown enum value "+tok.Value+didYouMean(tok.Value, names))
	}
	p.advance()
	if want {
		dst = append(dst, heap.Int(v))
	}
	return dst, nil
}

// Record = IDENT "{" [ ElemList ] "}"
func (p *parserLiteral) parseRecord(dst []heap.Value, tok *idl.Token, id idl.TypeID, t *idl.Type, want bool, depth int) ([]heap.Value, error) {
	if t.Kind != idl.KindRecord && t.Kind != idl.KindAny {
		return dst, p.reportf(tok, exc.CodeTypeMismatch, "class/struct type required, %s given", t.Kind)
	}
	p.advance()
	if _, err := p.expect(idl.TokenTypeCurlyOpen); err != nil {
		return dst, err
	}
	if t.Kind == idl.KindRecord {
		if tok.Value != t.Name {
			return dst, p.reportf(tok, exc.CodeNameMismatch, "class/struct type %s required, %s given", t.Name, tok.Value)
		}
		return p.parseElems(dst, idl.TokenTypeCurlyClose, id, len(t.Fields), want, depth)
	}
	rec, ok := p.registry.LookupRecord(tok.Value)
	if !ok {
		if want {
			return dst, p.report(tok, exc.CodeUnknownType, "unknown class/struct type "+tok.Value+didYouMean(tok.Value, p.registry.RecordNames()))
		}
		return p.parseElems(dst, idl.TokenTypeCurlyClose, types.TypeAny, -1, false, depth)
	}
	start := len(dst)
	dst, err := p.parseElems(dst, idl.TokenTypeCurlyClose, rec.ID, len(rec.Fields), want, depth)
	if err != nil || !want || !rec.IsStruct() {
		return dst, err
	}
	// A value of type any occupies one slot, so an inline record found by
	// name is boxed.
	boxed := heap.Struct(rec.ID, append([]heap.Value(nil), dst[start:]...))
	return append(dst[:start], boxed), nil
}

// ElemList = { NEWLINE } [ Literal { ( "," { NEWLINE } | NEWLINE { NEWLINE } ) Literal } { NEWLINE } ] end
//
// count is the number of declared fields of a record or -1 for a vector.
// Elements beyond count are parsed as any and dropped. Missing trailing
// fields are filled with defaults.
func (p *parserLiteral) parseElems(dst []heap.Value, end idl.TokenType, id idl.TypeID, count int, want bool, depth int) ([]heap.Value, error) {
	if _, err := p.gobbleNewlines(); err != nil {
		return dst, err
	}
	tok, err := p.current()
	if err != nil {
		return dst, err
	}
	t, err := p.lookupType(tok, id)
	if err != nil {
		return dst, err
	}
	var buf []heap.Value
	elems := 0
	if tok.Type == end {
		p.advance()
	} else {
		for {
			if err := p.ctx.Err(); err != nil {
				return dst, exc.WrapUnknown(exc.Location{URI: p.uri, Location: *tok.Span.Start}, err)
			}
			if count >= 0 && elems >= count {
				_, err = p.parseLiteral(nil, types.TypeAny, false, depth+1)
			} else {
				buf, err = p.parseLiteral(buf, elemType(t, elems), want, depth+1)
			}
			if err != nil {
				return dst, err
			}
			elems = elems + 1
			hasNewline, err := p.gobbleNewlines()
			if err != nil {
				return dst, err
			}
			tok, err = p.current()
			if err != nil {
				return dst, err
			}
			if tok.Type == end {
				p.advance()
				break
			}
			if !hasNewline {
				if _, err := p.expect(idl.TokenTypeComma); err != nil {
					return dst, err
				}
				if _, err := p.gobbleNewlines(); err != nil {
					return dst, err
				}
			}
		}
	}
	if !want {
		return dst, nil
	}
	for ; elems < count; elems = elems + 1 {
		ft := p.registry.Type(t.Fields[elems].Type)
		switch ft.Kind {
		case idl.KindInt:
			buf = append(buf, heap.Int(0))
		case idl.KindFloat:
			buf = append(buf, heap.Float(0))
		case idl.KindNil:
			buf = append(buf, heap.Nil())
		default:
			return dst, p.report(tok, exc.CodeMissingDefault, "no default value exists for missing struct elements")
		}
	}
	switch t.Kind {
	case idl.KindVector:
		v, err := p.heap.NewVector(id, buf, p.registry.Width(t.Elem))
		if err != nil {
			return dst, p.report(tok, exc.CodeUnknownFatal, err.Error())
		}
		p.roster.add(v)
		return append(dst, heap.Ref(v)), nil
	case idl.KindRecord:
		if t.Heap {
			r := p.heap.NewRecord(id, buf)
			p.roster.add(r)
			return append(dst, heap.Ref(r)), nil
		}
		return append(dst, buf...), nil
	default:
		return dst, nil
	}
}

func elemType(t *idl.Type, position int) idl.TypeID {
	switch t.Kind {
	case idl.KindVector:
		return t.Elem
	case idl.KindRecord:
		return t.Fields[position].Type
	default:
		return types.TypeAny
	}
}

// parseInt accepts decimal and 0x-prefixed literals. Hex literals may use
// all 64 bits. Under a unary minus 9223372036854775808 wraps to the minimum
// int64, which the negation leaves unchanged.
func parseInt(s string, negated bool) (int64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err := strconv.ParseUint(s[2:], 16, 64)
		return int64(u), err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if u, uerr := strconv.ParseUint(s, 10, 64); negated && uerr == nil && u == 1<<63 {
			return math.MinInt64, nil
		}
	}
	return v, err
}

// describe renders a token for diagnostics.
func describe(tok *idl.Token) string {
	switch tok.Type {
	case idl.TokenTypeIdentifier, idl.TokenTypeInteger, idl.TokenTypeFloat, idl.TokenTypeUnknown:
		return tok.Value
	case idl.TokenTypeText:
		return strconv.Quote(tok.Value)
	default:
		return tok.Type.String()
	}
}
