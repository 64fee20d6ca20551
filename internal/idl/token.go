// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package idl

import "fmt"

type Location struct {
	Line   int32
	Column int32
	Offset int64
}

type Span struct {
	Start *Location
	End   *Location
}

type Token struct {
	Span  *Span
	Type  TokenType
	Value string
}

type TokenType uint16

const (
	TokenTypeUnknown     TokenType = 0
	TokenTypeIdentifier  TokenType = 1
	TokenTypeInteger     TokenType = 2
	TokenTypeFloat       TokenType = 3
	TokenTypeText        TokenType = 4
	TokenTypeKeywordNil  TokenType = 5
	TokenTypeMinus       TokenType = 6
	TokenTypeComma       TokenType = 7
	TokenTypeCurlyOpen   TokenType = 8
	TokenTypeCurlyClose  TokenType = 9
	TokenTypeSquareOpen  TokenType = 10
	TokenTypeSquareClose TokenType = 11
	TokenTypeComment     TokenType = 12
	TokenTypeNewline     TokenType = 13
	TokenTypeEOF         TokenType = 14
)

func (t TokenType) String() string {
	switch t {
	case TokenTypeUnknown:
		return "unknown"
	case TokenTypeIdentifier:
		return "identifier"
	case TokenTypeInteger:
		return "integer"
	case TokenTypeFloat:
		return "float"
	case TokenTypeText:
		return "string"
	case TokenTypeKeywordNil:
		return "nil"
	case TokenTypeMinus:
		return "-"
	case TokenTypeComma:
		return ","
	case TokenTypeCurlyOpen:
		return "{"
	case TokenTypeCurlyClose:
		return "}"
	case TokenTypeSquareOpen:
		return "["
	case TokenTypeSquareClose:
		return "]"
	case TokenTypeComment:
		return "comment"
	case TokenTypeNewline:
		return "linefeed"
	case TokenTypeEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token-%d", uint16(t))
	}
}
