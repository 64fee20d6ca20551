// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package exc

const (
	CodeUnknownFatal                  = "M0000"
	CodeFileNotFound                  = "M0001"
	CodeUnsuportedFileSystemOperation = "M0002"
	CodePermissionDenied              = "M0003"
	CodeUnsupportedFileFormat         = "M0004"
	CodeUnexpectedEOF                 = "M0005"
	CodeProtobufParseError            = "M0006"
	CodeInvalidNumber                 = "M0007"
)

// Literal lexing and parsing.
const (
	CodeInvalidToken      = "L0001"
	CodeUnterminatedText  = "L0002"
	CodeUnexpectedToken   = "L0003"
	CodeTypeMismatch      = "L0004"
	CodeNameMismatch      = "L0005"
	CodeUnknownEnumValue  = "L0006"
	CodeMissingDefault    = "L0007"
	CodeNumericExpected   = "L0008"
	CodeNestingTooDeep    = "L0009"
	CodeUnknownType       = "L0010"
	CodeInvalidTypeHandle = "L0011"
)

// Schema registration.
const (
	CodeDuplicateType     = "S0001"
	CodeUnresolvedType    = "S0002"
	CodeRecursiveStruct   = "S0003"
	CodeUnsupportedSchema = "S0004"
)

const (
	CodeEOF = "_EOF_"
)

var (
	defaultNonFatal = map[string]bool{}
)
