// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules is the Field Rules Engine: it compiles per-category rule
// inputs into a frozen Engine and exposes the normalization, migration, and
// runtime-gate operations every accepted value passes through before it can
// be published.
package rules

// RequiredLevel is ordered from most to least strict.
type RequiredLevel string

const (
	RequiredIdentity RequiredLevel = "identity"
	RequiredCritical RequiredLevel = "critical"
	RequiredRequired RequiredLevel = "required"
	RequiredExpected RequiredLevel = "expected"
	RequiredOptional RequiredLevel = "optional"
)

// requiredLevelRank gives RequiredLevel a total order, most strict first.
var requiredLevelRank = map[RequiredLevel]int{
	RequiredIdentity: 0,
	RequiredCritical: 1,
	RequiredRequired: 2,
	RequiredExpected: 3,
	RequiredOptional: 4,
}

// Rank returns the strictness rank of l; lower is stricter.
func (l RequiredLevel) Rank() int {
	if r, ok := requiredLevelRank[l]; ok {
		return r
	}
	return requiredLevelRank[RequiredOptional]
}

// Difficulty drives search-effort scaling.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyVeryHard  Difficulty = "very_hard"
	DifficultyExtraHard Difficulty = "extra_hard"
)

// Availability drives search effort and the undisclosed-threshold policy.
type Availability string

const (
	AvailabilityAlways    Availability = "always"
	AvailabilityExpected  Availability = "expected"
	AvailabilitySometimes Availability = "sometimes"
	AvailabilityRare      Availability = "rare"
	AvailabilityUnknown   Availability = "unknown"
)

// ValueType is the field contract's scalar type.
type ValueType string

const (
	TypeNumber ValueType = "number"
	TypeString ValueType = "string"
	TypeEnum   ValueType = "enum"
	TypeBool   ValueType = "bool"
	TypeDate   ValueType = "date"
)

// Shape is scalar or list.
type Shape string

const (
	ShapeScalar Shape = "scalar"
	ShapeList   Shape = "list"
)

// SortOrder is the list-rule sort direction.
type SortOrder string

const (
	SortNone SortOrder = "none"
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Range bounds a numeric contract.
type Range struct {
	Min *float64
	Max *float64
}

// ListRules governs dedupe, sort, and cardinality of list-shaped fields.
// Dedupe is applied by normalizeCandidate; Sort and Min/MaxItems are
// deferred to the runtime gate.
type ListRules struct {
	Dedupe   bool
	Sort     SortOrder
	MinItems int
	MaxItems int
}

// Contract is the type/shape/unit/range/list-rules declaration for a field.
type Contract struct {
	Type      ValueType
	Shape     Shape
	Unit      string
	Range     *Range
	ListRules *ListRules
}

// Evidence declares evidence requirements for a field.
type Evidence struct {
	Required        bool
	MinEvidenceRefs int
}

// ConstraintOp enumerates the three operator families a constraint
// predicate can use.
type ConstraintOp string

const (
	OpGTE      ConstraintOp = ">="
	OpLTE      ConstraintOp = "<="
	OpEQ       ConstraintOp = "=="
	OpNEQ      ConstraintOp = "!="
	OpLT       ConstraintOp = "<"
	OpGT       ConstraintOp = ">"
	OpRequires ConstraintOp = "requires"
)

// Constraint is a logical predicate over other fields, evaluated by
// evaluateConstraint. Field is the left-hand operand; for OpRequires, Other
// names the required field. For comparison ops, exactly one of Other
// (cross-field comparison) or Literal (comparison against a fixed value)
// should be set — Other takes precedence if both are non-empty.
type Constraint struct {
	Field   string
	Op      ConstraintOp
	Other   string
	Literal string
}

// SearchHints carries anchor phrases, query terms, and expected units used
// by the (out-of-scope) search-query generator.
type SearchHints struct {
	AnchorPhrases []string
	QueryTerms    []string
	ExpectedUnits []string
}

// EnumPolicy controls how a pipeline value is treated when its normalized
// form falls outside the field's known value set.
type EnumPolicy string

const (
	EnumClosed           EnumPolicy = "closed"
	EnumOpenPreferKnown  EnumPolicy = "open_prefer_known"
	EnumOpen             EnumPolicy = "open"
)

// FieldRule is the compiled per-field contract. Struct tags drive Create's
// validator.Struct shape check: a bundle with an empty field_key or an
// out-of-enum required_level/difficulty/availability fails closed the same
// way an unrecognized bundle version does, rather than compiling a
// half-valid engine.
type FieldRule struct {
	FieldKey      string        `validate:"required"`
	RequiredLevel RequiredLevel `validate:"required,oneof=identity critical required expected optional"`
	Difficulty    Difficulty    `validate:"required,oneof=easy medium hard very_hard extra_hard"`
	Availability  Availability  `validate:"required,oneof=always expected sometimes rare unknown"`
	Contract      Contract
	Evidence      Evidence
	Constraints   []Constraint
	SearchHints   SearchHints
	EnumPolicy    EnumPolicy
	KnownValues   []string
}

// FailureCode enumerates normalizeCandidate/applyRuntimeGate failure
// reasons.
type FailureCode string

const (
	FailureParseFailed           FailureCode = "parse_failed"
	FailureUnitUnknown           FailureCode = "unit_unknown"
	FailureRangeViolation        FailureCode = "range_violation"
	FailureEnumUnknown           FailureCode = "enum_unknown"
	FailureEnumUnknownUnderClose FailureCode = "enum_unknown_under_closed"
	FailureMinItemsNotMet        FailureCode = "min_items_not_met"
	FailureConstraintFailed      FailureCode = "constraint_failed"
)

// NormalizeResult is the outcome of normalizeCandidate.
type NormalizeResult struct {
	OK          bool
	Normalized  any
	FailureCode FailureCode
}

// GateFailure is recorded when applyRuntimeGate forces a field to the unk
// sentinel.
type GateFailure struct {
	Field      string
	ReasonCode FailureCode
	Stage      string
}

// GateChange records a non-failing modification applyRuntimeGate made to a
// field (migration rename, enum canonicalization, list sort).
type GateChange struct {
	Field  string
	Kind   string
	Detail string
}

// RuntimeGateInput is the argument to applyRuntimeGate.
type RuntimeGateInput struct {
	Fields      map[string]any
	FieldOrder  []string
	ComponentProps map[string]string
}

// RuntimeGateOutput is the result of applyRuntimeGate.
type RuntimeGateOutput struct {
	Fields   map[string]any
	Changes  []GateChange
	Failures []GateFailure
}

// ConstraintResult is the outcome of evaluateConstraint.
type ConstraintResult struct {
	Pass              bool
	Skipped           bool
	DependencyMissing bool
}

// Unk is the reserved sentinel meaning "value unknown". It is never equal
// to any legitimate value.
const Unk = "unk"
