package types

import "strings"

var atomicNames = []struct {
	bit  Type
	name string
}{
	{IntZero, "IntZero"}, {IntPos, "IntPos"}, {IntNeg, "IntNeg"},
	{FloatPosZero, "FloatPosZero"}, {FloatNegZero, "FloatNegZero"},
	{FloatPosInt, "FloatPosInt"}, {FloatNegInt, "FloatNegInt"},
	{FloatPosFrac, "FloatPosFrac"}, {FloatNegFrac, "FloatNegFrac"},
	{FloatPosInf, "FloatPosInf"}, {FloatNegInf, "FloatNegInf"},
	{FloatNan, "FloatNan"},
	{BooleanTrue, "BooleanTrue"}, {BooleanFalse, "BooleanFalse"},
	{StringNumber, "StringNumber"}, {StringBoolean, "StringBoolean"},
	{StringNan, "StringNan"}, {StringOther, "StringOther"},
	{ColorRGB, "ColorRGB"}, {ColorARGB, "ColorARGB"},
}

// String renders t as the `|`-joined list of atomic kinds it contains,
// or "None" when empty. Intended for diagnostics, not wire format.
func (t Type) String() string {
	if t == None {
		return "None"
	}
	var parts []string
	for _, a := range atomicNames {
		if t.Intersects(a.bit) {
			parts = append(parts, a.name)
		}
	}
	return strings.Join(parts, "|")
}
