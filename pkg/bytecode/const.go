package bytecode

import "math"

type ConstHashKind uint8

const (
	ConstHashKindNone ConstHashKind = iota
	ConstHashKindInt
	ConstHashKindFloat
)

// Const is a constant table entry, payload bits are reinterpreted according to Kind
type Const struct {
	Kind ConstHashKind
	Bits uint64
}

func IntConst(v int64) Const {
	return Const{Kind: ConstHashKindInt, Bits: uint64(v)}
}

func FloatConst(v float64) Const {
	return Const{Kind: ConstHashKindFloat, Bits: math.Float64bits(v)}
}

func (c Const) Int() int64 {
	return int64(c.Bits)
}

func (c Const) Float() float64 {
	return math.Float64frombits(c.Bits)
}
