package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func sampleBinary(debug bool) *Binary {
	bin := NewBinary()
	bin.CompilerVersion = 7
	bin.Debug = debug
	bin.Entry = "Main.main"
	bin.Strings = []string{"", "Main.main", "Main.inc", "x"}
	bin.Consts = []Const{IntConst(42), FloatConst(-1.5)}
	bin.Funcs = []Func{
		{Name: 1, NumArgs: 0, Ops: []Op{LoadConst(StackKindObject, ConstKindInt, 0)}},
		{Name: 2, NumArgs: 1, Ops: []Op{LoadLocal(3), SwapPop(SwapPopModePop)}},
	}
	if debug {
		bin.Funcs[0].FilePath = "main.nar"
		bin.Funcs[0].Locations = []Location{{Line: 1, Column: 2}}
		bin.Funcs[1].FilePath = "main.nar"
		bin.Funcs[1].Locations = []Location{{Line: 3, Column: 4}, {Line: 3, Column: 9}}
	}
	bin.Exports["Main.main"] = 0
	bin.Exports["Main.inc"] = 1
	bin.Packages = []PackageRef{{Name: "Nar.Base", Version: 100}}
	return bin
}

func TestRoundTrip(t *testing.T) {
	for _, debug := range []bool{false, true} {
		data, err := sampleBinary(debug).Bytes()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		bin, err := Decode(data)
		if err != nil {
			t.Fatalf("decode (debug=%v): %v", debug, err)
		}
		if bin.CompilerVersion != 7 || bin.Debug != debug || bin.Entry != "Main.main" {
			t.Fatalf("header mismatch: %+v", bin)
		}
		if len(bin.Strings) != 4 || bin.Strings[3] != "x" {
			t.Fatalf("strings mismatch: %q", bin.Strings)
		}
		if bin.Consts[0].Int() != 42 || bin.Consts[1].Float() != -1.5 {
			t.Fatalf("consts mismatch: %+v", bin.Consts)
		}
		if len(bin.Funcs) != 2 || bin.Funcs[1].NumArgs != 1 || len(bin.Funcs[1].Ops) != 2 {
			t.Fatalf("funcs mismatch: %+v", bin.Funcs)
		}
		if bin.FuncName(bin.Funcs[1]) != "Main.inc" {
			t.Fatalf("unexpected func name %q", bin.FuncName(bin.Funcs[1]))
		}
		if debug {
			file, loc, ok := bin.Funcs[1].Location(1)
			if !ok || file != "main.nar" || loc.Column != 9 {
				t.Fatalf("location mismatch: %s %+v %v", file, loc, ok)
			}
		} else if _, _, ok := bin.Funcs[1].Location(0); ok {
			t.Fatalf("location should be absent without debug info")
		}
		if bin.Exports["Main.inc"] != 1 {
			t.Fatalf("exports mismatch: %v", bin.Exports)
		}
		if len(bin.Packages) != 1 || bin.Packages[0].Name != "Nar.Base" || bin.Packages[0].Version != 100 {
			t.Fatalf("packages mismatch: %+v", bin.Packages)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := sampleBinary(true).Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	badSignature := bytes.Clone(valid)
	badSignature[1] = 'X'

	badVersion := bytes.Clone(valid)
	binary.NativeEndian.PutUint32(badVersion[4:], 99)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrUnexpectedEnd},
		{"signature only", valid[:4], ErrUnexpectedEnd},
		{"bad signature", badSignature, ErrSignatureMismatch},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated tail", valid[:len(valid)-1], ErrUnexpectedEnd},
		{"truncated middle", valid[:len(valid)/2], ErrUnexpectedEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if bin != nil {
				t.Fatalf("expected no partial binary")
			}
		})
	}
}

func TestDecodeEveryTruncation(t *testing.T) {
	valid, err := sampleBinary(true).Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for n := 8; n < len(valid); n++ {
		if _, err := Decode(valid[:n]); !errors.Is(err, ErrUnexpectedEnd) {
			t.Fatalf("length %d: expected unexpected end, got %v", n, err)
		}
	}
}

func TestDecodeCorruptedName(t *testing.T) {
	bin := sampleBinary(false)
	bin.Funcs[0].Name = 100
	data, err := bin.Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected corrupted, got %v", err)
	}
}

func TestLoadReader(t *testing.T) {
	data, err := sampleBinary(false).Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bin, err := Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bin.Entry != "Main.main" {
		t.Fatalf("unexpected entry %q", bin.Entry)
	}
}

func TestOpLayout(t *testing.T) {
	op := NewOp(OpKindMakePattern, 0x12, 0x34, 0xdeadbeef)
	if uint64(op) != 0xdeadbeef_00341209 {
		t.Fatalf("unexpected word 0x%016x", uint64(op))
	}
	kind, b, c, a := op.Decompose()
	if kind != OpKindMakePattern || b != 0x12 || c != 0x34 || a != 0xdeadbeef {
		t.Fatalf("decompose mismatch: %d %x %x %x", kind, b, c, a)
	}

	kind, b, c, a = LoadConst(StackKindPattern, ConstKindString, 5).Decompose()
	if kind != OpKindLoadConst || StackKind(b) != StackKindPattern || ConstKind(c) != ConstKindString || a != 5 {
		t.Fatalf("load const layout mismatch: %d %d %d %d", kind, b, c, a)
	}
	if Apply(3).String() != "apply 3" {
		t.Fatalf("unexpected string %q", Apply(3).String())
	}
}
