package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

const BinarySignature uint32 = uint32('N')<<8 | uint32('A')<<16 | uint32('R')<<24
const BinaryFormatVersion uint32 = 100

var (
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrUnsupportedVersion = errors.New("unsupported binary format version")
	ErrUnexpectedEnd      = errors.New("unexpected end of binary")
	ErrCorrupted          = errors.New("binary is corrupted")
)

type QualifiedIdentifier string

type FullIdentifier string

type Location struct {
	Line, Column uint32
}

// PackageRef names a native package required by the program
type PackageRef struct {
	Name    QualifiedIdentifier
	Version uint32
}

func NewBinary() *Binary {
	return &Binary{
		Exports: map[FullIdentifier]Pointer{},
	}
}

type Binary struct {
	CompilerVersion uint32
	Debug           bool
	Entry           FullIdentifier
	Strings         []string
	Consts          []Const
	Funcs           []Func
	Exports         map[FullIdentifier]Pointer
	Packages        []PackageRef
}

type Func struct {
	Name      StringHash
	NumArgs   uint32
	Ops       []Op
	FilePath  string
	Locations []Location
}

// FuncName returns the function name or empty string if name index is out of the string table
func (b *Binary) FuncName(fn Func) string {
	if int(fn.Name) < len(b.Strings) {
		return b.Strings[fn.Name]
	}
	return ""
}

// Location returns the source position of the op at index, if debug info was loaded
func (fn Func) Location(index int) (string, Location, bool) {
	if index < 0 || index >= len(fn.Locations) {
		return "", Location{}, false
	}
	return fn.FilePath, fn.Locations[index], true
}

func (b *Binary) Build(writer io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(error)
		}
	}()
	order := binary.NativeEndian
	w := func(v any) {
		if err := binary.Write(writer, order, v); err != nil {
			panic(err)
		}
	}
	ws := func(v string) {
		bs := []byte(v)
		w(uint32(len(bs)))
		w(bs)
	}
	w(BinarySignature)
	w(BinaryFormatVersion)
	w(b.CompilerVersion)
	w(b.Debug)
	ws(string(b.Entry))

	w(uint32(len(b.Strings)))
	for _, str := range b.Strings {
		ws(str)
	}

	w(uint32(len(b.Consts)))
	for _, c := range b.Consts {
		w(uint8(c.Kind))
		w(c.Bits)
	}

	w(uint32(len(b.Funcs)))
	for _, fn := range b.Funcs {
		w(uint32(fn.Name))
		w(fn.NumArgs)
		w(uint32(len(fn.Ops)))
		for _, op := range fn.Ops {
			w(uint64(op))
		}
		if b.Debug {
			if len(fn.Locations) != len(fn.Ops) {
				panic(fmt.Errorf("function #%d has %d ops but %d locations", fn.Name, len(fn.Ops), len(fn.Locations)))
			}
			ws(fn.FilePath)
			for _, loc := range fn.Locations {
				w(loc.Line)
				w(loc.Column)
			}
		}
	}

	names := make([]FullIdentifier, 0, len(b.Exports))
	for n := range b.Exports {
		names = append(names, n)
	}
	slices.Sort(names)

	w(uint32(len(names)))
	for _, n := range names {
		ws(string(n))
		w(uint32(b.Exports[n]))
	}

	w(uint32(len(b.Packages)))
	for _, p := range b.Packages {
		ws(string(p.Name))
		w(p.Version)
	}
	return nil
}

// Bytes encodes the binary into memory
func (b *Binary) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Build(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Load(reader io.Reader) (*Binary, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}
	return Decode(data)
}

type decodeError struct {
	err error
}

// Decode parses the whole buffer, every read is checked against its end
func Decode(data []byte) (bin *Binary, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(decodeError)
			if !ok {
				panic(r)
			}
			bin = nil
			err = de.err
		}
	}()
	order := binary.NativeEndian
	pos := 0
	fail := func(err error, format string, args ...any) {
		panic(decodeError{err: fmt.Errorf("%s at offset %d: %w", fmt.Sprintf(format, args...), pos, err)})
	}
	take := func(n int, what string) []byte {
		if n < 0 || len(data)-pos < n {
			fail(ErrUnexpectedEnd, "failed to read %s", what)
		}
		bs := data[pos : pos+n]
		pos += n
		return bs
	}
	r8 := func(what string) uint8 {
		return take(1, what)[0]
	}
	r32 := func(what string) uint32 {
		return order.Uint32(take(4, what))
	}
	r64 := func(what string) uint64 {
		return order.Uint64(take(8, what))
	}
	rs := func(what string) string {
		l := r32(what + " length")
		return string(take(int(l), what))
	}
	count := func(what string, minItemSize int) int {
		n := int(r32(what + " count"))
		if n > (len(data)-pos)/minItemSize {
			fail(ErrUnexpectedEnd, "%d %s do not fit into binary", n, what)
		}
		return n
	}

	if signature := r32("signature"); signature != BinarySignature {
		fail(ErrSignatureMismatch, "got 0x%08x", signature)
	}
	if version := r32("format version"); version != BinaryFormatVersion {
		fail(ErrUnsupportedVersion, "got %d", version)
	}

	bin = NewBinary()
	bin.CompilerVersion = r32("compiler version")
	bin.Debug = r8("debug flag") != 0
	bin.Entry = FullIdentifier(rs("entry point"))

	numStrings := count("strings", 4)
	bin.Strings = make([]string, 0, numStrings)
	for i := 0; i < numStrings; i++ {
		bin.Strings = append(bin.Strings, rs("string"))
	}

	numConsts := count("consts", 9)
	bin.Consts = make([]Const, 0, numConsts)
	for i := 0; i < numConsts; i++ {
		kind := ConstHashKind(r8("const kind"))
		bits := r64("const value")
		bin.Consts = append(bin.Consts, Const{Kind: kind, Bits: bits})
	}

	numFuncs := count("functions", 12)
	bin.Funcs = make([]Func, 0, numFuncs)
	for i := 0; i < numFuncs; i++ {
		fn := Func{Name: StringHash(r32("function name"))}
		if int(fn.Name) >= len(bin.Strings) {
			fail(ErrCorrupted, "function #%d name index %d is out of string table", i, fn.Name)
		}
		fn.NumArgs = r32("function arity")
		numOps := count("ops", 8)
		fn.Ops = make([]Op, 0, numOps)
		for j := 0; j < numOps; j++ {
			fn.Ops = append(fn.Ops, Op(r64("op")))
		}
		if bin.Debug {
			fn.FilePath = rs("file path")
			if numOps > (len(data)-pos)/8 {
				fail(ErrUnexpectedEnd, "failed to read locations of function #%d", i)
			}
			fn.Locations = make([]Location, 0, numOps)
			for j := 0; j < numOps; j++ {
				line := r32("line")
				column := r32("column")
				fn.Locations = append(fn.Locations, Location{Line: line, Column: column})
			}
		}
		bin.Funcs = append(bin.Funcs, fn)
	}

	numExports := count("exports", 8)
	for i := 0; i < numExports; i++ {
		name := FullIdentifier(rs("export name"))
		ptr := Pointer(r32("export pointer"))
		if int(ptr) >= len(bin.Funcs) {
			fail(ErrCorrupted, "export `%s` points to missing function #%d", name, ptr)
		}
		bin.Exports[name] = ptr
	}

	numPackages := count("packages", 8)
	bin.Packages = make([]PackageRef, 0, numPackages)
	for i := 0; i < numPackages; i++ {
		name := QualifiedIdentifier(rs("package name"))
		version := r32("package version")
		bin.Packages = append(bin.Packages, PackageRef{Name: name, Version: version})
	}
	return bin, nil
}
