package runtime

import (
	"fmt"

	"golang.org/x/exp/slices"
	"nar-runtime/pkg/bytecode"
)

// Arena owns every object of the current frame along with
// the locals and call stacks shared by nested invocations
type Arena struct {
	chars     *typedArena[rune]
	ints      *typedArena[int64]
	floats    *typedArena[float64]
	strings   *typedArena[string]
	records   *typedArena[recordField]
	tuples    *typedArena[chainItem]
	lists     *typedArena[chainItem]
	options   *typedArena[option]
	functions *typedArena[*function]
	closures  *typedArena[closure]
	natives   *typedArena[native]
	patterns  *typedArena[pattern]
	all       []cleaner

	interned  map[string]Object
	frame     frameAllocator
	locals    []local
	callStack []bytecode.Pointer
}

type local struct {
	name  string
	value Object
}

type cleaner interface {
	clean()
}

// typedArena stores values of one kind. Indices keep growing across resets
// so that handles from a previous frame are detected instead of aliasing new
// objects. The first reserved slots are pinned singletons recreated on reset.
type typedArena[T any] struct {
	kind     InstanceKind
	reserved int
	base     uint64
	items    []T
}

func newTypedArena[T any](kind InstanceKind, reserved int, initialCapacity int) *typedArena[T] {
	return &typedArena[T]{
		kind:     kind,
		reserved: reserved,
		base:     uint64(reserved),
		items:    make([]T, 0, initialCapacity),
	}
}

func (a *typedArena[T]) add(x T) Object {
	pos := len(a.items)
	a.items = append(a.items, x)
	if pos < a.reserved {
		return newObject(a.kind, uint64(pos))
	}
	return newObject(a.kind, a.base+uint64(pos-a.reserved))
}

func (a *typedArena[T]) at(o Object) (T, error) {
	var zero T
	if o.Kind() != a.kind {
		return zero, typeMismatch(a.kind, o)
	}
	idx := o.index()
	var pos uint64
	switch {
	case idx < uint64(a.reserved):
		pos = idx
	case idx >= a.base:
		pos = uint64(a.reserved) + (idx - a.base)
	default:
		return zero, fmt.Errorf("%w: %s", ErrStaleObject, o)
	}
	if pos >= uint64(len(a.items)) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidObject, o)
	}
	return a.items[pos], nil
}

func (a *typedArena[T]) clean() {
	if len(a.items) > a.reserved {
		a.base += uint64(len(a.items) - a.reserved)
	}
	clear(a.items)
	a.items = a.items[:0]
}

func newArena(initialCapacity int) *Arena {
	a := &Arena{
		chars:     newTypedArena[rune](InstanceKindChar, 0, initialCapacity),
		ints:      newTypedArena[int64](InstanceKindInt, 0, initialCapacity),
		floats:    newTypedArena[float64](InstanceKindFloat, 0, initialCapacity),
		strings:   newTypedArena[string](InstanceKindString, 1, initialCapacity),
		records:   newTypedArena[recordField](InstanceKindRecord, 0, initialCapacity),
		tuples:    newTypedArena[chainItem](InstanceKindTuple, 0, initialCapacity),
		lists:     newTypedArena[chainItem](InstanceKindList, 0, initialCapacity),
		options:   newTypedArena[option](InstanceKindOption, 2, initialCapacity),
		functions: newTypedArena[*function](InstanceKindFunction, 0, initialCapacity),
		closures:  newTypedArena[closure](InstanceKindClosure, 0, initialCapacity),
		natives:   newTypedArena[native](InstanceKindNative, 0, initialCapacity),
		patterns:  newTypedArena[pattern](InstanceKindPattern, 0, initialCapacity),
	}
	a.all = []cleaner{
		a.chars, a.ints, a.floats, a.strings, a.records, a.tuples,
		a.lists, a.options, a.functions, a.closures, a.natives, a.patterns,
	}
	a.reset()
	return a
}

// reset drops every object of the frame and recreates singletons:
// empty string at string index 0, False and True at option indices 0 and 1
func (a *Arena) reset() {
	for _, arena := range a.all {
		arena.clean()
	}
	a.interned = map[string]Object{}
	a.frame.reset()
	clear(a.locals)
	a.locals = a.locals[:0]
	a.callStack = a.callStack[:0]

	a.NewString("")
	a.options.add(option{name: a.NewString(kFalse), values: emptyObject(InstanceKindList)})
	a.options.add(option{name: a.NewString(kTrue), values: emptyObject(InstanceKindList)})
}

func (a *Arena) FrameStats() FrameStats {
	return a.frame.stats
}

// FrameAlloc returns a zeroed buffer that lives until the next frame reset
func (a *Arena) FrameAlloc(size int) []byte {
	return a.frame.bytes(size)
}

func (a *Arena) NewUnit() Object {
	return newObject(InstanceKindUnit, 0)
}

func (a *Arena) NewChar(r rune) Object {
	return a.chars.add(r)
}

func (a *Arena) NewInt(i int64) Object {
	return a.ints.add(i)
}

func (a *Arena) NewFloat(f float64) Object {
	return a.floats.add(f)
}

// NewString returns the same object for the same content within one frame
func (a *Arena) NewString(s string) Object {
	if o, ok := a.interned[s]; ok {
		return o
	}
	s = a.frame.cloneString(s)
	o := a.strings.add(s)
	a.interned[s] = o
	return o
}

func (a *Arena) NewBool(b bool) Object {
	if b {
		return newObject(InstanceKindOption, 1)
	}
	return newObject(InstanceKindOption, 0)
}

func (a *Arena) NewList(items ...Object) Object {
	next := emptyObject(InstanceKindList)
	for i := len(items) - 1; i >= 0; i-- {
		next = a.lists.add(chainItem{value: items[i], next: next})
	}
	return next
}

// NewListCons prepends head to the list tail without copying it
func (a *Arena) NewListCons(head Object, tail Object) (Object, error) {
	if tail.Kind() != InstanceKindList {
		return InvalidObject, typeMismatch(InstanceKindList, tail)
	}
	return a.lists.add(chainItem{value: head, next: tail}), nil
}

func (a *Arena) NewTuple(items ...Object) Object {
	next := emptyObject(InstanceKindTuple)
	for i := len(items) - 1; i >= 0; i-- {
		next = a.tuples.add(chainItem{value: items[i], next: next})
	}
	return next
}

func (a *Arena) NewRecord(keys []string, values []Object) (Object, error) {
	if len(keys) != len(values) {
		return InvalidObject, fmt.Errorf("record has %d keys and %d values", len(keys), len(values))
	}
	record := emptyObject(InstanceKindRecord)
	for i, key := range keys {
		record = a.records.add(recordField{key: a.NewString(key), value: values[i], parent: record})
	}
	return record, nil
}

// NewRecordField returns a new record with the field set, parent is left untouched
func (a *Arena) NewRecordField(parent Object, key string, value Object) (Object, error) {
	return a.updateField(parent, a.NewString(key), value)
}

func (a *Arena) newRecordFromStack(valuesAndKeys []Object) (Object, error) {
	record := emptyObject(InstanceKindRecord)
	for i := 1; i < len(valuesAndKeys); i += 2 {
		var err error
		record, err = a.updateField(record, valuesAndKeys[i], valuesAndKeys[i-1])
		if err != nil {
			return InvalidObject, err
		}
	}
	return record, nil
}

func (a *Arena) updateField(record Object, key Object, value Object) (Object, error) {
	if record.Kind() != InstanceKindRecord {
		return InvalidObject, typeMismatch(InstanceKindRecord, record)
	}
	if key.Kind() != InstanceKindString {
		return InvalidObject, typeMismatch(InstanceKindString, key)
	}
	return a.records.add(recordField{key: key, value: value, parent: record}), nil
}

func (a *Arena) NewOption(name string, values ...Object) Object {
	return a.options.add(option{name: a.NewString(name), values: a.NewList(values...)})
}

func (a *Arena) newOptionWithName(name Object, values []Object) (Object, error) {
	if name.Kind() != InstanceKindString {
		return InvalidObject, typeMismatch(InstanceKindString, name)
	}
	return a.options.add(option{name: name, values: a.NewList(values...)}), nil
}

func (a *Arena) NewNative(ptr any, cmp Comparator) Object {
	return a.natives.add(native{ptr: ptr, cmp: cmp})
}

func (a *Arena) newFunction(fn *function) Object {
	return a.functions.add(fn)
}

func (a *Arena) newClosure(fn bytecode.Pointer, curried Object) Object {
	return a.closures.add(closure{fn: fn, curried: curried})
}

func (a *Arena) newPattern(kind bytecode.PatternKind, name Object, items []Object) Object {
	return a.patterns.add(pattern{kind: kind, name: name, items: a.NewList(items...)})
}

func (a *Arena) AsUnit(o Object) error {
	if o.Kind() != InstanceKindUnit {
		return typeMismatch(InstanceKindUnit, o)
	}
	return nil
}

func (a *Arena) AsChar(o Object) (rune, error) {
	return a.chars.at(o)
}

func (a *Arena) AsInt(o Object) (int64, error) {
	return a.ints.at(o)
}

func (a *Arena) AsFloat(o Object) (float64, error) {
	return a.floats.at(o)
}

func (a *Arena) AsString(o Object) (string, error) {
	return a.strings.at(o)
}

// AsBool accepts reserved boolean objects and options named True or False
func (a *Arena) AsBool(o Object) (bool, error) {
	if o.Kind() != InstanceKindOption {
		return false, typeMismatch(InstanceKindOption, o)
	}
	switch o.index() {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	opt, err := a.options.at(o)
	if err != nil {
		return false, err
	}
	name, err := a.AsString(opt.name)
	if err != nil {
		return false, err
	}
	switch name {
	case kTrue:
		return true, nil
	case kFalse:
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected Bool, got option `%s`", ErrTypeMismatch, name)
	}
}

// AsListCons splits a list into head and tail, ok is false for an empty list
func (a *Arena) AsListCons(o Object) (head Object, tail Object, ok bool, err error) {
	if o.Kind() != InstanceKindList {
		return InvalidObject, InvalidObject, false, typeMismatch(InstanceKindList, o)
	}
	if o.IsEmpty() {
		return InvalidObject, InvalidObject, false, nil
	}
	item, err := a.lists.at(o)
	if err != nil {
		return InvalidObject, InvalidObject, false, err
	}
	return item.value, item.next, true, nil
}

// AsList flattens the list into a slice living until the next frame reset
func (a *Arena) AsList(o Object) ([]Object, error) {
	return a.flatten(a.lists, o)
}

func (a *Arena) AsTuple(o Object) ([]Object, error) {
	return a.flatten(a.tuples, o)
}

func (a *Arena) flatten(arena *typedArena[chainItem], o Object) ([]Object, error) {
	if o.Kind() != arena.kind {
		return nil, typeMismatch(arena.kind, o)
	}
	n := 0
	for it := o; !it.IsEmpty(); n++ {
		item, err := arena.at(it)
		if err != nil {
			return nil, err
		}
		it = item.next
	}
	items := a.frame.objects(n)
	it := o
	for i := range items {
		item, _ := arena.at(it)
		items[i] = item.value
		it = item.next
	}
	return items, nil
}

// AsRecord returns latest value of every field, fields are ordered by their first write
func (a *Arena) AsRecord(o Object) (keys []Object, values []Object, err error) {
	if o.Kind() != InstanceKindRecord {
		return nil, nil, typeMismatch(InstanceKindRecord, o)
	}
	var fields []recordField
	for it := o; !it.IsEmpty(); {
		f, err := a.records.at(it)
		if err != nil {
			return nil, nil, err
		}
		fields = append(fields, f)
		it = f.parent
	}
	slices.Reverse(fields)
	positions := map[Object]int{}
	var ks, vs []Object
	for _, f := range fields {
		if pos, ok := positions[f.key]; ok {
			vs[pos] = f.value
			continue
		}
		positions[f.key] = len(ks)
		ks = append(ks, f.key)
		vs = append(vs, f.value)
	}
	keys = a.frame.objects(len(ks))
	values = a.frame.objects(len(vs))
	copy(keys, ks)
	copy(values, vs)
	return keys, values, nil
}

// FindField returns the most recent value of the field
func (a *Arena) FindField(o Object, name string) (Object, bool, error) {
	if o.Kind() != InstanceKindRecord {
		return InvalidObject, false, typeMismatch(InstanceKindRecord, o)
	}
	key, ok := a.interned[name]
	if !ok {
		return InvalidObject, false, nil
	}
	return a.findField(o, key)
}

func (a *Arena) findField(o Object, key Object) (Object, bool, error) {
	for it := o; !it.IsEmpty(); {
		f, err := a.records.at(it)
		if err != nil {
			return InvalidObject, false, err
		}
		if f.key == key {
			return f.value, true, nil
		}
		it = f.parent
	}
	return InvalidObject, false, nil
}

func (a *Arena) AsOption(o Object) (name string, values []Object, err error) {
	opt, err := a.options.at(o)
	if err != nil {
		return "", nil, err
	}
	name, err = a.AsString(opt.name)
	if err != nil {
		return "", nil, err
	}
	values, err = a.AsList(opt.values)
	if err != nil {
		return "", nil, err
	}
	return name, values, nil
}

func (a *Arena) AsNative(o Object) (any, error) {
	n, err := a.natives.at(o)
	if err != nil {
		return nil, err
	}
	return n.ptr, nil
}

func (a *Arena) asClosure(o Object) (closure, error) {
	return a.closures.at(o)
}

func (a *Arena) asPattern(o Object) (pattern, error) {
	return a.patterns.at(o)
}

func (a *Arena) asFunction(o Object) (*function, error) {
	return a.functions.at(o)
}
