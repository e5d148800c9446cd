package cache

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CircularSentinel replaces any subtree whose root is already on the
// current traversal path.
const CircularSentinel = `"[Circular]"`

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	jsonNumberType = reflect.TypeOf(json.Number(""))
)

// Fingerprint renders v as a canonical, JSON-like string. Keyed bags (maps
// and structs) are emitted with keys sorted lexicographically, ordered
// sequences keep their order, so logically identical values always produce
// the same string regardless of map iteration or field declaration order.
//
// Struct fields follow encoding/json naming: the json tag name when set,
// "-" skipped, omitempty honoured, unexported fields ignored. Nil maps and
// slices render like their empty counterparts; nil pointers render null.
// Channels and funcs carry no data and render null.
//
// Fingerprint never panics on cyclic input: a pointer, map or slice that is
// revisited while still on the path from the root is written as
// CircularSentinel.
func Fingerprint(v any) string {
	f := &fingerprinter{
		buf:    &strings.Builder{},
		onPath: make(map[visit]struct{}),
	}
	f.write(reflect.ValueOf(v))
	return f.buf.String()
}

// visit identifies a reference-typed node. n separates sub-slices that
// share a backing array.
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type fingerprinter struct {
	buf    *strings.Builder
	onPath map[visit]struct{}
}

type pair struct {
	key string
	val string
}

func (f *fingerprinter) enter(v reflect.Value, n int) (visit, bool) {
	id := visit{ptr: v.Pointer(), typ: v.Type(), n: n}
	if _, seen := f.onPath[id]; seen {
		return id, false
	}
	f.onPath[id] = struct{}{}
	return id, true
}

func (f *fingerprinter) leave(id visit) {
	delete(f.onPath, id)
}

// render writes v into a scratch buffer and returns it, sharing the
// on-path set with the caller.
func (f *fingerprinter) render(v reflect.Value) string {
	saved := f.buf
	f.buf = &strings.Builder{}
	f.write(v)
	out := f.buf.String()
	f.buf = saved
	return out
}

func (f *fingerprinter) write(v reflect.Value) {
	if !v.IsValid() {
		f.buf.WriteString("null")
		return
	}

	if v.CanInterface() {
		switch v.Type() {
		case timeType:
			t := v.Interface().(time.Time)
			f.buf.WriteString(strconv.Quote(t.UTC().Format(time.RFC3339Nano)))
			return
		case rawMessageType:
			f.writeRawJSON(v.Bytes())
			return
		case jsonNumberType:
			f.writeJSONNumber(json.Number(v.String()))
			return
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			f.buf.WriteString("null")
			return
		}
		f.write(v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			f.buf.WriteString("null")
			return
		}
		id, ok := f.enter(v, 0)
		if !ok {
			f.buf.WriteString(CircularSentinel)
			return
		}
		f.write(v.Elem())
		f.leave(id)

	case reflect.Map:
		if v.IsNil() {
			f.buf.WriteString("{}")
			return
		}
		id, ok := f.enter(v, 0)
		if !ok {
			f.buf.WriteString(CircularSentinel)
			return
		}
		pairs := make([]pair, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			pairs = append(pairs, pair{key: f.mapKey(iter.Key()), val: f.render(iter.Value())})
		}
		f.leave(id)
		f.writeObject(pairs)

	case reflect.Struct:
		f.writeObject(f.structPairs(v, nil))

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			f.buf.WriteString(strconv.Quote(base64.StdEncoding.EncodeToString(v.Bytes())))
			return
		}
		if v.IsNil() {
			f.buf.WriteString("[]")
			return
		}
		id, ok := f.enter(v, v.Len())
		if !ok {
			f.buf.WriteString(CircularSentinel)
			return
		}
		f.writeList(v)
		f.leave(id)

	case reflect.Array:
		f.writeList(v)

	case reflect.String:
		f.buf.WriteString(strconv.Quote(v.String()))

	case reflect.Bool:
		f.buf.WriteString(strconv.FormatBool(v.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.buf.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f.buf.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		f.writeFloat(v.Float())

	case reflect.Complex64, reflect.Complex128:
		f.buf.WriteString(strconv.Quote(strconv.FormatComplex(v.Complex(), 'g', -1, 128)))

	default:
		// chan, func, unsafe.Pointer
		f.buf.WriteString("null")
	}
}

func (f *fingerprinter) writeList(v reflect.Value) {
	f.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			f.buf.WriteByte(',')
		}
		f.write(v.Index(i))
	}
	f.buf.WriteByte(']')
}

func (f *fingerprinter) writeObject(pairs []pair) {
	// Keys can collide after stringification (map[any]any{1: a, "1": b}),
	// so the rendered value breaks ties.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].val < pairs[j].val
	})
	f.buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			f.buf.WriteByte(',')
		}
		f.buf.WriteString(strconv.Quote(p.key))
		f.buf.WriteByte(':')
		f.buf.WriteString(p.val)
	}
	f.buf.WriteByte('}')
}

func (f *fingerprinter) writeFloat(x float64) {
	switch {
	case math.IsNaN(x):
		f.buf.WriteString("NaN")
	case math.IsInf(x, 1):
		f.buf.WriteString("Infinity")
	case math.IsInf(x, -1):
		f.buf.WriteString("-Infinity")
	case x == 0:
		f.buf.WriteString("0")
	default:
		f.buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
}

func (f *fingerprinter) writeJSONNumber(n json.Number) {
	if i, err := n.Int64(); err == nil {
		f.buf.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if x, err := n.Float64(); err == nil {
		f.writeFloat(x)
		return
	}
	f.buf.WriteString(strconv.Quote(n.String()))
}

// writeRawJSON canonicalizes embedded JSON so that key order inside a
// json.RawMessage does not leak into the fingerprint.
func (f *fingerprinter) writeRawJSON(raw []byte) {
	if len(raw) == 0 {
		f.buf.WriteString("null")
		return
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		f.buf.WriteString(strconv.Quote(string(raw)))
		return
	}
	f.write(reflect.ValueOf(decoded))
}

func (f *fingerprinter) mapKey(k reflect.Value) string {
	if k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	default:
		return f.render(k)
	}
}

func (f *fingerprinter) structPairs(v reflect.Value, pairs []pair) []pair {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)

		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				pairs = f.structPairs(inner, pairs)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if strings.Contains(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		pairs = append(pairs, pair{key: name, val: f.render(fv)})
	}
	return pairs
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
