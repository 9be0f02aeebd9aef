package wrap

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ISOTime is a time.Time that encodes to JSON in ISO 8601 form. JSONResponse
// renders plain time.Time values the same way wherever they appear, so
// ISOTime is only needed when encoding outside of it.
type ISOTime time.Time

// MarshalJSON implements json.Marshaler.
func (t ISOTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatISO(time.Time(t)))
}

// FormatISO renders t as YYYY-MM-DDTHH:MM:SS, followed by microseconds when
// they are non-zero, followed by the UTC offset for locations other than
// UTC. Sub-microsecond precision is dropped.
func FormatISO(t time.Time) string {
	t = t.Truncate(time.Microsecond)
	layout := "2006-01-02T15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}

var (
	timeType          = reflect.TypeFor[time.Time]()
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// encodeJSON marshals v with time.Time values rendered by FormatISO.
func encodeJSON(v any) ([]byte, error) {
	w := isoWalker{seen: make(map[visit]struct{})}
	rewritten, err := w.value(reflect.ValueOf(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	b, err := marshal(rewritten)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return b, nil
}

// marshal is json.Marshal without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// visit identifies a reference value on the current path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// isoWalker rebuilds values that may hold time.Time so the encoder sees
// ISOTime instead. Values whose type cannot hold a time.Time, and values
// with their own JSON or text marshaling, are passed through as is.
type isoWalker struct {
	seen map[visit]struct{}
}

// enter records a reference on the current path and reports a cycle when
// it is already there. The returned func removes it again.
func (w isoWalker) enter(v reflect.Value) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := w.seen[key]; ok {
		return nil, fmt.Errorf("encountered a cycle via %s", v.Type())
	}
	w.seen[key] = struct{}{}
	return func() { delete(w.seen, key) }, nil
}

func (w isoWalker) value(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == timeType {
		return ISOTime(v.Interface().(time.Time)), nil //nolint:forcetypeassert // checked above
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return w.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if v.Elem().Type() != timeType && (hasOwnMarshaling(v.Type()) || !canHoldTime(v.Elem().Type())) {
			return v.Interface(), nil
		}
		leave, err := w.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		return w.value(v.Elem())
	}

	if v.CanAddr() && hasOwnMarshaling(reflect.PointerTo(v.Type())) {
		return v.Addr().Interface(), nil
	}
	if hasOwnMarshaling(v.Type()) || !canHoldTime(v.Type()) {
		return v.Interface(), nil
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := w.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		return w.mapValue(v)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := w.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		return w.elements(v)
	case reflect.Array:
		return w.elements(v)
	case reflect.Struct:
		return w.structValue(v)
	}
	return v.Interface(), nil
}

func (w isoWalker) mapValue(v reflect.Value) (any, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		elem, err := w.value(iter.Value())
		if err != nil {
			return nil, err
		}
		out[key] = elem
	}
	return out, nil
}

func (w isoWalker) elements(v reflect.Value) (any, error) {
	out := make([]any, v.Len())
	for i := range v.Len() {
		elem, err := w.value(v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

func (w isoWalker) structValue(v reflect.Value) (any, error) {
	var obj object
	for _, f := range jsonFields(v.Type()) {
		fv, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if f.omitZero && isZeroValue(fv) {
			continue
		}
		elem, err := w.value(fv)
		if err != nil {
			return nil, err
		}
		if f.quoted {
			if elem, err = quoteScalar(elem); err != nil {
				return nil, err
			}
		}
		obj = append(obj, member{name: f.name, value: elem})
	}
	return obj, nil
}

// member is one encoded struct field.
type member struct {
	name  string
	value any
}

// object keeps struct fields in declaration order, as encoding/json does.
type object []member

// MarshalJSON implements json.Marshaler.
func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(m.name)
		if err != nil {
			return nil, err
		}
		val, err := marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// quoteScalar applies the ",string" tag option.
func quoteScalar(v any) (any, error) {
	b, err := marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return json.RawMessage(b), nil
	}
	return string(b), nil
}

// jsonField is an encodable struct field after tag and promotion rules.
type jsonField struct {
	name      string
	index     []int
	tagged    bool
	omitEmpty bool
	omitZero  bool
	quoted    bool
}

// jsonFields lists the fields encoding/json would emit for t: exported
// fields and fields promoted from exported embedded structs, renamed by
// tags. Among fields sharing a name the shallowest wins, then the only
// tagged one; otherwise all of them are dropped. Fields promoted through
// unexported embedded structs are not emitted.
func jsonFields(t reflect.Type) []jsonField {
	var all []jsonField
	collectFields(t, nil, map[reflect.Type]bool{}, &all)

	byName := make(map[string][]jsonField)
	var order []string
	for _, f := range all {
		if _, ok := byName[f.name]; !ok {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], f)
	}

	out := make([]jsonField, 0, len(order))
	for _, name := range order {
		if f, ok := dominantField(byName[name]); ok {
			out = append(out, f)
		}
	}
	return out
}

func collectFields(t reflect.Type, index []int, visiting map[reflect.Type]bool, out *[]jsonField) {
	if visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		idx := append(append([]int(nil), index...), i)

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			collectFields(ft, idx, visiting, out)
			continue
		}

		f := jsonField{name: name, index: idx, tagged: name != ""}
		if f.name == "" {
			f.name = sf.Name
		}
		for opt := range strings.SplitSeq(opts, ",") {
			switch opt {
			case "omitempty":
				f.omitEmpty = true
			case "omitzero":
				f.omitZero = true
			case "string":
				f.quoted = isScalarKind(ft.Kind())
			}
		}
		*out = append(*out, f)
	}
}

func dominantField(fields []jsonField) (jsonField, bool) {
	depth := len(fields[0].index)
	for _, f := range fields[1:] {
		depth = min(depth, len(f.index))
	}
	var (
		shallow []jsonField
		tagged  []jsonField
	)
	for _, f := range fields {
		if len(f.index) != depth {
			continue
		}
		shallow = append(shallow, f)
		if f.tagged {
			tagged = append(tagged, f)
		}
	}
	switch {
	case len(shallow) == 1:
		return shallow[0], true
	case len(tagged) == 1:
		return tagged[0], true
	}
	return jsonField{}, false
}

// fieldByIndex follows index through embedded pointers, reporting false
// when one of them is nil.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func isScalarKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isZeroValue(v reflect.Value) bool {
	if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return true
		}
		return z.IsZero()
	}
	return v.IsZero()
}

func isEmptyValue(v reflect.Value) bool {
	//exhaustive:ignore
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

// hasOwnMarshaling reports whether encoding/json would defer to a method
// of t rather than walk its contents.
func hasOwnMarshaling(t reflect.Type) bool {
	return t.Implements(marshalerType) || t.Implements(textMarshalerType)
}

// canHoldTime reports whether values of t may contain a time.Time that the
// walker needs to rewrite.
func canHoldTime(t reflect.Type) bool {
	return typeHoldsTime(t, map[reflect.Type]bool{})
}

func typeHoldsTime(t reflect.Type, visiting map[reflect.Type]bool) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return true
	}
	if visiting[t] {
		return false
	}
	visiting[t] = true

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Map, reflect.Slice, reflect.Array:
		return typeHoldsTime(t.Elem(), visiting)
	case reflect.Struct:
		if hasOwnMarshaling(t) {
			return false
		}
		for i := range t.NumField() {
			if typeHoldsTime(t.Field(i).Type, visiting) {
				return true
			}
		}
	}
	return false
}

// mapKey renders a map key the way encoding/json does for the kinds it
// supports.
func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}

	//exhaustive:ignore
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type: %s", k.Type())
}
