package command

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

const (
	tagKey      = "tag"
	contentsKey = "contents"
)

var (
	ErrMalformedJSON  = errors.New("malformed json")
	ErrUnknownCommand = errors.New("unrecognized command")
)

// Command is a value of one of the variants registered in a Registry.
type Command any

// DecodeError reports why a payload could not be decoded.
// Reason is ErrMalformedJSON or ErrUnknownCommand.
type DecodeError struct {
	Reason error
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return e.Reason.Error() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func unrecognized(format string, args ...any) error {
	return &DecodeError{Reason: ErrUnknownCommand, Err: fmt.Errorf(format, args...)}
}

type field struct {
	name     string
	typ      reflect.Type
	required bool
}

type variant struct {
	tag    string
	typ    reflect.Type
	record bool
	fields []field
}

// Registry holds the closed set of command variants shared with the client.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[string]*variant
	byType map[reflect.Type]*variant
}

func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]*variant),
		byType: make(map[reflect.Type]*variant),
	}
}

// Register adds T as a variant tagged with its Go type name.
func Register[T any](r *Registry) error {
	t := reflect.TypeFor[T]()
	return r.add(t.Name(), t)
}

// RegisterAs adds T as a variant with an explicit tag.
func RegisterAs[T any](r *Registry, tag string) error {
	return r.add(tag, reflect.TypeFor[T]())
}

func (r *Registry) add(tag string, t reflect.Type) error {
	if tag == "" {
		return fmt.Errorf("command: variant %s needs a tag", t)
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return fmt.Errorf("command: variant %s must be a plain value type", t)
	}

	v := &variant{tag: tag, typ: t}
	if t.Kind() == reflect.Struct {
		v.record = true
		v.fields = structFields(t, false)
		for _, f := range v.fields {
			if f.name == tagKey {
				return fmt.Errorf("command: variant %s declares reserved field %q", t, tagKey)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byTag[tag]; ok {
		return fmt.Errorf("command: tag %q already registered for %s", tag, prev.typ)
	}
	if prev, ok := r.byType[t]; ok {
		return fmt.Errorf("command: type %s already registered as %q", t, prev.tag)
	}
	r.byTag[tag] = v
	r.byType[t] = v
	return nil
}

// structFields lists the JSON object keys of t the way encoding/json names them.
func structFields(t reflect.Type, optional bool) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if sf.Anonymous && name == "" {
			ft := sf.Type
			embeddedPtr := ft.Kind() == reflect.Pointer
			if embeddedPtr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				out = append(out, structFields(ft, optional || embeddedPtr)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		omit := hasOption(opts, "omitempty") || hasOption(opts, "omitzero")
		out = append(out, field{
			name:     name,
			typ:      sf.Type,
			required: !optional && !omit,
		})
	}
	return out
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// Decode parses a wire payload into the registered variant it names.
func (r *Registry) Decode(data []byte) (Command, error) {
	if !json.Valid(data) {
		return nil, &DecodeError{Reason: ErrMalformedJSON}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, unrecognized("expected a json object")
	}

	rawTag, ok := obj[tagKey]
	if !ok {
		return nil, unrecognized("missing %q", tagKey)
	}
	var tag string
	if err := json.Unmarshal(rawTag, &tag); err != nil {
		return nil, unrecognized("%q must be a string", tagKey)
	}

	r.mu.RLock()
	v, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, unrecognized("unknown tag %q", tag)
	}

	delete(obj, tagKey)
	cmd, err := v.decode(obj)
	if err != nil {
		return nil, unrecognized("%s: %w", tag, err)
	}
	return cmd, nil
}

func (v *variant) decode(obj map[string]json.RawMessage) (Command, error) {
	ptr := reflect.New(v.typ)

	if !v.record {
		contents, ok := obj[contentsKey]
		if !ok {
			return nil, fmt.Errorf("missing %q", contentsKey)
		}
		for _, k := range sortedKeys(obj) {
			if k != contentsKey {
				return nil, fmt.Errorf("unexpected key %q", k)
			}
		}
		if err := checkValue(v.typ, contents, contentsKey); err != nil {
			return nil, err
		}
		if err := strictUnmarshal(contents, ptr.Interface()); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil
	}

	if err := checkObject(v.fields, obj, ""); err != nil {
		return nil, err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if err := strictUnmarshal(body, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

var (
	jsonUnmarshaler = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// checkObject applies the required, null and unknown key rules to one JSON
// object and then to every value it holds.
func checkObject(fields []field, obj map[string]json.RawMessage, path string) error {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.name] = true
		raw, present := obj[f.name]
		if !present {
			if f.required {
				return fmt.Errorf("missing field %q", path+f.name)
			}
			continue
		}
		if err := checkValue(f.typ, raw, path+f.name); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(obj) {
		if !known[k] {
			return fmt.Errorf("unexpected key %q", path+k)
		}
	}
	return nil
}

// checkValue walks raw alongside t so nested records get the same rules as
// the top level. Shape mismatches are left for the unmarshal step to report.
func checkValue(t reflect.Type, raw json.RawMessage, path string) error {
	if isNull(raw) {
		if !isNullable(t) {
			return fmt.Errorf("%q is null", path)
		}
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	pt := reflect.PointerTo(t)
	if pt.Implements(jsonUnmarshaler) || pt.Implements(textUnmarshaler) {
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		return checkObject(structFields(t, false), obj, path+".")
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil
		}
		for i, e := range elems {
			if err := checkValue(t.Elem(), e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil
		}
		for _, k := range sortedKeys(entries) {
			if err := checkValue(t.Elem(), entries[k], path+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Encode renders cmd in wire form. The tag is always the first key.
func (r *Registry) Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, errors.New("command: cannot encode nil")
	}
	t := reflect.TypeOf(cmd)

	r.mu.RLock()
	v, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("command: type %s is not registered", t)
	}

	tag, err := json.Marshal(v.tag)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"tag":`)
	buf.Write(tag)

	if !v.record {
		contents, err := json.Marshal(cmd)
		if err != nil {
			return nil, fmt.Errorf("command: encode %s: %w", v.tag, err)
		}
		buf.WriteString(`,"contents":`)
		buf.Write(contents)
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("command: encode %s: %w", v.tag, err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("command: encode %s: not a json object", v.tag)
	}
	for _, k := range sortedKeys(obj) {
		key, _ := json.Marshal(k)
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(obj[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TagOf returns the tag cmd is registered under.
func (r *Registry) TagOf(cmd Command) (string, bool) {
	if cmd == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byType[reflect.TypeOf(cmd)]
	if !ok {
		return "", false
	}
	return v.tag, true
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Variants returns the registered Go type for each tag.
func (r *Registry) Variants() map[string]reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]reflect.Type, len(r.byTag))
	for tag, v := range r.byTag {
		out[tag] = v.typ
	}
	return out
}
