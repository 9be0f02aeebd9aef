package wrap

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Kind is the expected JSON type of a required body field.
type Kind int

// Kinds, in the order they are listed in configuration errors.
const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindDict
)

var kindTags = [...]string{
	KindAny:    "any",
	KindString: "str",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindList:   "list",
	KindDict:   "dict",
}

// String returns the tag used to declare k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindTags) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindTags[k]
}

// ParseKind resolves a case-insensitive tag.
func ParseKind(tag string) (Kind, error) {
	lower := strings.ToLower(tag)
	for k, name := range kindTags {
		if name == lower {
			return Kind(k), nil
		}
	}
	return KindAny, &ConfigError{Tag: lower}
}

func kindNames() []string {
	return kindTags[:]
}

// Match reports whether v has exactly kind k. Values are expected in the
// shape JSON produces: string, int64 or integer json.Number, float64, bool,
// []any and map[string]any. No coercion happens: "12" is not an int and
// 1.0 is not an int.
func (k Kind) Match(v any) bool {
	switch k {
	case KindAny:
		return true
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int64, int:
			return true
		case json.Number:
			return isIntLiteral(n)
		}
		return false
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return true
		case json.Number:
			return !isIntLiteral(n)
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindList:
		_, ok := v.([]any)
		return ok
	case KindDict:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// Requirement declares a body key that must be present with a given kind.
type Requirement struct {
	Kind Kind
	Key  string
}

// ParseRequirement parses "key" or "type:key". Only the first colon splits,
// so "str:a:b" requires key "a:b".
func ParseRequirement(spec string) (Requirement, error) {
	tag, key, ok := strings.Cut(spec, ":")
	if !ok {
		return Requirement{Kind: KindAny, Key: spec}, nil
	}
	kind, err := ParseKind(tag)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Kind: kind, Key: key}, nil
}

// ParseRequirements parses every spec, stopping at the first invalid tag.
func ParseRequirements(specs ...string) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(specs))
	for _, spec := range specs {
		req, err := ParseRequirement(spec)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Check validates body against reqs. Absent keys are recorded as "missing"
// and mismatched kinds as "is not of type <tag>".
func Check(body map[string]any, reqs []Requirement) Failures {
	failures := Failures{}
	for _, req := range reqs {
		v, ok := body[req.Key]
		switch {
		case !ok:
			failures[req.Key] = "missing"
		case !req.Kind.Match(v):
			failures[req.Key] = "is not of type " + req.Kind.String()
		}
	}
	return failures
}

// VerifyJSON parses specs and checks body against them in one pass. Unlike
// Required it reports an invalid tag as an error at call time, but only
// for keys that are present in body.
func VerifyJSON(body map[string]any, specs ...string) (Failures, error) {
	failures := Failures{}
	for _, spec := range specs {
		tag, key, typed := strings.Cut(spec, ":")
		if !typed {
			key = spec
		}
		v, ok := body[key]
		if !ok {
			failures[key] = "missing"
			continue
		}
		if !typed {
			continue
		}
		kind, err := ParseKind(tag)
		if err != nil {
			return nil, err
		}
		if !kind.Match(v) {
			failures[key] = "is not of type " + kind.String()
		}
	}
	return failures, nil
}

// Required returns a JSON extractor that rejects bodies missing any of the
// declared keys. Specs are "key" or "type:key" and may be given inline or
// as a prepared slice:
//
//	wrap.Required("str:name", "int:age")(createUser)
//	wrap.Required(userFields...)(createUser)
//
// Specs are parsed immediately; an unknown tag panics with *ConfigError.
func Required(specs ...string) func(ViewHandler[map[string]any]) Handler {
	reqs, err := ParseRequirements(specs...)
	if err != nil {
		panic(err)
	}
	return func(h ViewHandler[map[string]any]) Handler {
		return JSON(func(body map[string]any, r *http.Request) (any, error) {
			if failures := Check(body, reqs); len(failures) > 0 {
				return nil, newRequestError(ErrRequirements, failures)
			}
			return h(body, r)
		})
	}
}
