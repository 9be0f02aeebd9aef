package wrap_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/wrap"
)

func TestFormatISO(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   time.Time
		want string
	}{
		"whole seconds in UTC": {
			in:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "2024-01-01T00:00:00",
		},
		"microseconds": {
			in:   time.Date(2024, 1, 1, 12, 30, 5, 123456789, time.UTC),
			want: "2024-01-01T12:30:05.123456",
		},
		"offset": {
			in:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
			want: "2024-06-01T08:00:00+02:00",
		},
		"negative offset with fraction": {
			in:   time.Date(2024, 6, 1, 8, 0, 0, 500000000, time.FixedZone("", -5*60*60)),
			want: "2024-06-01T08:00:00.500000-05:00",
		},
		"sub-microsecond fraction is dropped": {
			in:   time.Date(2024, 1, 1, 0, 0, 0, 5, time.UTC),
			want: "2024-01-01T00:00:00",
		},
		"sub-microsecond remainder is truncated": {
			in:   time.Date(2024, 1, 1, 0, 0, 0, 1999, time.UTC),
			want: "2024-01-01T00:00:00.000001",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, wrap.FormatISO(tc.in))
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	type event struct {
		Name string       `json:"name"`
		At   wrap.ISOTime `json:"at"`
	}
	type stamped struct {
		At time.Time `json:"at"`
	}
	type Audit struct {
		Created time.Time `json:"created"`
	}
	type record struct {
		ID      int        `json:"id,string"`
		Name    string     `json:"name,omitempty"`
		Secret  string     `json:"-"`
		Deleted *time.Time `json:"deleted,omitempty"`
		Updated time.Time  `json:"updated,omitzero"`
		Audit
		Untagged time.Time
		internal time.Time
	}

	tests := map[string]struct {
		in   any
		want string
	}{
		"bare time": {
			in:   at,
			want: `"2024-01-01T00:00:00"`,
		},
		"time in map": {
			in:   map[string]any{"created": at, "n": 1},
			want: `{"created":"2024-01-01T00:00:00","n":1}`,
		},
		"time in typed map": {
			in:   map[string]time.Time{"created": at},
			want: `{"created":"2024-01-01T00:00:00"}`,
		},
		"time in nested slice": {
			in:   map[string]any{"times": []any{at, []time.Time{at}}},
			want: `{"times":["2024-01-01T00:00:00",["2024-01-01T00:00:00"]]}`,
		},
		"pointer to time": {
			in:   &at,
			want: `"2024-01-01T00:00:00"`,
		},
		"struct field": {
			in:   event{Name: "launch", At: wrap.ISOTime(at)},
			want: `{"name":"launch","at":"2024-01-01T00:00:00"}`,
		},
		"empty string": {
			in:   "",
			want: `""`,
		},
		"nil": {
			in:   nil,
			want: `null`,
		},
		"int keyed map": {
			in:   map[int]any{2: at},
			want: `{"2":"2024-01-01T00:00:00"}`,
		},
		"struct with time field": {
			in:   stamped{At: at},
			want: `{"at":"2024-01-01T00:00:00"}`,
		},
		"pointer to struct with time field": {
			in:   &stamped{At: at},
			want: `{"at":"2024-01-01T00:00:00"}`,
		},
		"struct in map": {
			in:   map[string]any{"event": stamped{At: at}},
			want: `{"event":{"at":"2024-01-01T00:00:00"}}`,
		},
		"slice of structs": {
			in:   []stamped{{At: at}},
			want: `[{"at":"2024-01-01T00:00:00"}]`,
		},
		"struct tags and embedding": {
			in:   record{ID: 7, Secret: "x", Audit: Audit{Created: at}, Untagged: at, internal: at},
			want: `{"id":"7","created":"2024-01-01T00:00:00","Untagged":"2024-01-01T00:00:00"}`,
		},
		"struct optional fields set": {
			in:   record{ID: 1, Name: "n", Deleted: &at, Updated: at, Audit: Audit{Created: at}, Untagged: at},
			want: `{"id":"1","name":"n","deleted":"2024-01-01T00:00:00","updated":"2024-01-01T00:00:00","created":"2024-01-01T00:00:00","Untagged":"2024-01-01T00:00:00"}`,
		},
		"empty struct": {
			in:   struct{}{},
			want: `{}`,
		},
		"html is not escaped": {
			in:   map[string]string{"q": "<a&b>"},
			want: `{"q":"<a&b>"}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := wrap.EncodeJSON(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestEncodeJSON_struct_matches_map(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 10, 11, 12, 345678000, time.FixedZone("", 90*60))
	type stamped struct {
		At time.Time `json:"at"`
	}

	fromStruct, err := wrap.EncodeJSON(stamped{At: at})
	require.NoError(t, err)
	fromMap, err := wrap.EncodeJSON(map[string]any{"at": at})
	require.NoError(t, err)

	assert.Equal(t, `{"at":"2024-03-09T10:11:12.345678+01:30"}`, string(fromStruct))
	assert.Equal(t, string(fromMap), string(fromStruct))
}

func TestEncodeJSON_shared_values_are_not_cycles(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shared := map[string]any{"at": at}

	got, err := wrap.EncodeJSON([]any{shared, shared})
	require.NoError(t, err)
	assert.Equal(t, `[{"at":"2024-01-01T00:00:00"},{"at":"2024-01-01T00:00:00"}]`, string(got))
}

type node struct {
	At   time.Time `json:"at"`
	Next *node     `json:"next,omitempty"`
}

func TestEncodeJSON_unrepresentable(t *testing.T) {
	t.Parallel()

	selfMap := map[string]any{}
	selfMap["self"] = selfMap

	selfSlice := []any{nil}
	selfSlice[0] = selfSlice

	loop := &node{}
	loop.Next = loop

	tests := map[string]any{
		"channel":        make(chan int),
		"func":           func() {},
		"nan":            map[string]any{"x": math.NaN()},
		"nan in struct":  struct{ X float64 }{X: math.NaN()},
		"cyclic map":     selfMap,
		"cyclic slice":   selfSlice,
		"cyclic pointer": loop,
		"nested cycle":   map[string]any{"outer": []any{selfMap}},
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := wrap.EncodeJSON(in)
			require.ErrorIs(t, err, wrap.ErrEncode)
		})
	}
}
