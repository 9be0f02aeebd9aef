package wrap_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/wrap"
)

func TestError(t *testing.T) {
	t.Parallel()

	err := wrap.Error(http.StatusNotFound, "not found")
	assert.EqualError(t, err, "not found")

	var sc wrap.StatusCoder
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, http.StatusNotFound, sc.StatusCode())
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := wrap.Errorf(http.StatusBadRequest, "invalid %s", "email")
	assert.EqualError(t, err, "invalid email")
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err    error
		expect int
	}{
		"with StatusCoder": {
			err:    wrap.Error(http.StatusForbidden, "forbidden"),
			expect: http.StatusForbidden,
		},
		"without StatusCoder": {
			err:    errors.New("plain error"),
			expect: http.StatusInternalServerError,
		},
		"request error defaults to 500": {
			err:    &wrap.RequestError{Err: wrap.ErrNotJSON},
			expect: http.StatusInternalServerError,
		},
		"request error with status": {
			err:    &wrap.RequestError{Err: wrap.ErrNotJSON, Status: http.StatusBadRequest},
			expect: http.StatusBadRequest,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, wrap.ErrorStatus(tc.err))
		})
	}
}

func TestRequestError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *wrap.RequestError
		want string
	}{
		"without failures": {
			err:  &wrap.RequestError{Err: wrap.ErrNotObject},
			want: "Request body is not a JSON object",
		},
		"failures sorted by key": {
			err: &wrap.RequestError{Err: wrap.ErrRequirements, Failures: wrap.Failures{
				"name": "missing",
				"age":  "is not of type int",
			}},
			want: `Some keys did not meet the requirements: {"age": "is not of type int", "name": "missing"}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.EqualError(t, tc.err, tc.want)
			assert.ErrorIs(t, tc.err, tc.err.Err)
		})
	}
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	err := &wrap.ConfigError{Tag: "weird"}
	assert.EqualError(t, err, "weird is not a valid type. The valid types are: any str int float bool list dict.")
}
