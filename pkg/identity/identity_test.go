package identity

import (
	"testing"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	args := types.Args{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}

	first := Hash(args)
	second := Hash(types.Args{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}})

	assert.Equal(t, first, second)
	assert.Len(t, first, TokenLength)
	assert.True(t, Valid(first))
}

func TestHashDistinguishesArgumentSets(t *testing.T) {
	tests := []struct {
		name string
		a    types.Args
		b    types.Args
	}{
		{
			name: "different value",
			a:    types.Args{{Key: "x", Value: "1"}},
			b:    types.Args{{Key: "x", Value: "2"}},
		},
		{
			name: "order matters",
			a:    types.Args{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}},
			b:    types.Args{{Key: "y", Value: "2"}, {Key: "x", Value: "1"}},
		},
		{
			name: "no concatenation collision",
			a:    types.Args{{Key: "ab", Value: "c"}},
			b:    types.Args{{Key: "a", Value: "bc"}},
		},
		{
			name: "empty vs empty pair",
			a:    types.Args{},
			b:    types.Args{{Key: "", Value: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Hash(tt.a), Hash(tt.b))
		})
	}
}

func TestHashNilAndEmptyAgree(t *testing.T) {
	assert.Equal(t, Hash(nil), Hash(types.Args{}))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "my_custom_job", want: "my_custom_job"},
		{in: "<script>alert(1)</script>job", want: "alert(1)job"},
		{in: " padded\t", want: "padded"},
		{in: "line\nbreak\x00", want: "linebreak"},
		{in: "<b>", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("ABCDEF0123456789ABCDEF0123456789"))
	assert.False(t, Valid("0123"))
	assert.False(t, Valid("0123456789abcdef0123456789abcdeg"))
	assert.True(t, Valid("0123456789abcdef0123456789abcdef"))
}
