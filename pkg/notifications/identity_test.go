package notifications

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     any
		want    int64
		wantErr bool
	}{
		{name: "int", raw: 42, want: 42},
		{name: "int64", raw: int64(7), want: 7},
		{name: "int32", raw: int32(3), want: 3},
		{name: "uint", raw: uint(9), want: 9},
		{name: "uint64", raw: uint64(11), want: 11},
		{name: "integral float", raw: float64(15), want: 15},
		{name: "numeric string", raw: "123", want: 123},
		{name: "numeric string with spaces", raw: " 8 ", want: 8},
		{name: "float string", raw: "42.0", want: 42},
		{name: "json number", raw: json.Number("99"), want: 99},
		{name: "zero", raw: 0, wantErr: true},
		{name: "negative", raw: -5, wantErr: true},
		{name: "negative string", raw: "-5", wantErr: true},
		{name: "fractional float", raw: 1.5, wantErr: true},
		{name: "fractional string", raw: "1.5", wantErr: true},
		{name: "empty string", raw: "", wantErr: true},
		{name: "non-numeric string", raw: "abc", wantErr: true},
		{name: "nil", raw: nil, wantErr: true},
		{name: "bool", raw: true, wantErr: true},
		{name: "slice", raw: []int{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveID(tt.raw)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRecipient)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNamespace_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, NamespaceMember.Valid())
	assert.True(t, NamespaceUser.Valid())
	assert.False(t, Namespace("").Valid())
	assert.False(t, Namespace("group").Valid())
}
