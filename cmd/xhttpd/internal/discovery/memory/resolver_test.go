package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver(t *testing.T) {
	tests := []struct {
		target  string
		want    string
		wantErr bool
	}{
		{target: "example.com", want: "example.com:80"},
		{target: "example.com:8080", want: "example.com:8080"},
		{target: "127.0.0.1:9000", want: "127.0.0.1:9000"},
		{target: " upstream:81 ", want: "upstream:81"},
		{target: "[::1]:8443", want: "[::1]:8443"},
		{target: "[::1]", want: "[::1]:80"},
		{target: "", wantErr: true},
		{target: ":8080", wantErr: true},
		{target: "example.com:http", wantErr: true},
		{target: "example.com:70000", wantErr: true},
		{target: "::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			r, err := NewResolver(tt.target)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			addr, err := r.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}
}
