package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Snapshot
		wantErr bool
	}{
		{
			name: "two queues",
			data: `[{"queue_name":"orders","messages":3},{"queue_name":"audit","messages":0}]`,
			want: Snapshot{"orders": 3, "audit": 0},
		},
		{
			name: "later duplicate wins",
			data: `[{"queue_name":"q","messages":1},{"queue_name":"other","messages":9},{"queue_name":"q","messages":4}]`,
			want: Snapshot{"q": 4, "other": 9},
		},
		{
			name: "extra fields ignored",
			data: `[{"queue_name":"q","messages":2,"consumers":1}]`,
			want: Snapshot{"q": 2},
		},
		{name: "empty list", data: `[]`, want: Snapshot{}},
		{name: "not json", data: `[{`, wantErr: true},
		{name: "object instead of list", data: `{"queue_name":"q","messages":1}`, wantErr: true},
		{name: "missing name", data: `[{"messages":1}]`, wantErr: true},
		{name: "count is a string", data: `[{"queue_name":"q","messages":"1"}]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSnapshot([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshot_Names(t *testing.T) {
	snap := Snapshot{"b": 1, "a": 2, "c": 0}

	assert.Equal(t, []string{"a", "b", "c"}, snap.Names())
}
