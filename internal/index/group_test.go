package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusItems() []*Item {
	return CreateItems([]Message{
		{ID: 1, Payload: "status: open"},
		{ID: 2, Payload: "status: closed"},
		{ID: 3, Payload: "status: open"},
		{ID: 4, Payload: "no match here"},
	})
}

func TestGroupKey(t *testing.T) {
	items := CreateItems([]Message{{
		ID:      1,
		Payload: "type: payload-side",
		Headers: []Header{{Name: "type", Value: ScalarValue("header-side")}},
	}})

	key, ok := GroupKey(items[0], "TYPE")
	assert.True(t, ok)
	assert.Equal(t, "type: header-side\n", key, "headers are searched before the payload")

	_, ok = GroupKey(items[0], "absent")
	assert.False(t, ok)

	key, ok = GroupKey(items[0], "")
	assert.True(t, ok)
	assert.Equal(t, "", key)
}

func TestGroupItems(t *testing.T) {
	for _, mode := range []GroupMode{GroupByLine, GroupByScan} {
		t.Run(mode.String(), func(t *testing.T) {
			items := statusItems()

			groups := GroupItems(items, "status", mode)

			require.Len(t, groups, 3)
			assert.Equal(t, "status: open\n", groups[0].Key)
			assert.True(t, groups[0].Matched)
			assert.Equal(t, []*Item{items[0], items[2]}, groups[0].Items)

			assert.Equal(t, "status: closed\n", groups[1].Key)
			assert.Equal(t, []*Item{items[1]}, groups[1].Items)

			assert.False(t, groups[2].Matched, "unmatched group comes last")
			assert.Equal(t, []*Item{items[3]}, groups[2].Items)
		})
	}
}

func TestGroupItems_EmptySelectorIsOneGroup(t *testing.T) {
	items := statusItems()

	groups := GroupItems(items, "", GroupByLine)

	require.Len(t, groups, 1)
	assert.True(t, groups[0].Matched)
	assert.Equal(t, items, groups[0].Items)
}

func TestParseGroupMode(t *testing.T) {
	tests := []struct {
		in      string
		want    GroupMode
		wantErr bool
	}{
		{"", GroupByLine, false},
		{"line", GroupByLine, false},
		{"scan", GroupByScan, false},
		{"fuzzy", GroupByLine, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGroupMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelection_SelectGroup(t *testing.T) {
	items := statusItems()
	sel := Selection{}

	sel.SelectGroup(items, items[0], "status", GroupByLine)

	assert.Equal(t, []*Item{items[0], items[2]}, sel.Ordered(items))

	sel.SelectGroup(items, items[0], "status", GroupByLine)
	assert.Len(t, sel, 2, "selecting the same group twice changes nothing")

	sel.SelectGroup(items, items[3], "status", GroupByLine)
	assert.Equal(t, []*Item{items[0], items[2], items[3]}, sel.Ordered(items))
}

func TestSelection_ToggleAndClear(t *testing.T) {
	items := statusItems()
	sel := Selection{}

	sel.Toggle(items[1])
	assert.True(t, sel.Has(items[1]))
	sel.Toggle(items[1])
	assert.False(t, sel.Has(items[1]))

	sel.Add(items[0])
	sel.Clear()
	assert.Empty(t, sel)
}

func TestTargets(t *testing.T) {
	items := statusItems()

	assert.Equal(t, []uint64{1, 2, 3, 4}, Targets(Selection{}, items), "empty selection targets everything")

	sel := Selection{}
	sel.Add(items[3])
	sel.Add(items[1])
	assert.Equal(t, []uint64{2, 4}, Targets(sel, items), "targets follow list order")
	assert.Equal(t, []*Item{items[1], items[3]}, TargetItems(sel, items))
}
