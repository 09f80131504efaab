package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New("id", "premium", "id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestTable_AppendAndRead(t *testing.T) {
	tbl := MustNew("id", "premium", "region")
	require.NoError(t, tbl.Append(String("P1"), Number(100), String("North")))
	require.NoError(t, tbl.Append(String("P2"), Null(), String("South")))

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"id", "premium", "region"}, tbl.Columns())

	f, ok := tbl.Float(0, "premium")
	assert.True(t, ok)
	assert.Equal(t, 100.0, f)

	_, ok = tbl.Float(1, "premium")
	assert.False(t, ok)

	assert.True(t, tbl.Value(0, "missing").IsNull())

	err := tbl.Append(String("P3"))
	assert.ErrorIs(t, err, ErrRowWidth)
}

func TestTable_Column(t *testing.T) {
	tbl := MustNew("id", "premium")
	require.NoError(t, tbl.Append(String("P1"), Number(1)))
	require.NoError(t, tbl.Append(String("P2"), Number(2)))

	col, err := tbl.Column("premium")
	require.NoError(t, err)
	assert.Equal(t, []Value{Number(1), Number(2)}, col)

	_, err = tbl.Column("nope")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTable_AddColumn(t *testing.T) {
	tbl := MustNew("id")
	require.NoError(t, tbl.Append(String("P1")))
	require.NoError(t, tbl.Append(String("P2")))

	require.NoError(t, tbl.AddColumn("flag", []Value{String("Y"), String("N")}))
	assert.Equal(t, "N", tbl.Value(1, "flag").Text())

	assert.ErrorIs(t, tbl.AddColumn("flag", []Value{Null(), Null()}), ErrDuplicateColumn)
	assert.ErrorIs(t, tbl.AddColumn("short", []Value{Null()}), ErrRowWidth)
}

func TestTable_DedupBy(t *testing.T) {
	tests := []struct {
		name        string
		ids         []Value
		wantIDs     []string
		wantDropped int
	}{
		{
			name:        "no duplicates",
			ids:         []Value{String("A"), String("B")},
			wantIDs:     []string{"A", "B"},
			wantDropped: 0,
		},
		{
			name:        "first occurrence wins",
			ids:         []Value{String("A"), String("B"), String("A"), String("A")},
			wantIDs:     []string{"A", "B"},
			wantDropped: 2,
		},
		{
			name:        "numeric ids",
			ids:         []Value{Number(7), Number(7), Number(8)},
			wantIDs:     []string{"7", "8"},
			wantDropped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := MustNew("id", "seq")
			for i, id := range tt.ids {
				require.NoError(t, tbl.Append(id, Number(float64(i))))
			}

			out, dropped, err := tbl.DedupBy("id")
			require.NoError(t, err)
			assert.Equal(t, tt.wantDropped, dropped)

			var got []string
			for r := 0; r < out.Len(); r++ {
				got = append(got, out.Value(r, "id").Text())
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestTable_DedupKeepsFirstRowValues(t *testing.T) {
	tbl := MustNew("id", "premium")
	require.NoError(t, tbl.Append(String("A"), Number(1)))
	require.NoError(t, tbl.Append(String("A"), Number(99)))

	out, _, err := tbl.DedupBy("id")
	require.NoError(t, err)
	f, _ := out.Float(0, "premium")
	assert.Equal(t, 1.0, f)

	_, _, err = tbl.DedupBy("policy")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTable_SelectIsIndependent(t *testing.T) {
	tbl := MustNew("id")
	require.NoError(t, tbl.Append(String("A")))
	require.NoError(t, tbl.Append(String("B")))

	sub := tbl.Select([]int{1})
	require.NoError(t, sub.AddColumn("x", []Value{Number(1)}))

	assert.False(t, tbl.Has("x"))
	assert.Equal(t, "B", sub.Value(0, "id").Text())
}
