package dataset

import (
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{raw: "", want: Null()},
		{raw: "   ", want: Null()},
		{raw: "12.5", want: Number(12.5)},
		{raw: " -3 ", want: Number(-3)},
		{raw: "North", want: String("North")},
		{raw: "NaN", want: String("NaN")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.True(t, tt.want.Equal(Parse(tt.raw)), "got %v", Parse(tt.raw))
		})
	}
}

func TestNumber_NaNIsNull(t *testing.T) {
	assert.True(t, Number(math.NaN()).IsNull())
}

func TestValue_Float(t *testing.T) {
	f, ok := String(" 4.25").Float()
	assert.True(t, ok)
	assert.Equal(t, 4.25, f)

	_, ok = String("abc").Float()
	assert.False(t, ok)

	_, ok = Null().Float()
	assert.False(t, ok)
}

func TestCompare_NaturalOrder(t *testing.T) {
	values := []Value{
		String("b"), Null(), Number(10), String("a"), Number(2), Null(), Number(-1),
	}
	sort.SliceStable(values, func(i, j int) bool { return Compare(values[i], values[j]) < 0 })

	got := make([]string, len(values))
	for i, v := range values {
		got[i] = v.String()
	}
	want := []string{"-1", "2", "10", "a", "b", "<null>", "<null>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "1.5", Number(1.5).Text())
	assert.Equal(t, "100", Number(100).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, "x", String("x").Text())
}
