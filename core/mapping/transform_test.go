package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemDTO struct {
	ID       int
	Title    string
	Score    int32
	Note     *string
	Label    string
	Revision int
	Secret   string
	private  string
}

type item struct {
	ID       uint
	Title    string
	Score    int64
	Note     string
	Label    *string
	Revision string
	Secret   string
	Missing  bool
	private  string
}

func TestFieldCopy_Plan(t *testing.T) {
	fc, err := NewFieldCopy[itemDTO, *item](Ignore("Secret"))
	require.NoError(t, err)

	got := map[string]Compatibility{}
	for _, r := range fc.Rules() {
		got[r.Name] = r.Compatibility
	}

	assert.Equal(t, map[string]Compatibility{
		"ID":    Convertible,
		"Title": Identical,
		"Score": Convertible,
		"Note":  Dereference,
		"Label": Wrap,
	}, got)
	assert.ElementsMatch(t, []string{"Revision", "Missing"}, fc.Skipped())
}

func TestFieldCopy_CreateAndMerge(t *testing.T) {
	ctx := context.Background()
	fc := MustFieldCopy[itemDTO, *item](Ignore("Secret"))
	note := "n"

	created, err := fc.Create(ctx, itemDTO{ID: 3, Title: "New", Score: 9, Note: &note, Label: "l", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), created.ID)
	assert.Equal(t, "New", created.Title)
	assert.Equal(t, int64(9), created.Score)
	assert.Equal(t, "n", created.Note)
	require.NotNil(t, created.Label)
	assert.Equal(t, "l", *created.Label)
	assert.Empty(t, created.Secret)

	existing := &item{ID: 3, Title: "Old", Note: "keep?", Secret: "kept"}
	merged, err := fc.Merge(ctx, itemDTO{ID: 3, Title: "Updated"}, existing)
	require.NoError(t, err)
	assert.Same(t, existing, merged, "pointer destinations are updated in place")
	assert.Equal(t, "Updated", existing.Title)
	assert.Empty(t, existing.Note, "nil source pointer clears the field")
	assert.Equal(t, "kept", existing.Secret)

	_, err = fc.Merge(ctx, itemDTO{}, nil)
	assert.Error(t, err)
}

type narrowDTO struct {
	Count int64
	Ratio float64
	Size  uint64
	Delta int
	Limit *int64
	Level int
}

type narrow struct {
	Count int8
	Ratio int
	Size  int32
	Delta uint
	Limit int16
	Level *uint8
}

// TestFieldCopy_NumericRange tests that values which do not survive a numeric conversion fail the copy.
func TestFieldCopy_NumericRange(t *testing.T) {
	ctx := context.Background()
	fc := MustFieldCopy[narrowDTO, *narrow]()
	limit := int64(-7)

	out, err := fc.Create(ctx, narrowDTO{Count: -128, Ratio: 3, Size: 1 << 20, Delta: 5, Limit: &limit, Level: 255})
	require.NoError(t, err)
	assert.Equal(t, &narrow{Count: -128, Ratio: 3, Size: 1 << 20, Delta: 5, Limit: -7, Level: out.Level}, out)
	require.NotNil(t, out.Level)
	assert.Equal(t, uint8(255), *out.Level)

	big := int64(1 << 40)
	tests := []struct {
		name  string
		src   narrowDTO
		field string
	}{
		{name: "int overflow", src: narrowDTO{Count: 200}, field: "Count"},
		{name: "fraction", src: narrowDTO{Ratio: 1.5}, field: "Ratio"},
		{name: "unsigned overflow", src: narrowDTO{Size: 1 << 40}, field: "Size"},
		{name: "negative to unsigned", src: narrowDTO{Delta: -1}, field: "Delta"},
		{name: "dereferenced overflow", src: narrowDTO{Limit: &big}, field: "Limit"},
		{name: "wrapped overflow", src: narrowDTO{Level: 256}, field: "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fc.Create(ctx, tt.src)
			assert.ErrorIs(t, err, ErrLossyConversion)
			assert.ErrorContains(t, err, "field "+tt.field)
		})
	}

	t.Run("merge leaves earlier fields set", func(t *testing.T) {
		existing := &narrow{Count: 1, Ratio: 9}
		_, err := fc.Merge(ctx, narrowDTO{Count: 2, Ratio: 0.5}, existing)
		assert.ErrorIs(t, err, ErrLossyConversion)
		assert.Equal(t, int8(2), existing.Count)
		assert.Equal(t, 9, existing.Ratio)
	})
}

func TestFieldCopy_FloatNarrowing(t *testing.T) {
	type wide struct{ V float64 }
	type slim struct{ V float32 }
	fc := MustFieldCopy[wide, slim]()

	out, err := fc.Create(context.Background(), wide{V: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, out.V, 1e-7)

	_, err = fc.Create(context.Background(), wide{V: 1e300})
	assert.ErrorIs(t, err, ErrLossyConversion)
}

func TestFieldCopy_ValueDestination(t *testing.T) {
	fc := MustFieldCopy[*itemDTO, item]()

	out, err := fc.Merge(context.Background(), &itemDTO{Title: "v"}, item{Title: "old", Missing: true})
	require.NoError(t, err)
	assert.Equal(t, "v", out.Title)
	assert.True(t, out.Missing)

	_, err = fc.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewFieldCopy_RejectsNonStructs(t *testing.T) {
	_, err := NewFieldCopy[int, *item]()
	assert.Error(t, err)
	assert.Panics(t, func() { MustFieldCopy[itemDTO, []item]() })
}

func TestFuncs(t *testing.T) {
	ctx := context.Background()
	f := Funcs[string, *item]{
		CreateFunc: func(_ context.Context, src string) (*item, error) { return &item{Title: src}, nil },
	}

	created, err := f.Create(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", created.Title)

	_, err = f.Merge(ctx, "b", created)
	assert.Error(t, err)

	_, err = Funcs[string, *item]{}.Create(ctx, "c")
	assert.Error(t, err)
}
