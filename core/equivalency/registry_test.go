package equivalency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	_, err := Lookup[thingDTO, *thing](reg)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.True(t, IsNotRegistered(err))
	assert.Contains(t, err.Error(), "equivalency.thingDTO -> *equivalency.thing")

	rel := idRelation(t)
	require.NoError(t, Register(reg, rel))

	got, err := Lookup[thingDTO, *thing](reg)
	assert.NoError(t, err)
	assert.Same(t, rel, got)
	assert.True(t, reg.Has(PairOf[thingDTO, *thing]()))
	assert.False(t, reg.Has(PairOf[thingDTO, thing]()), "pointer and value destinations are distinct pairs")
	assert.Equal(t, 1, reg.Len())
}

// TestRegistry_LastRegistrationWins tests overwrite semantics for duplicate pairs.
func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, RegisterExpr[thingDTO, *thing](reg, Eq(Src("ID"), Dst("ID"))))
	require.NoError(t, RegisterExpr[thingDTO, *thing](reg, Eq(Src("Title"), Dst("Title"))))

	rel, err := Lookup[thingDTO, *thing](reg)
	require.NoError(t, err)
	assert.Equal(t, "(src.Title == dst.Title)", rel.String())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := NewRegistry()

	err := Register[thingDTO, *thing](reg, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = RegisterExpr[thingDTO, *thing](reg, Lit("x"))
	assert.ErrorIs(t, err, ErrInvalidExpression)

	reg.Freeze()
	assert.True(t, reg.Frozen())

	err = Register(reg, idRelation(t))
	assert.ErrorIs(t, err, ErrRegistryFrozen)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Pairs(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterExpr[thingDTO, *thing](reg, Eq(Src("ID"), Dst("ID"))))
	require.NoError(t, RegisterExpr[owner, *owner](reg, Eq(Src("ID"), Dst("ID"))))

	pairs := reg.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "equivalency.owner -> *equivalency.owner", pairs[0].String())
	assert.Equal(t, "equivalency.thingDTO -> *equivalency.thing", pairs[1].String())
}

// TestRegistry_ConcurrentReads tests that lookups racing a registration always
// observe a complete relation.
func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Register(reg, idRelation(t)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rel, err := Lookup[thingDTO, *thing](reg)
				if assert.NoError(t, err) {
					ok, err := rel.Equivalent(thingDTO{ID: 3}, &thing{ID: 3})
					assert.NoError(t, err)
					assert.True(t, ok)
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = RegisterExpr[thingDTO, *thing](reg, And(Ne(Src("ID"), Lit(0)), Eq(Src("ID"), Dst("ID"))))
	}()

	wg.Wait()
}
