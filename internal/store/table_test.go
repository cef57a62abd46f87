package store

import (
	"errors"
	"testing"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_InsertAndGet(t *testing.T) {
	tbl := New[float64]("t", "scenario", "country", "year")

	require.NoError(t, tbl.Insert(Key{"s1", "KEN", "2020"}, 10))
	require.NoError(t, tbl.Insert(Key{"s1", "KEN", "2021"}, 20))
	require.NoError(t, tbl.Insert(Key{"s1", "UGA", "2020"}, 30))

	rows, err := tbl.Get(Key{"s1", "KEN"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	one, err := tbl.GetOne(Key{"s1", "KEN", "2020"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, one)
}

func TestTable_GetMissingIsNotFound(t *testing.T) {
	tbl := New[float64]("t", "scenario", "country")
	_, err := tbl.Get(Key{"missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTable_DuplicateKeyFails(t *testing.T) {
	tbl := New[float64]("t", "country")
	require.NoError(t, tbl.Insert(Key{"KEN"}, 1))
	err := tbl.Insert(Key{"KEN"}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestGroupSum(t *testing.T) {
	tbl := New[float64]("t", "scenario", "country", "year")
	require.NoError(t, tbl.Insert(Key{"s1", "KEN", "2020"}, 10))
	require.NoError(t, tbl.Insert(Key{"s1", "KEN", "2021"}, 20))
	require.NoError(t, tbl.Insert(Key{"s1", "UGA", "2020"}, 5))

	grouped := GroupSum(tbl, []int{1}, func(a, b float64) float64 { return a + b })
	ken, err := grouped.GetOne(Key{"KEN"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, ken)

	uga, err := grouped.GetOne(Key{"UGA"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, uga)
}

func TestTable_PrefixAtEveryDepth(t *testing.T) {
	tbl := New[int]("t", "a", "b", "c")
	require.NoError(t, tbl.Insert(Key{"1", "2", "3"}, 42))

	for depth := 1; depth <= 3; depth++ {
		rows, err := tbl.Get(Key{"1", "2", "3"}[:depth])
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
}
