package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_DropsDominatedPoint(t *testing.T) {
	points := []Point{
		{FundingFraction: 0.0, Cost: 0, Obj: 100},
		{FundingFraction: 0.2, Cost: 30, Obj: 80},
		{FundingFraction: 0.4, Cost: 50, Obj: 82},
		{FundingFraction: 0.7, Cost: 60, Obj: 60},
		{FundingFraction: 1.0, Cost: 100, Obj: 40},
	}

	filtered := Filter(points, EdgeLower)
	assert.Len(t, filtered, 4)

	costs := make([]float64, len(filtered))
	for i, p := range filtered {
		costs[i] = p.Cost
	}
	assert.Equal(t, []float64{0, 30, 60, 100}, costs)
}

func TestFilter_Idempotent(t *testing.T) {
	points := []Point{
		{FundingFraction: 0.0, Cost: 0, Obj: 100},
		{FundingFraction: 0.2, Cost: 30, Obj: 80},
		{FundingFraction: 0.4, Cost: 50, Obj: 82},
		{FundingFraction: 0.7, Cost: 60, Obj: 60},
		{FundingFraction: 1.0, Cost: 100, Obj: 40},
	}

	once := Filter(points, EdgeLower)
	twice := Filter(once, EdgeLower)
	assert.Equal(t, once, twice)
}

func TestFilter_TieBreakOnEqualCost(t *testing.T) {
	points := []Point{
		{FundingFraction: 0.0, Cost: 10, Obj: 50},
		{FundingFraction: 0.1, Cost: 10, Obj: 30}, // same cost, lower obj wins
		{FundingFraction: 1.0, Cost: 20, Obj: 10},
	}

	filtered := Filter(points, EdgeLower)
	require := assert.New(t)
	require.Len(filtered, 2)
	require.Equal(30.0, filtered[0].Obj)
}

func TestEnsureZeroFundingRetained(t *testing.T) {
	all := []Point{
		{FundingFraction: 0.0, Cost: 0, Obj: 100},
		{FundingFraction: 1.0, Cost: 100, Obj: 40},
	}
	filtered := []Point{{FundingFraction: 1.0, Cost: 100, Obj: 40}}

	out := EnsureZeroFundingRetained(filtered, all)
	assert.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].FundingFraction)
}
