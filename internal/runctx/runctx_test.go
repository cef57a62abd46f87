package runctx

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_AssignsUniqueID(t *testing.T) {
	a := New(zerolog.Nop())
	b := New(zerolog.Nop())
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.StartedAt.IsZero())
}

func TestSnapshot_ReportsElapsedTime(t *testing.T) {
	r := New(zerolog.Nop())
	d := r.Snapshot(context.Background())
	assert.Equal(t, r.ID, d.RunID)
	assert.GreaterOrEqual(t, d.Elapsed.Nanoseconds(), int64(0))
}

func TestDone_ReturnsDiagnostics(t *testing.T) {
	r := New(zerolog.Nop())
	d := r.Done(context.Background())
	assert.Equal(t, r.ID, d.RunID)
}
