package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorst(t *testing.T) {
	assert.Equal(t, StateCritical, Worst(StateOK, StateCritical, StateOK, StateWarning))
	assert.Equal(t, StateWarning, Worst(StateUnknown, StateWarning))
	assert.Equal(t, StateOK, Worst(StateOK, StateUnknown))
	assert.Equal(t, StateUnknown, Worst(StateUnknown, StateUnknown))
	assert.Equal(t, StateUnknown, Worst())
}

func TestServiceIDDisplayName(t *testing.T) {
	for _, id := range []ServiceID{
		{Kind: KindStorage},
		{Kind: KindAlerts},
		{Kind: KindVM, Name: "db: primary"},
		{Kind: KindVolume, Name: "vol0"},
	} {
		got, err := ParseServiceID(id.String())
		require.NoError(t, err, id.String())
		assert.Equal(t, id, got)
	}

	_, err := ParseServiceID("VM: ")
	assert.Error(t, err)
	_, err = ParseServiceID("Disk: /")
	assert.Error(t, err)
}

func TestSnapshotGet(t *testing.T) {
	boom := errors.New("timeout")
	snap := Snapshot{
		Samples: map[Section]RawSample{SectionLoad: {"a": "b"}},
		Errors:  map[Section]error{SectionDisk: boom},
	}

	s, err := snap.Get(SectionLoad)
	require.NoError(t, err)
	assert.Equal(t, "b", s["a"])

	_, err = snap.Get(SectionDisk)
	assert.ErrorIs(t, err, boom)

	_, err = snap.Get(SectionExec)
	assert.ErrorIs(t, err, ErrNotFetched)
}
