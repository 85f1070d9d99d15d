package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerodha/snmp-lama/pkg/models"
)

const (
	nameCol  = "1.3.6.1.4.1.458.115.1.17.1.3"
	stateCol = "1.3.6.1.4.1.458.115.1.17.1.6"
)

func TestReconstructKeepsRowsWithoutState(t *testing.T) {
	sample := models.RawSample{
		"." + nameCol + ".3":  "db1",
		"." + stateCol + ".3": "2",
		"." + nameCol + ".7":  "db2",
	}

	tbl := Reconstruct(sample, nameCol, stateCol)
	rows := tbl.Entities(nameCol)
	require.Len(t, rows, 2)

	assert.Equal(t, "3", rows[0].Index)
	state, ok := rows[0].Get(stateCol)
	assert.True(t, ok)
	assert.Equal(t, "2", state)

	assert.Equal(t, "7", rows[1].Index)
	name, _ := rows[1].Get(nameCol)
	assert.Equal(t, "db2", name)
	_, ok = rows[1].Get(stateCol)
	assert.False(t, ok)
}

func TestReconstructOrdersIndexesNumerically(t *testing.T) {
	sample := models.RawSample{
		"1.3.6.1.2.1.2.2.1.2.10": "eth9",
		"1.3.6.1.2.1.2.2.1.2.2":  "eth1",
		"1.3.6.1.2.1.2.2.1.2.1":  "lo",
	}
	rows := Reconstruct(sample, "1.3.6.1.2.1.2.2.1.2").Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "2", "10"}, []string{rows[0].Index, rows[1].Index, rows[2].Index})
}

func TestReconstructMultiArcIndex(t *testing.T) {
	sample := models.RawSample{
		"1.3.6.1.2.1.4.21.1.1.10.0.0.0":   "10.0.0.0",
		"1.3.6.1.2.1.4.21.1.1.0.0.0.0":    "0.0.0.0",
		"1.3.6.1.2.1.4.21.1.1.192.168.1.0": "192.168.1.0",
	}
	tbl := Reconstruct(sample, "1.3.6.1.2.1.4.21.1.1")
	v, ok := tbl.Lookup("192.168.1.0", "1.3.6.1.2.1.4.21.1.1")
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.0", v)
	assert.Equal(t, "0.0.0.0", tbl.Rows()[0].Index)
}

func TestReconstructIgnoresForeignKeys(t *testing.T) {
	sample := models.RawSample{
		nameCol + ".1":       "vm1",
		nameCol + "0.1":      "not a column member",
		"1.3.6.1.2.1.1.1.0": "Linux",
		nameCol:              "no index",
	}
	tbl := Reconstruct(sample, nameCol)
	assert.Equal(t, 1, tbl.Len())
}

func TestReconstructLongestColumnWins(t *testing.T) {
	sample := models.RawSample{
		"1.3.6.1.4.1.2021.50.2.1":   "check",
		"1.3.6.1.4.1.2021.50.101.1": "fine",
	}
	tbl := Reconstruct(sample, "1.3.6.1.4.1.2021.50", "1.3.6.1.4.1.2021.50.101")
	v, ok := tbl.Lookup("1", "1.3.6.1.4.1.2021.50.101")
	assert.True(t, ok)
	assert.Equal(t, "fine", v)
}

func TestReconstructCollisionLastWriteWins(t *testing.T) {
	sample := models.RawSample{
		"." + nameCol + ".4": "first",
		nameCol + ".4":       "second",
	}
	tbl := Reconstruct(sample, nameCol)
	v, _ := tbl.Lookup("4", nameCol)
	// ".1.3..." sorts before "1.3..." for equal normalized keys.
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, tbl.Collisions())
}

func TestEntitiesSkipsEmptyNames(t *testing.T) {
	sample := models.RawSample{
		nameCol + ".1":  "",
		stateCol + ".1": "3",
		nameCol + ".2":  "vm2",
		stateCol + ".5": "1",
	}
	rows := Reconstruct(sample, nameCol, stateCol).Entities(nameCol)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].Index)
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare("1.3.6.1.2", "1.3.6.1.10"))
	assert.Positive(t, Compare("1.3.6.2", "1.3.6.1.9"))
	assert.Negative(t, Compare("1.3.6", "1.3.6.1"))
	assert.Zero(t, Compare("1.3.6.1", "1.3.6.1"))
}
