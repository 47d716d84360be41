package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	list := List()
	require.NotEmpty(t, list)
	assert.Equal(t, AllSectors, list[0])
	assert.Contains(t, list, "Real Estate")
	assert.Contains(t, list, "Manufacturing")
}

func TestList_ReturnsCopy(t *testing.T) {
	list := List()
	list[0] = "mutated"
	assert.Equal(t, AllSectors, List()[0])
}

func TestDefault(t *testing.T) {
	assert.Equal(t, AllSectors, Default())
	assert.True(t, Valid(Default()))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("Healthcare & Clinics"))
	assert.True(t, Valid(AllSectors))
	assert.False(t, Valid("healthcare & clinics"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("Aerospace"))
}
