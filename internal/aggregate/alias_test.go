package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRule_Default(t *testing.T) {
	r, err := NewAliasRule(DefaultDistrictAlias)
	require.NoError(t, err)

	cases := map[string]string{
		"Eastern suurpiiri":      "Eastern",
		"eteläinen SUURPIIRI":    "eteläinen",
		"Harbour district":       "Harbour",
		"North-East   district":  "North-East",
	}
	for name, want := range cases {
		got, ok := r.District(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"Eastern", "suurpiiri", "Districts of Eastern", "8 01 Renovation"} {
		_, ok := r.District(name)
		assert.False(t, ok, name)
	}
}

func TestAliasRule_RequiresNamedGroup(t *testing.T) {
	_, err := NewAliasRule(`^(.+) area$`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "district")

	_, err = NewAliasRule(`(`)
	assert.Error(t, err)
}

func TestAliasRule_EmptyNeverMatches(t *testing.T) {
	r, err := NewAliasRule("", "  ")
	require.NoError(t, err)
	_, ok := r.District("Eastern suurpiiri")
	assert.False(t, ok)

	var nilRule *AliasRule
	_, ok = nilRule.District("Eastern suurpiiri")
	assert.False(t, ok)
}

func TestAliasRule_Custom(t *testing.T) {
	r, err := NewAliasRule(`^Area (?P<district>\w+)$`)
	require.NoError(t, err)
	d, ok := r.District("Area North")
	assert.True(t, ok)
	assert.Equal(t, "North", d)
}
