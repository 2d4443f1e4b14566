package savegame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeTypedGettersWithDefaults(t *testing.T) {
	tree := NewTree()
	tree.SetString("a.b#name", "tractor")
	tree.SetInt("a.b#count", 3)
	tree.SetFloat("a.b#price", 1234.5678912)
	tree.SetBool("a.b#active", true)

	assert.Equal(t, "tractor", tree.String("a.b#name", ""))
	assert.Equal(t, 3, tree.Int("a.b#count", 0))
	assert.InDelta(t, 1234.567891, tree.Float("a.b#price", 0), 1e-6)
	assert.True(t, tree.Bool("a.b#active", false))

	assert.Equal(t, "none", tree.String("a.b#missing", "none"))
	assert.Equal(t, 7, tree.Int("a.b#missing", 7))
	assert.Equal(t, 1.5, tree.Float("a.b#missing", 1.5))
	assert.True(t, tree.Bool("a.b#missing", true))
}

func TestTreeBadValuesFallBackToDefault(t *testing.T) {
	tree := NewTree()
	tree.SetString("x#n", "not-a-number")
	assert.Equal(t, 5, tree.Int("x#n", 5))
	assert.Equal(t, 2.5, tree.Float("x#n", 2.5))
	assert.False(t, tree.Bool("x#n", false))

	tree.SetFloat("x#f", 12.9)
	assert.Equal(t, 12, tree.Int("x#f", 0))
}

func TestTreeChildrenStopsAtGap(t *testing.T) {
	tree := NewTree()
	root := "usedPlus.searches"
	tree.SetInt(Attr(Child(root, "farm", 0), "farmId"), 1)
	tree.SetInt(Attr(Child(Child(root, "farm", 1), "search", 0), "id"), 9)
	tree.SetInt(Attr(Child(root, "farm", 3), "farmId"), 4)

	farms := tree.Children(root, "farm")
	require.Len(t, farms, 2)
	assert.Equal(t, "usedPlus.searches.farm(0)", farms[0])
	assert.Equal(t, "usedPlus.searches.farm(1)", farms[1])

	assert.True(t, tree.Has("usedPlus.searches.farm(1)"))
	assert.False(t, tree.Has("usedPlus.searches.farm(2)"))
	// prefix of another index must not match
	assert.False(t, tree.Has("usedPlus.searches.farm"))
}

func TestTreeEntriesSorted(t *testing.T) {
	tree := NewTree()
	tree.SetInt("b#x", 1)
	tree.SetInt("a#x", 2)
	entries := tree.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a#x", entries[0].Key)
	assert.Equal(t, KindInt, entries[0].Kind)
}

func TestTreeChildrenManyAndLookalikes(t *testing.T) {
	tree := NewTree()
	root := "usedPlus.listings"
	for i := 0; i < 500; i++ {
		tree.SetInt(Attr(Child(root, "listing", i), "id"), i)
		tree.SetString(Attr(Child(Child(root, "listing", i), "config", 0), "key"), "wheels")
	}
	tree.SetInt(Attr(Child(root, "listingX", 500), "id"), 1)
	tree.SetInt(root+".listing(0500)#id", 1)
	tree.SetInt(root+".listing(500)x#id", 1)
	tree.SetInt(Attr(Child("other", "listing", 500), "id"), 1)

	got := tree.Children(root, "listing")
	require.Len(t, got, 500)
	for i, p := range got {
		assert.Equal(t, Child(root, "listing", i), p)
	}

	// an element with only nested children still counts
	tree.SetInt(Attr(Child(Child(root, "listing", 500), "config", 0), "v"), 1)
	assert.Len(t, tree.Children(root, "listing"), 501)
	assert.Len(t, tree.Children("", "other"), 0)
}
