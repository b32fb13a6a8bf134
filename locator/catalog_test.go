package locator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCatalogServices(t *testing.T) {
	c := NewCatalog()
	c.SetService("storage", storageInfo())
	c.SetService("app", Info{Version: 2})

	require.Equal(t, []string{"app", "storage"}, c.Services())
	info, ok := c.Lookup("storage")
	require.True(t, ok)
	require.Equal(t, storageInfo(), info)

	c.RemoveService("storage")
	_, ok = c.Lookup("storage")
	require.False(t, ok)
}

func TestCatalogSubscribeKeepsLatest(t *testing.T) {
	c := NewCatalog()
	current, updates, cancel := c.Subscribe()
	defer cancel()
	require.Empty(t, current)

	c.SetRouting(RoutingTable{"a": HashRing{{Hash: 1, Node: "n1"}}})
	c.SetRouting(RoutingTable{"b": HashRing{{Hash: 2, Node: "n2"}}})

	select {
	case table := <-updates:
		require.Contains(t, table, "b")
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
	select {
	case table := <-updates:
		t.Fatalf("stale update %v", table)
	default:
	}
}

func TestCatalogReplace(t *testing.T) {
	c := NewCatalog()
	c.SetService("old", Info{})
	_, updates, cancel := c.Subscribe()

	c.Replace(map[string]Info{"storage": storageInfo()}, RoutingTable{"app": nil})
	_, ok := c.Lookup("old")
	require.False(t, ok)
	require.Equal(t, []string{"storage"}, c.Services())
	require.Contains(t, <-updates, "app")

	cancel()
	cancel()
	c.SetRouting(RoutingTable{})
	require.Len(t, updates, 0)
}

func TestCatalogCopiesRings(t *testing.T) {
	c := NewCatalog()
	table := RoutingTable{"app": HashRing{{Hash: 1, Node: "n1"}}}
	c.SetRouting(table)
	table["app"][0].Node = "changed"

	require.Equal(t, "n1", c.Routing()["app"][0].Node)

	c.Replace(nil, table)
	table["app"][0].Node = "changed again"
	require.Equal(t, "changed", c.Routing()["app"][0].Node)
}
