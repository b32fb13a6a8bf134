package main

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"mesh-rpc/locator"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleConfig = `
advertise: 127.0.0.1:10053
services:
  storage:
    version: 3
    endpoints: ["127.0.0.1:10054", "[::1]:10055"]
    methods:
      0:
        name: write
        tx:
          0:
            event: chunk
            rx:
              0: {event: ack}
        rx:
          0: {event: value}
routing:
  app:
    - {hash: 99, node: node-b}
    - {hash: 5, node: node-a}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locatord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.Equal(t, defaultListen, cfg.Listen)
	require.Equal(t, int64(10), cfg.Etcd.TTL)

	services, table, err := cfg.catalog()
	require.NoError(t, err)

	storage := services["storage"]
	require.Equal(t, uint64(3), storage.Version)
	require.Equal(t, []netip.AddrPort{
		netip.MustParseAddrPort("127.0.0.1:10054"),
		netip.MustParseAddrPort("[::1]:10055"),
	}, storage.Endpoints)
	require.Equal(t, locator.EventGraph{
		Name: "write",
		Tx: map[uint64]locator.GraphNode{
			0: {Event: "chunk", Rx: map[uint64]locator.GraphNode{0: {Event: "ack"}}},
		},
		Rx: map[uint64]locator.GraphNode{0: {Event: "value"}},
	}, storage.Methods[0])

	require.Equal(t, locator.HashRing{{Hash: 99, Node: "node-b"}, {Hash: 5, Node: "node-a"}}, table["app"])
}

func TestConfigRejectsBadEndpoint(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
services:
  storage:
    endpoints: ["localhost"]
`))
	require.NoError(t, err)
	_, _, err = cfg.catalog()
	require.Error(t, err)

	cfg, err = loadConfig(writeConfig(t, `
services:
  storage: {version: 1}
`))
	require.NoError(t, err)
	_, _, err = cfg.catalog()
	require.ErrorContains(t, err, "no endpoints")
}

func TestReloadKeepsCatalogOnError(t *testing.T) {
	configPath = writeConfig(t, sampleConfig)
	cfg, err := loadConfig(configPath)
	require.NoError(t, err)

	catalog := locator.NewCatalog()
	require.NoError(t, apply(catalog, cfg))

	require.NoError(t, os.WriteFile(configPath, []byte("services: [broken"), 0o600))
	reload(catalog, zap.NewNop())
	require.Equal(t, []string{"storage"}, catalog.Services())
}
