package main

import (
	"fmt"
	"net/netip"
	"os"

	"mesh-rpc/locator"

	"gopkg.in/yaml.v3"
)

// Config is the locatord configuration file.
type Config struct {
	Listen        string                   `yaml:"listen"`
	Advertise     string                   `yaml:"advertise"`
	MetricsListen string                   `yaml:"metrics_listen"`
	Etcd          EtcdConfig               `yaml:"etcd"`
	Services      map[string]ServiceConfig `yaml:"services"`
	Routing       map[string][]RingEntry   `yaml:"routing"`
}

type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"`
	TTL       int64    `yaml:"ttl"`
}

type ServiceConfig struct {
	Version   uint64                        `yaml:"version"`
	Endpoints []string                      `yaml:"endpoints"` // host:port
	Methods   map[uint64]locator.EventGraph `yaml:"methods"`
}

type RingEntry struct {
	Hash uint64 `yaml:"hash"`
	Node string `yaml:"node"`
}

const defaultListen = ":10053"

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.Etcd.TTL <= 0 {
		cfg.Etcd.TTL = 10
	}
	return cfg, nil
}

// catalog converts the configured services and routing table into the form
// the locator serves. Ring entries keep their file order.
func (c *Config) catalog() (map[string]locator.Info, locator.RoutingTable, error) {
	services := make(map[string]locator.Info, len(c.Services))
	for name, svc := range c.Services {
		if len(svc.Endpoints) == 0 {
			return nil, nil, fmt.Errorf("service %s: no endpoints", name)
		}
		info := locator.Info{Version: svc.Version, Methods: svc.Methods}
		for _, ep := range svc.Endpoints {
			ap, err := netip.ParseAddrPort(ep)
			if err != nil {
				return nil, nil, fmt.Errorf("service %s: %w", name, err)
			}
			info.Endpoints = append(info.Endpoints, ap)
		}
		services[name] = info
	}

	table := make(locator.RoutingTable, len(c.Routing))
	for app, entries := range c.Routing {
		ring := make(locator.HashRing, 0, len(entries))
		for _, e := range entries {
			ring = append(ring, locator.RingEntry{Hash: e.Hash, Node: e.Node})
		}
		table[app] = ring
	}
	return services, table, nil
}
