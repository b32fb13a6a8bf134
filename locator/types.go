package locator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"strconv"

	"mesh-rpc/protocol"
)

// Endpoint is the wire form of a socket address: a two-element array
// [ip, port].
type Endpoint struct {
	_msgpack struct{} `msgpack:",as_array"`

	IP   string
	Port uint16
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.IP, e.Port})
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("locator: endpoint must have 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &e.IP); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &e.Port)
}

// GraphNode describes the message types valid after one transition. Trees
// only: a node owns its children.
type GraphNode struct {
	Event string               `msgpack:"event" json:"event" yaml:"event"`
	Rx    map[uint64]GraphNode `msgpack:"rx" json:"rx" yaml:"rx,omitempty"`
}

// EventGraph is the protocol description of one method, rooted at the event
// name.
type EventGraph struct {
	Name string               `msgpack:"name" json:"name" yaml:"name"`
	Tx   map[uint64]GraphNode `msgpack:"tx" json:"tx" yaml:"tx,omitempty"`
	Rx   map[uint64]GraphNode `msgpack:"rx" json:"rx" yaml:"rx,omitempty"`
}

// ResolveInfo is the wire form of a resolve answer.
type ResolveInfo struct {
	Endpoints []Endpoint            `msgpack:"endpoints" json:"endpoints"`
	Version   uint64                `msgpack:"version" json:"version"`
	Methods   map[uint64]EventGraph `msgpack:"methods" json:"methods"`
}

// Info is a resolved service: where it runs and which methods it speaks.
// It holds no reference to the connection it came from.
type Info struct {
	Endpoints []netip.AddrPort      `json:"endpoints"`
	Version   uint64                `json:"version"`
	Methods   map[uint64]EventGraph `json:"methods"`
}

// toInfo turns wire endpoints into socket addresses, keeping their order.
// An unparsable IP means the payload does not match the resolve schema.
func toInfo(wire ResolveInfo) (Info, error) {
	if len(wire.Endpoints) == 0 {
		return Info{}, &protocol.DecodeError{Type: protocol.PrimitiveValue, Err: errNoEndpoints}
	}
	endpoints := make([]netip.AddrPort, 0, len(wire.Endpoints))
	for _, e := range wire.Endpoints {
		addr, err := netip.ParseAddr(e.IP)
		if err != nil {
			return Info{}, &protocol.DecodeError{Type: protocol.PrimitiveValue, Err: err}
		}
		endpoints = append(endpoints, netip.AddrPortFrom(addr, e.Port))
	}
	return Info{Endpoints: endpoints, Version: wire.Version, Methods: wire.Methods}, nil
}

var errNoEndpoints = errors.New("resolve answer has no endpoints")

// wire is the inverse of toInfo.
func (i Info) wire() ResolveInfo {
	endpoints := make([]Endpoint, 0, len(i.Endpoints))
	for _, ap := range i.Endpoints {
		endpoints = append(endpoints, Endpoint{IP: ap.Addr().String(), Port: ap.Port()})
	}
	methods := i.Methods
	if methods == nil {
		methods = map[uint64]EventGraph{}
	}
	return ResolveInfo{Endpoints: endpoints, Version: i.Version, Methods: methods}
}

// VersionString formats Version for places that carry it as text, such as
// registry instances.
func (i Info) VersionString() string {
	return strconv.FormatUint(i.Version, 10)
}

// RingEntry is one point of a hash ring: a two-element array [hash, node].
type RingEntry struct {
	_msgpack struct{} `msgpack:",as_array"`

	Hash uint64
	Node string
}

func (e RingEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Hash, e.Node})
}

func (e *RingEntry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("locator: ring entry must have 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &e.Hash); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &e.Node)
}

// HashRing keeps the entries in the order they arrived; that order is the
// ring order.
type HashRing []RingEntry

// RoutingTable maps an application name to its ring. Every update carries
// the complete table.
type RoutingTable map[string]HashRing
