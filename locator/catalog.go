package locator

import (
	"maps"
	"slices"
	"sync"
)

// Catalog is the state a locator serves: the known services and the current
// routing table. Routing updates fan out to every subscriber.
type Catalog struct {
	mu       sync.RWMutex
	services map[string]Info
	routing  RoutingTable
	subs     map[chan RoutingTable]struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{
		services: make(map[string]Info),
		routing:  make(RoutingTable),
		subs:     make(map[chan RoutingTable]struct{}),
	}
}

func (c *Catalog) SetService(name string, info Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = info
}

func (c *Catalog) RemoveService(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.services, name)
}

func (c *Catalog) Lookup(name string) (Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.services[name]
	return info, ok
}

// Services returns the known service names, sorted.
func (c *Catalog) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.services))
}

// Routing returns the current routing table. The table is shared with
// subscribers and must not be modified.
func (c *Catalog) Routing() RoutingTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.routing
}

// SetRouting replaces the whole routing table and publishes it.
func (c *Catalog) SetRouting(table RoutingTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routing = cloneTable(table)
	c.publish()
}

// Replace swaps services and routing table at once, as a config reload does.
func (c *Catalog) Replace(services map[string]Info, table RoutingTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = maps.Clone(services)
	if c.services == nil {
		c.services = make(map[string]Info)
	}
	c.routing = cloneTable(table)
	c.publish()
}

func cloneTable(table RoutingTable) RoutingTable {
	out := make(RoutingTable, len(table))
	for app, ring := range table {
		out[app] = slices.Clone(ring)
	}
	return out
}

// Subscribe returns the current table and a channel receiving every later
// one. Tables are shared and must not be modified. A subscriber that falls behind only sees the latest table. cancel
// releases the subscription.
func (c *Catalog) Subscribe() (current RoutingTable, updates <-chan RoutingTable, cancel func()) {
	ch := make(chan RoutingTable, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	current = c.routing
	c.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
	return current, ch, cancel
}

// publish hands the table to every subscriber, replacing one that was not
// consumed yet. Caller holds c.mu.
func (c *Catalog) publish() {
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.routing
	}
}
