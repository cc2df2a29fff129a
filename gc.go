package querysync

func (c *Client) cleanupLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.Collect()
		case <-c.stopCh:
			return
		}
	}
}

// Collect removes entries that have had no subscribers for GCTime and no
// request in flight. It runs periodically; tests call it directly.
func (c *Client) Collect() int {
	cutoff := c.now().Add(-c.gcTime)
	var collected []string

	c.mu.Lock()
	for id, e := range c.entries {
		if len(e.subs) > 0 || e.inflight != nil {
			continue
		}
		if e.idleSince.IsZero() || e.idleSince.After(cutoff) {
			continue
		}
		delete(c.entries, id)
		collected = append(collected, id)
	}
	c.mu.Unlock()

	for _, id := range collected {
		c.hooks.EntryCollected(id)
	}
	if len(collected) > 0 {
		c.log.Debug("collected unused entries", Fields{"count": len(collected)})
	}
	return len(collected)
}
