package market

import "context"

type cacheEntry struct {
	data *Data
	err  error
}

// SweepCache memoizes oracle lookups for the lifetime of one sweep so orders
// sharing a token hit the provider once. Misses are cached too: if a token
// had no data at the start of a sweep, re-asking mid-sweep would only make
// orders on the same token see different market states.
//
// Not safe for concurrent use; the sweep processes orders sequentially.
type SweepCache struct {
	oracle  Oracle
	entries map[string]cacheEntry
}

func NewSweepCache(oracle Oracle) *SweepCache {
	return &SweepCache{
		oracle:  oracle,
		entries: make(map[string]cacheEntry),
	}
}

func (c *SweepCache) GetMarketData(ctx context.Context, tokenAddress string) (*Data, error) {
	if entry, ok := c.entries[tokenAddress]; ok {
		return entry.data, entry.err
	}

	data, err := c.oracle.GetMarketData(ctx, tokenAddress)
	c.entries[tokenAddress] = cacheEntry{data: data, err: err}
	return data, err
}
