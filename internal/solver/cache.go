package solver

import "math/big"

// chunkCache records which chunk-form solutions have already produced a
// candidate seed during one [Solve] call, so a later branch point that
// happens to solve to the same numeric value does not emit a duplicate
// candidate. The original keeps this as a package-level
// `unordered_set<BigInt>` cleared explicitly between driver invocations
// (`ClearSolutionCache`); here it is owned per top-level [Solve] call
// instead, so concurrent or repeated solves never share state.
type chunkCache struct {
	seen map[string]bool
}

func newChunkCache() *chunkCache {
	return &chunkCache{seen: make(map[string]bool)}
}

// seenOrMark reports whether v was already recorded, and records it if not.
func (c *chunkCache) seenOrMark(v *big.Int) bool {
	key := v.String()
	if c.seen[key] {
		return true
	}

	c.seen[key] = true

	return false
}
