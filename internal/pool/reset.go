package pool

// ResetOne clears the cooldown and failure streak of one record and marks it
// healthy. It reports false and does nothing if index is out of range.
func (p *Pool[C]) ResetOne(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.records) {
		return false
	}
	p.records[index].reset()
	p.log.Info("Key reset", "index", index, "key", MaskKey(p.records[index].key))
	return true
}

// ResetAll resets every record and the exhaustion streak.
func (p *Pool[C]) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range p.records {
		r.reset()
	}
	p.exhaustions = 0
	p.log.Info("All keys reset", "keys", len(p.records))
}
