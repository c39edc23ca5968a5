package orchestrator

import (
	"sync"

	"emarknews/types"
)

// maxLatePerCategory bounds how many abandoned-fetch articles wait for
// the next phase 2. The oldest arrivals are dropped first.
const maxLatePerCategory = 500

// latePool collects results of fetches that lost their phase race.
type latePool struct {
	mu    sync.Mutex
	items map[string][]types.Article
}

func newLatePool() *latePool {
	return &latePool{items: make(map[string][]types.Article)}
}

func (p *latePool) add(category string, articles []types.Article) {
	if len(articles) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := append(p.items[category], articles...)
	if over := len(merged) - maxLatePerCategory; over > 0 {
		merged = append([]types.Article(nil), merged[over:]...)
	}
	p.items[category] = merged
}

func (p *latePool) drain(category string) []types.Article {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.items[category]
	delete(p.items, category)
	return out
}

func (p *latePool) size(category string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items[category])
}

func (p *latePool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make(map[string][]types.Article)
}
