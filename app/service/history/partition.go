package history

import (
	"sync"

	"relaybot/app/model"
)

type partition struct {
	mu        sync.Mutex
	exchanges []model.Exchange
}

func (p *partition) add(exchange model.Exchange, retention int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exchanges = append(p.exchanges, exchange)
	if overflow := len(p.exchanges) - retention; overflow > 0 {
		p.exchanges = append(p.exchanges[:0], p.exchanges[overflow:]...)
	}
}

func (p *partition) last(n int) []model.Exchange {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= 0 {
		return []model.Exchange{}
	}

	start := max(len(p.exchanges)-n, 0)
	result := make([]model.Exchange, len(p.exchanges)-start)
	copy(result, p.exchanges[start:])

	return result
}

func (p *partition) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.exchanges)
}

func (p *partition) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exchanges = nil
}
