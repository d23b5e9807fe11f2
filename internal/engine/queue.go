package engine

import (
	"sync"

	"github.com/herdctl/herd/internal/model"
)

type queueItem struct {
	index  int
	wallet model.Wallet
}

// walletQueue is the thread-safe FIFO queue the workers of a run drain.
type walletQueue struct {
	mu    sync.Mutex
	items []queueItem
}

func newWalletQueue(items []queueItem) *walletQueue {
	return &walletQueue{items: items}
}

// dequeue pops the next wallet. The second return value is false when the
// queue is empty.
func (q *walletQueue) dequeue() (queueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return queueItem{}, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// drain empties the queue and returns the remaining wallets, used when a
// worker observes a pause or stop and the leftover wallets need labeling.
func (q *walletQueue) drain() []queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *walletQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
