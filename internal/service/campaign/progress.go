// internal/service/campaign/progress.go
package campaign

import (
	"sync"

	"tahseel-service/internal/domain/campaign"
)

// broadcaster fans batch-coalesced progress events out to subscribers.
// Events are dropped rather than blocking the dispatcher when a subscriber
// falls behind; the authoritative state always lives in the datastore.
type broadcaster struct {
	mu   sync.Mutex
	subs map[int64]map[int]chan campaign.ProgressEvent
	next int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int64]map[int]chan campaign.ProgressEvent)}
}

func (b *broadcaster) subscribe(campaignID int64) (<-chan campaign.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan campaign.ProgressEvent, 16)
	if b.subs[campaignID] == nil {
		b.subs[campaignID] = make(map[int]chan campaign.ProgressEvent)
	}
	id := b.next
	b.next++
	b.subs[campaignID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[campaignID]; ok {
			if c, ok := set[id]; ok {
				delete(set, id)
				close(c)
			}
			if len(set) == 0 {
				delete(b.subs, campaignID)
			}
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(ev campaign.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[ev.CampaignID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
