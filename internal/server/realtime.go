package server

import (
	"context"
	"sync"
	"time"

	"github.com/mayursapkal41/MindNest/internal/community"
)

const (
	RealtimeEventCommunityChanged = "community-change"
	realtimeEventHeartbeat        = "heartbeat"
	realtimeSourceBackend         = "mindnest-backend"
)

// RealtimeMessage is one change notification for a community room.
type RealtimeMessage struct {
	CommunityID string
	EventType   string
	Change      community.Event
	Timestamp   time.Time
}

// RealtimeDispatcher fans community change events out to the room's open streams.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

// Subscribe registers a stream for communityID until ctx ends or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, communityID string) (<-chan RealtimeMessage, func()) {
	if communityID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(communityID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(communityID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers message to every subscriber of its community. Full buffers drop the message;
// clients re-fetch the whole room on the next one.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.CommunityID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.CommunityID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// Notifier adapts the dispatcher to the community service's change hook.
func (d *RealtimeDispatcher) Notifier() community.Notifier {
	return communityNotifier{dispatcher: d}
}

// SubscriberCount reports the open streams for communityID.
func (d *RealtimeDispatcher) SubscriberCount(communityID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[communityID])
}

type communityNotifier struct {
	dispatcher *RealtimeDispatcher
}

func (n communityNotifier) Publish(event community.Event) {
	n.dispatcher.Publish(RealtimeMessage{
		CommunityID: event.CommunityID,
		EventType:   RealtimeEventCommunityChanged,
		Change:      event,
		Timestamp:   n.dispatcher.clock().UTC(),
	})
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(communityID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[communityID]; !ok {
		d.subscribers[communityID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[communityID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(communityID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[communityID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, communityID)
		}
	}
	d.mu.Unlock()
}
