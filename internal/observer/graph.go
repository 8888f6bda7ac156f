// Package observer implements the synchronous publish/subscribe graph that
// connects entity mutations to dependent recomputation.
//
// Dispatch is fully synchronous: Emit returns only after every listener has
// run. The graph gives no protection against unbounded re-entrant emission;
// components that derive one field from another must use EmitExcept so the
// derived update is not observed by the listener that produced it.
//
// All calls are expected to happen on the session's dispatch goroutine.
package observer

// Subscription identifies a registered listener so it can be revoked or
// excluded from a single emission.
type Subscription uint64

// Listener receives the payload of a single emission.
type Listener func(payload any)

type topicEvent struct {
	topic string
	event string
}

type handler struct {
	id      Subscription
	fn      Listener
	removed bool
}

// Graph routes named events from entities (topics) to listeners.
type Graph struct {
	handlers map[topicEvent][]*handler
	index    map[Subscription]topicEvent
	nextID   Subscription
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		handlers: make(map[topicEvent][]*handler),
		index:    make(map[Subscription]topicEvent),
	}
}

// On subscribes fn to the (topic, event) pair. Listeners fire in
// subscription order.
func (g *Graph) On(topic, event string, fn Listener) Subscription {
	g.nextID++
	id := g.nextID
	key := topicEvent{topic: topic, event: event}
	g.handlers[key] = append(g.handlers[key], &handler{id: id, fn: fn})
	g.index[id] = key
	return id
}

// Off revokes a subscription. A listener revoked during an emission is not
// invoked for any event not yet dispatched in that emission.
func (g *Graph) Off(id Subscription) {
	key, ok := g.index[id]
	if !ok {
		return
	}
	delete(g.index, id)

	list := g.handlers[key]
	for i, h := range list {
		if h.id == id {
			h.removed = true
			g.handlers[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(g.handlers[key]) == 0 {
		delete(g.handlers, key)
	}
}

// Emit synchronously dispatches payload to every listener of (topic, event),
// each at most once, in subscription order.
func (g *Graph) Emit(topic, event string, payload any) {
	g.EmitExcept(topic, event, payload, 0)
}

// EmitExcept is the quiet emission variant: it dispatches like Emit but
// skips the listeners named in except. Used to break derivation cycles,
// where a recomputed field must not re-trigger the listener that derived it.
func (g *Graph) EmitExcept(topic, event string, payload any, except ...Subscription) {
	key := topicEvent{topic: topic, event: event}
	list := g.handlers[key]
	if len(list) == 0 {
		return
	}

	// snapshot so listeners added mid-emission do not fire in this pass
	snapshot := make([]*handler, len(list))
	copy(snapshot, list)

	for _, h := range snapshot {
		if h.removed || excluded(h.id, except) {
			continue
		}
		h.fn(payload)
	}
}

func excluded(id Subscription, except []Subscription) bool {
	for _, e := range except {
		if e == id {
			return true
		}
	}
	return false
}
