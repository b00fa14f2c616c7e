package internal

// Router dispatches inbound socket deliveries. Whether a message is visible
// right now (active conversation) and whether it affects sidebar ordering
// are decided independently: a backgrounded conversation still bubbles up.
type Router struct {
	selfID  string
	store   *ConversationStore
	recency *RecencyList
	unread  *UnreadTracker
	metrics *Metrics
}

func NewRouter(selfID string, store *ConversationStore, recency *RecencyList, unread *UnreadTracker, metrics *Metrics) *Router {
	return &Router{
		selfID:  selfID,
		store:   store,
		recency: recency,
		unread:  unread,
		metrics: metrics,
	}
}

// Run consumes the connection's event channel until it closes, handling one
// event at a time so arrival order is preserved end to end.
func (r *Router) Run(events <-chan ConversationEvent) {
	for ev := range events {
		r.HandleEvent(ev)
	}
}

// HandleEvent applies one delivery: append to the conversation store when it
// matches the active selection, count it unread otherwise, and always fold
// it into the recency list.
func (r *Router) HandleEvent(ev ConversationEvent) {
	r.metrics.IncReceived()

	ref := r.eventRef(ev)
	if r.store.Active().Matches(ev) {
		r.store.Append(ev.Message)
	} else {
		r.metrics.IncDropped()
		// own echoed sends for a closed pane should not count as unread
		if ev.Message.Senders.ID != r.selfID {
			r.unread.Increment(ref)
		}
	}

	switch ev.Kind {
	case KindContact:
		r.recency.BumpContact(ev.Message.Counterpart(r.selfID))
	case KindChannel:
		r.recency.BumpChannel(ev.Message.ChannelID)
	}
}

// eventRef maps a delivery to the conversation it belongs to from this
// client's point of view.
func (r *Router) eventRef(ev ConversationEvent) ConversationRef {
	if ev.Kind == KindChannel {
		return ChannelRef(ev.Message.ChannelID)
	}
	return ContactRef(ev.Message.Counterpart(r.selfID).ID)
}
