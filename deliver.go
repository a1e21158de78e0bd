package mates

type DeliveryOutcome int

const (
	// Delivered means at least one push was attempted over a live handle.
	Delivered DeliveryOutcome = iota
	// NoActiveConnection means the receiver has no live handle; the message
	// stays durable in the store and is picked up on the next history fetch.
	NoActiveConnection
)

func (o DeliveryOutcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "no active connection"
}

// RouteMessage attempts best-effort realtime delivery of an already persisted
// message, fanning out to every device the receiver has connected. Write
// failures on individual handles are swallowed: delivery is at-most-once and
// never retried, persistence is the authoritative path.
func (s *Server) RouteMessage(receiver string, message any) DeliveryOutcome {
	handles := s.Presence.HandlesFor(receiver)
	if len(handles) == 0 {
		return NoActiveConnection
	}

	env := messageEnvelope{Type: "newMessage", Message: message}
	for _, h := range handles {
		if err := h.WriteJSON(env); err != nil {
			// dead handle, the reader loop will reap it
			continue
		}
	}
	return Delivered
}
