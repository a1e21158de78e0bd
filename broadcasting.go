package mates

// Server-to-client push envelopes.
type messageEnvelope struct {
	Type    string `json:"type"`
	Message any    `json:"message"`
}

type presenceEnvelope struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

func newPresenceEnvelope(online []string) presenceEnvelope {
	if online == nil {
		online = []string{}
	}
	return presenceEnvelope{Type: "presenceChanged", Online: online}
}

// BroadcastPresence pushes the current set of online identities to every
// connected client. Calls are debounced so a burst of connects and
// disconnects collapses into a single broadcast; it is only invoked when an
// identity's online/offline state actually transitions, not on every handle
// add/remove of a multi-device identity.
func (s *Server) BroadcastPresence() {
	s.presenceDebouncer(func() {
		env := newPresenceEnvelope(s.Presence.OnlineIdentities())
		s.clients.Range(func(ws *WebSocket, _ struct{}) bool {
			ws.WriteJSON(env)
			return true
		})
	})
}
