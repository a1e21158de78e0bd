package mates

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Presence tracks which identities currently hold live connections. It is
// process-local and never persisted: after a restart everyone is offline
// until they reconnect.
type Presence struct {
	identities *xsync.MapOf[string, *xsync.MapOf[string, Handle]]
}

func NewPresence() *Presence {
	return &Presence{
		identities: xsync.NewMapOf[string, *xsync.MapOf[string, Handle]](),
	}
}

// Register adds a handle under identity. One identity may hold several
// handles at once (multiple devices); registering the same handle twice is a
// no-op. Reports whether the identity transitioned from offline to online.
//
// Register and Unregister mutate the outer map through Compute, which
// serializes them per identity: an empty inner map is only ever dropped in
// the same step that observed it empty, so a concurrent Register can't be
// wiped out or stranded in a detached map.
func (p *Presence) Register(identity string, h Handle) (cameOnline bool) {
	p.identities.Compute(identity, func(handles *xsync.MapOf[string, Handle], loaded bool) (*xsync.MapOf[string, Handle], bool) {
		if !loaded {
			handles = xsync.NewMapOf[string, Handle]()
			cameOnline = true
		}
		handles.LoadOrStore(h.ID(), h)
		return handles, false
	})
	return cameOnline
}

// Unregister removes a handle. Reports whether the identity went fully
// offline, i.e. this was its last handle.
func (p *Presence) Unregister(identity string, h Handle) (wentOffline bool) {
	p.identities.Compute(identity, func(handles *xsync.MapOf[string, Handle], loaded bool) (*xsync.MapOf[string, Handle], bool) {
		if !loaded {
			return nil, true
		}
		if _, removed := handles.LoadAndDelete(h.ID()); removed && handles.Size() == 0 {
			wentOffline = true
			return nil, true
		}
		return handles, false
	})
	return wentOffline
}

func (p *Presence) IsOnline(identity string) bool {
	handles, ok := p.identities.Load(identity)
	return ok && handles.Size() > 0
}

// HandlesFor returns the identity's live handles, one per connected device.
func (p *Presence) HandlesFor(identity string) []Handle {
	handles, ok := p.identities.Load(identity)
	if !ok {
		return nil
	}
	out := make([]Handle, 0, handles.Size())
	handles.Range(func(_ string, h Handle) bool {
		out = append(out, h)
		return true
	})
	return out
}

func (p *Presence) OnlineIdentities() []string {
	out := make([]string, 0, p.identities.Size())
	p.identities.Range(func(identity string, handles *xsync.MapOf[string, Handle]) bool {
		if handles.Size() > 0 {
			out = append(out, identity)
		}
		return true
	})
	return out
}
