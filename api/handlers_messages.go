package api

import (
	"net/http"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
	"github.com/codemates/mates/store"
)

// handleSendMessage persists the message first, then attempts a realtime
// push to every device the receiver has connected. A receiver with no live
// connection still gets the message on their next history fetch; the push
// outcome never fails the request.
func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request, user *store.User) {
	receiver, err := a.store.UserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		a.respondError(w, err)
		return
	}

	data, contentType, kind, err := a.readUpload(r, "file")
	if err != nil {
		a.respondError(w, err)
		return
	}
	r.ParseForm()
	text, _ := formField(r, "text")

	msg := &store.Message{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Text:       text,
	}

	if data == nil {
		err = a.store.CreateMessage(r.Context(), msg)
	} else {
		_, err = a.media.Replace(r.Context(), media.FolderChats, data, contentType,
			func(ref media.BlobRef) (media.BlobRef, error) {
				msg.Media = ref
				msg.MediaType = kind
				return media.BlobRef{}, a.store.CreateMessage(r.Context(), msg)
			})
	}
	if err != nil {
		a.respondError(w, err)
		return
	}

	if outcome := a.srv.RouteMessage(msg.ReceiverID, msg); outcome == mates.NoActiveConnection {
		// receiver is offline, the stored record is the delivery
		a.log.Printf("message %s to %s: %s\n", msg.ID, msg.ReceiverID, outcome)
	}
	a.respondJSON(w, http.StatusCreated, msg)
}

func (a *API) handleConversation(w http.ResponseWriter, r *http.Request, user *store.User) {
	msgs, err := a.store.Conversation(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, msgs)
}
