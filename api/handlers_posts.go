package api

import (
	"net/http"

	"github.com/codemates/mates/media"
	"github.com/codemates/mates/store"
)

func (a *API) handleCreatePost(w http.ResponseWriter, r *http.Request, user *store.User) {
	data, contentType, kind, err := a.readUpload(r, "image")
	if err != nil {
		a.respondError(w, err)
		return
	}
	r.ParseForm()
	content, _ := formField(r, "content")

	var post *store.Post
	if data == nil {
		post, err = a.store.CreatePost(r.Context(), user.ID, content, media.BlobRef{}, media.KindText)
	} else {
		_, err = a.media.Replace(r.Context(), media.FolderPosts, data, contentType,
			func(ref media.BlobRef) (media.BlobRef, error) {
				p, createErr := a.store.CreatePost(r.Context(), user.ID, content, ref, kind)
				post = p
				// a freshly created document has no old blob to drop
				return media.BlobRef{}, createErr
			})
	}
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, post)
}

func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.Feed(r.Context(), 50)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, posts)
}

func (a *API) handleEditPost(w http.ResponseWriter, r *http.Request, user *store.User) {
	id := r.PathValue("id")

	data, contentType, kind, err := a.readUpload(r, "image")
	if err != nil {
		a.respondError(w, err)
		return
	}
	r.ParseForm()

	var upd store.PostUpdate
	if v, ok := formField(r, "content"); ok {
		upd.Content = &v
	}

	var post *store.Post
	if data == nil {
		post, _, err = a.store.UpdatePost(r.Context(), id, user.ID, upd)
	} else {
		_, err = a.media.Replace(r.Context(), media.FolderPosts, data, contentType,
			func(ref media.BlobRef) (media.BlobRef, error) {
				upd.Media = &ref
				upd.MediaType = &kind
				p, old, updateErr := a.store.UpdatePost(r.Context(), id, user.ID, upd)
				post = p
				return old, updateErr
			})
	}
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, post)
}

func (a *API) handleDeletePost(w http.ResponseWriter, r *http.Request, user *store.User) {
	err := a.media.DeleteOwned(r.Context(), func() (media.BlobRef, error) {
		return a.store.DeletePost(r.Context(), r.PathValue("id"), user.ID)
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (a *API) handleLikePost(w http.ResponseWriter, r *http.Request, user *store.User) {
	post, err := a.store.ToggleLike(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, post)
}

func (a *API) handleCommentPost(w http.ResponseWriter, r *http.Request, user *store.User) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.respondError(w, err)
		return
	}

	post, err := a.store.AddComment(r.Context(), r.PathValue("id"), user.ID, body.Text)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, post)
}
