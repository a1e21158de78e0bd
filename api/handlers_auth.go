package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codemates/mates"
	"github.com/codemates/mates/auth"
	"github.com/codemates/mates/media"
	"github.com/codemates/mates/store"
)

type sessionResponse struct {
	User  *store.User `json:"user"`
	Token string      `json:"token"`
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(a.gate.TTL()),
	})
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.respondError(w, err)
		return
	}

	username, err := auth.NormalizeUsername(body.Username)
	if err != nil {
		a.respondError(w, fmt.Errorf("%w: %v", mates.ErrValidationFailed, err))
		return
	}
	if !strings.Contains(body.Email, "@") {
		a.respondError(w, fmt.Errorf("%w: invalid email", mates.ErrValidationFailed))
		return
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		a.respondError(w, fmt.Errorf("%w: %v", mates.ErrValidationFailed, err))
		return
	}

	user := &store.User{
		Username:     username,
		Name:         body.Name,
		Email:        strings.ToLower(strings.TrimSpace(body.Email)),
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.respondError(w, err)
		return
	}

	token, err := a.gate.Issue(user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.setSessionCookie(w, token)
	a.respondJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.respondError(w, err)
		return
	}

	user, err := a.store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(body.Email)))
	if err != nil || !auth.VerifyPassword(user.PasswordHash, body.Password) {
		a.respondError(w, fmt.Errorf("%w: invalid email or password", mates.ErrUnauthenticated))
		return
	}

	token, err := a.gate.Issue(user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.setSessionCookie(w, token)
	a.respondJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	a.respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (a *API) handleCheck(w http.ResponseWriter, r *http.Request, user *store.User) {
	a.respondJSON(w, http.StatusOK, user)
}

// handleUpdateProfile serves both the full profile edit and the avatar-only
// route; text fields are applied when present, and an attached file replaces
// the avatar through the media orchestrator.
func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user *store.User) {
	data, contentType, _, err := a.readUpload(r, "profilePic")
	if err != nil {
		a.respondError(w, err)
		return
	}
	r.ParseForm()

	var upd store.UserUpdate
	if v, ok := formField(r, "name"); ok {
		upd.Name = &v
	}
	if v, ok := formField(r, "bio"); ok {
		upd.Bio = &v
	}
	if v, ok := formField(r, "github"); ok {
		upd.GitHub = &v
	}
	if v, ok := formField(r, "portfolio"); ok {
		upd.Portfolio = &v
	}
	if v, ok := formField(r, "linkedin"); ok {
		upd.LinkedIn = &v
	}
	if v, ok := formField(r, "techstack"); ok {
		stack := []string{}
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				stack = append(stack, item)
			}
		}
		upd.TechStack = &stack
	}

	if data == nil {
		updated, _, err := a.store.UpdateUser(r.Context(), user.ID, upd)
		if err != nil {
			a.respondError(w, err)
			return
		}
		a.respondJSON(w, http.StatusOK, updated)
		return
	}

	var updated *store.User
	_, err = a.media.Replace(r.Context(), media.FolderAvatars, data, contentType,
		func(ref media.BlobRef) (media.BlobRef, error) {
			upd.Avatar = &ref
			u, old, err := a.store.UpdateUser(r.Context(), user.ID, upd)
			updated = u
			return old, err
		})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request, _ *store.User) {
	username := r.PathValue("username")
	user, err := a.store.UserByUsername(r.Context(), username)
	if err != nil {
		a.respondError(w, err)
		return
	}

	posts, err := a.store.PostsByUser(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	followers, err := a.store.Followers(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	following, err := a.store.Following(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"profile":        user,
			"followers":      followers,
			"following":      following,
			"followersCount": len(followers),
			"followingCount": len(following),
			"postsCount":     len(posts),
		},
		"posts": posts,
	})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request, _ *store.User) {
	users, err := a.store.SearchUsers(r.Context(), r.PathValue("query"), 20)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, users)
}

func (a *API) handleFollow(w http.ResponseWriter, r *http.Request, user *store.User) {
	following, err := a.store.ToggleFollow(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]bool{"following": following})
}
