package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
)

const cookieName = "jwt_token"

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func (a *API) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps error kinds to stable status codes and messages. The
// detailed error goes to the log, never to the caller.
func (a *API) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, mates.ErrValidationFailed):
		// validation messages are crafted in-house and safe to show
		status, msg = http.StatusBadRequest, strings.TrimPrefix(err.Error(), mates.ErrValidationFailed.Error()+": ")
	case errors.Is(err, mates.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "not authorized, please login"
	case errors.Is(err, mates.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, mates.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, mates.ErrUpstreamUnavailable):
		status, msg = http.StatusBadGateway, "media upload failed, please try again"
	case errors.Is(err, mates.ErrPersistenceFailed):
		status, msg = http.StatusInternalServerError, "could not save changes"
	}

	if status >= http.StatusInternalServerError {
		a.log.Printf("request failed: %v\n", err)
	}
	a.respondJSON(w, status, map[string]string{"message": msg})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", mates.ErrValidationFailed)
	}
	return nil
}

// readUpload returns the optional file attached under field, along with its
// sniffed content type and document media kind. A zero-length return with no
// error means no file was sent.
func (a *API) readUpload(r *http.Request, field string) (data []byte, contentType, kind string, err error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, "", "", nil
	}
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		return nil, "", "", fmt.Errorf("%w: invalid multipart body", mates.ErrValidationFailed)
	}

	f, hdr, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, "", "", nil
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: invalid upload", mates.ErrValidationFailed)
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, a.maxUpload+1))
	if err != nil {
		return nil, "", "", err
	}
	if int64(len(data)) > a.maxUpload {
		return nil, "", "", fmt.Errorf("%w: file too large", mates.ErrValidationFailed)
	}

	contentType, kind = media.Sniff(data, hdr.Header.Get("Content-Type"))
	if !media.Allowed(contentType) {
		return nil, "", "", fmt.Errorf("%w: only images and videos are allowed", mates.ErrValidationFailed)
	}
	return data, contentType, kind, nil
}

// formField reports a form value and whether the field was present at all,
// so handlers can tell "clear this" from "leave unchanged".
func formField(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}
