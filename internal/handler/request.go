package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/auth"
)

// maxBodyBytes caps request bodies. Every payload in this API is small.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst.
//
// An empty body decodes to the zero value, so endpoints whose fields are all
// optional (POST /reservation for a signed-in user) accept no body at all.
// Field rules are checked later by the service via internal/validate.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "request body too large")
		}
		return apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
	}
	return nil
}

// requesterID is the signed-in user's ID, or "" for anonymous requests.
func requesterID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// urlParam is chi.URLParam; kept short because every handler uses it.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
