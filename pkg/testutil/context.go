package testutil

import (
	"net/http"

	id "anima/pkg/domain"
	"anima/pkg/requestcontext"
)

// WithPrincipal stands in for the auth middleware. An unparsable principal
// leaves the request anonymous.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	if parsed, err := id.ParsePrincipalID(principal); err == nil {
		return req.WithContext(requestcontext.WithPrincipal(req.Context(), parsed))
	}
	return req
}
