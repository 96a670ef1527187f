package testutil

import (
	"net/http"

	id "vetdesk/pkg/domain"
	"vetdesk/pkg/requestcontext"
)

// WithOwner adds the acting owner to the request context, as the auth
// middleware would.
func WithOwner(req *http.Request, ownerID id.OwnerID) *http.Request {
	return req.WithContext(requestcontext.WithOwnerID(req.Context(), ownerID))
}
