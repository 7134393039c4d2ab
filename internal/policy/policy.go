// Package policy holds the request-level access rules for campaigns.
// Requester id 0 stands for an anonymous caller.
package policy

import "net/http"

// IsSafeMethod reports whether method only reads state.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// IsAuthenticatedOrReadOnly lets anyone read and requires an identity for
// everything else.
func IsAuthenticatedOrReadOnly(method string, requesterID uint) bool {
	return IsSafeMethod(method) || requesterID != 0
}

// IsOwnerOrReadOnly lets anyone read and only the owner write.
func IsOwnerOrReadOnly(method string, requesterID, ownerID uint) bool {
	if IsSafeMethod(method) {
		return true
	}
	return requesterID != 0 && requesterID == ownerID
}
