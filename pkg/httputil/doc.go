// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error
// responses, and path/query parameter parsing used by the API handlers.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, decision)
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteForbidden(w, "sso session required")
//
// # Request Parsing
//
//	var req RecordSignInRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Related Packages
//
//   - pkg/middleware: identity and enforcement middleware
//   - pkg/enforce: the handlers built on these helpers
package httputil
