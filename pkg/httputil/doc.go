// Package httputil holds the JSON request and response helpers and the
// middleware shared by the dev backend handlers.
//
// Errors are written in the admin API shape:
//
//	{"statusCode": 404, "message": "Role not found", "error": "Not Found"}
//
// Typical handler:
//
//	roleID, ok := httputil.ParsePathStringOrError(w, r, "id")
//	if !ok {
//		return
//	}
//	var req rbac.RoleUpdate
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	httputil.WriteSuccess(w, role)
package httputil
