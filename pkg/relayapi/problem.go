package relayapi

import (
	"encoding/json"
	"net/http"

	"github.com/nous-sync/nse/pkg/errs"
)

// Problem is an RFC 7807 problem-details response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const contentTypeProblemJSON = "application/problem+json"

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemWithType(w, "about:blank", status, title, detail)
}

func writeProblemWithType(w http.ResponseWriter, problemType string, status int, title, detail string) {
	p := &Problem{Type: problemType, Title: title, Status: status, Detail: detail}
	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

func badRequest(w http.ResponseWriter, detail string)      { writeProblem(w, http.StatusBadRequest, "Bad Request", detail) }
func unauthorized(w http.ResponseWriter, detail string)    { writeProblem(w, http.StatusUnauthorized, "Unauthorized", detail) }
func forbidden(w http.ResponseWriter, detail string)       { writeProblem(w, http.StatusForbidden, "Forbidden", detail) }
func notFound(w http.ResponseWriter, detail string)        { writeProblem(w, http.StatusNotFound, "Not Found", detail) }
func conflictProblem(w http.ResponseWriter, detail string) { writeProblem(w, http.StatusConflict, "Conflict", detail) }
func upgradeRequired(w http.ResponseWriter, detail string) {
	writeProblemWithType(w, "https://nous.sync/problems/schema-too-old", http.StatusUpgradeRequired, "Upgrade Required", detail)
}
func internalError(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// writeErrProblem maps a domain error to the RFC 7807 status/detail pair
// its error kind implies.
func writeErrProblem(w http.ResponseWriter, err error) {
	switch {
	case errs.IsLockHeldError(err):
		conflictProblem(w, err.Error())
	case errs.IsLockExpiredError(err):
		writeProblem(w, http.StatusGone, "Lock Expired", err.Error())
	case errs.IsSchemaTooOldError(err):
		upgradeRequired(w, err.Error())
	case errs.IsIntegrityError(err):
		writeProblem(w, http.StatusUnprocessableEntity, "Integrity Check Failed", err.Error())
	default:
		internalError(w, err.Error())
	}
}
