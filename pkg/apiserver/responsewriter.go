package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
)

// writeError writes a JSON error envelope. Only msg reaches the client; 5xx
// callers pass a generic message and log the cause themselves.
func writeError(w http.ResponseWriter, httpStatus int, msg string) {
	if httpStatus >= http.StatusInternalServerError {
		logrus.Debugf("responding %d: %s", httpStatus, msg)
	}
	writeJSON(w, httpStatus, model.ErrorResponse{
		Status:  httpStatus,
		Message: msg,
	})
}

func writeJSON(w http.ResponseWriter, httpStatus int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		logrus.Errorf("failed to encode response: %v", err)
		httpStatus = http.StatusInternalServerError
		res = []byte(`{"status":500,"msg":"internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}

func writeHTML(w http.ResponseWriter, httpStatus int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}

func writeText(w http.ResponseWriter, httpStatus int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	_, _ = w.Write([]byte(msg + "\n"))
}
