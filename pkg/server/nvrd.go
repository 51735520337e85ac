package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
)

const maxRequestBody = 1 << 20

// statusResponse is the reply to admin requests.
type statusResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleSendNotification publishes the posted message to a user.
func (srv *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	log := srv.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"remote":  srv.remoteHost(r),
	})

	req, err := decodeSendRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Cause(err) == errUnsupportedMediaType {
			status = http.StatusUnsupportedMediaType
		}
		log.WithError(err).Warn("Rejected notification")
		writeJSON(w, status, statusResponse{Status: status, Error: err.Error()})
		return
	}

	delivered := srv.Publish(model.DataNotification(userID, req.Message))
	log.WithField("delivered", delivered).Info("Notification published")
	writeJSON(w, http.StatusOK, statusResponse{Status: http.StatusOK})
}

// handleStats replies with the relay's stats.
func (srv *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.Stats())
}

var errUnsupportedMediaType = errors.New("Content-Type must be application/json")

func decodeSendRequest(r *http.Request) (model.SendRequest, error) {
	var req model.SendRequest
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return req, errUnsupportedMediaType
	}

	var body struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&body); err != nil {
		return req, errors.Wrap(err, "Decode request")
	}
	if body.Message == nil {
		return req, errors.New("Missing message")
	}
	req.Message = *body.Message
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
