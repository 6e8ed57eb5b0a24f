package api

import "github.com/meridian-labs/panobridge/internal/app"

// statusResponse is the payload for GET /v1/status.
type statusResponse struct {
	State          string `json:"state"`
	Epoch          uint64 `json:"epoch"`
	ImageID        string `json:"imageId,omitempty"`
	APIReady       bool   `json:"apiReady"`
	SessionActive  bool   `json:"sessionActive"`
	CredentialsSet bool   `json:"credentialsSet"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

func fromSnapshot(snap app.Snapshot) statusResponse {
	return statusResponse{
		State:          snap.State.String(),
		Epoch:          snap.Epoch,
		ImageID:        snap.ImageID,
		APIReady:       snap.APIReady,
		SessionActive:  snap.SessionActive,
		CredentialsSet: snap.CredentialsSet,
		ErrorMessage:   snap.ErrorMessage,
	}
}

// credentialsRequest is the payload for PUT /v1/credentials.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// errorResponse is the standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}
