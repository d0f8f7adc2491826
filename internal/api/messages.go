package api

import (
	"errors"
	"io"
	"net/http"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/outbox"
	"hospitality-ops/internal/telegram"
)

const maxUploadBytes = 20 << 20

// @Summary Send a text message to a guest
// @Tags Messages
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body outbox.SendRequest true "Message"
// @Success 200 {object} outbox.SendResult
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]interface{}
// @Router /messages/send [post]
func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body outbox.SendRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.Outbox.SendMessage(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Send a file to a guest
// @Tags Messages
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param recipientId formData string true "Recipient"
// @Param platform formData string true "Platform"
// @Param caption formData string false "Caption"
// @Param file formData file true "Attachment"
// @Success 200 {object} outbox.SendResult
// @Failure 503 {object} map[string]interface{}
// @Router /messages/send/attachment [post]
func (a *API) SendAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.writeError(w, r, apperr.InvalidInput("invalid multipart body"))
		return
	}

	req := outbox.AttachmentRequest{
		RecipientID: r.FormValue("recipientId"),
		Platform:    r.FormValue("platform"),
		Caption:     r.FormValue("caption"),
	}

	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		a.writeError(w, r, apperr.InvalidInput("invalid file"))
		return
	default:
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			a.writeError(w, r, apperr.InvalidInput("invalid file"))
			return
		}
		contentType := hdr.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		req.File = telegram.File{Name: hdr.Filename, ContentType: contentType, Data: data}
	}

	res, err := a.Outbox.SendAttachment(r.Context(), auth.GetTenantID(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Pull pending inbound messages
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} inbox.Result
// @Router /messages/poll [post]
func (a *API) PollMessages(w http.ResponseWriter, r *http.Request) {
	res, err := a.Inbox.Poll(r.Context(), auth.GetTenantID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
