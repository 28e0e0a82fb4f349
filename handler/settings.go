package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/usecase"
)

func (h *Handler) handleGetSettings(ctx context.Context, logger *slog.Logger, clientID string) Response {
	s, err := h.settings.Get(ctx, clientID)
	if err != nil {
		return h.errorResponse(logger, err)
	}
	return settingsResponse(s)
}

func (h *Handler) handlePatchSettings(ctx context.Context, logger *slog.Logger, req Request, clientID string, body []byte) Response {
	ifMatch, err := parseIfMatch(headerValue(req.Headers, "If-Match"))
	if err != nil {
		return h.errorResponse(logger, err)
	}

	var patch domain.SettingsPatch
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		return h.errorResponse(logger, usecase.NewError(usecase.ErrorInvalidInput, "invalid_settings_body", err))
	}

	s, err := h.settings.Patch(ctx, clientID, patch, ifMatch)
	if err != nil {
		return h.errorResponse(logger, err)
	}
	return settingsResponse(s)
}

func settingsResponse(s domain.Settings) Response {
	resp := jsonResponse(http.StatusOK, s)
	resp.Headers["ETag"] = strconv.Quote(strconv.FormatInt(s.Revision, 10))
	return resp
}

// parseIfMatch accepts 3, "3" and W/"3". An empty header means no precondition.
func parseIfMatch(v string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "*" {
		return nil, nil
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil, usecase.NewError(usecase.ErrorInvalidInput, "invalid_if_match", err)
	}
	return &n, nil
}
