package handler

import (
	"io"
	"net"
	"net/http"
)

// ServeHTTP adapts net/http for long-running servers.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeResponse(w, jsonResponse(http.StatusBadRequest, errorResponse{
			Error: "Request body could not be read",
			Code:  "INVALID_INPUT",
		}))
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	resp := h.Serve(r.Context(), Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Headers:  headers,
		Body:     body,
		SourceIP: remoteIP(r.RemoteAddr),
	})

	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
