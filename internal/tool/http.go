package tool

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// NewHTTPHandler creates the HTTP transport adapter over the dispatcher.
// GET lists the catalog; POST dispatches one call.
func NewHTTPHandler(d *Dispatcher) *HTTPHandler {
	return &HTTPHandler{d: d}
}

// HTTPHandler is a thin adapter: all tool semantics live in the dispatcher.
type HTTPHandler struct {
	d *Dispatcher
}

type listResponse struct {
	Tools []FunctionSpec `json:"tools"`
}

type callRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResponse struct {
	Content []contentItem `json:"content"`
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTools(w)
	case http.MethodPost:
		h.callTool(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) listTools(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, listResponse{Tools: FunctionSpecs()})
}

func (h *HTTPHandler) callTool(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ToolName == "" {
		http.Error(w, "tool_name is required", http.StatusBadRequest)
		return
	}

	result := h.d.Dispatch(r.Context(), Call{Name: req.ToolName, Arguments: req.Arguments})

	status := http.StatusOK
	if result.Error == ErrAuthRequired.Error() {
		status = http.StatusUnauthorized
	}

	serialized, err := json.Marshal(result.Payload())
	if err != nil {
		log.Error().Str("tool", req.ToolName).Err(err).Msg("result serialization failed")
		http.Error(w, "result serialization failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, status, callResponse{
		Content: []contentItem{{Type: "text", Text: string(serialized)}},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}
