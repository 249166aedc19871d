package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sirius3/lednode/internal/logging"
)

// registerLogRoutes exposes the in-memory log ring buffer.
func (s *Server) registerLogRoutes() {
	type LogsResponse struct {
		Body struct {
			Entries []logging.LogEntry `json:"entries" doc:"Recent log entries, oldest first"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Return the contents of the in-memory log buffer",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LogsResponse, error) {
		resp := &LogsResponse{}
		if buffer := logging.Buffer(); buffer != nil {
			resp.Body.Entries = buffer.ReadAll()
		}
		return resp, nil
	})
}
