package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sirius3/lednode/internal/device"
)

func (s *Server) registerAmbientRoutes() {
	ctrl := s.options.Controller

	type AmbientRequest struct {
		Body struct {
			Enabled bool `json:"enabled" doc:"Hand color ownership to the ambient producer"`
		}
	}
	type AmbientResponse struct {
		Body struct {
			Enabled bool `json:"enabled" doc:"Ambient mode state"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-ambient-mode",
		Method:      http.MethodPost,
		Path:        "/api/ambient",
		Summary:     "Set Ambient Mode",
		Description: "While enabled, queued fixed-color commands are suppressed and ambient frames drive both peripherals.",
		Tags:        []string{"ambient"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *AmbientRequest) (*AmbientResponse, error) {
		ctrl.SetAmbientMode(input.Body.Enabled)
		resp := &AmbientResponse{}
		resp.Body.Enabled = ctrl.AmbientMode()
		return resp, nil
	})

	type FrameRequest struct {
		Body device.RGB
	}
	type FrameResponse struct {
		Body struct {
			Accepted bool `json:"accepted" doc:"Whether the frame was forwarded"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "push-ambient-color",
		Method:      http.MethodPost,
		Path:        "/api/ambient/color",
		Summary:     "Push Ambient Frame",
		Description: "Fade both peripherals to the given color. Ignored unless ambient mode is enabled.",
		Tags:        []string{"ambient"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *FrameRequest) (*FrameResponse, error) {
		if !ctrl.AmbientMode() {
			return nil, huma.Error409Conflict("ambient mode is not enabled")
		}
		ctrl.UpdateAmbientColor(input.Body)
		resp := &FrameResponse{}
		resp.Body.Accepted = true
		return resp, nil
	})
}
