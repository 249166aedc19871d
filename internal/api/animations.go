package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sirius3/lednode/internal/animation"
)

func (s *Server) registerAnimationRoutes() {
	engine := s.options.Engine

	type StartRequest struct {
		Body struct {
			Type         string `json:"type" example:"left_turn" doc:"Choreography type"`
			Cycles       int    `json:"cycles,omitempty" minimum:"0" doc:"Cycle count override, 0 keeps the default"`
			IntervalMs   int    `json:"interval_ms,omitempty" minimum:"0" doc:"Hold time override in milliseconds"`
			TransitionMs int    `json:"transition_ms,omitempty" minimum:"0" doc:"Fade time override in milliseconds"`
		}
	}
	type StartResponse struct {
		Body struct {
			Started string `json:"started" example:"left_turn" doc:"Choreography now running"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "start-animation",
		Method:      http.MethodPost,
		Path:        "/api/animations",
		Summary:     "Start Animation",
		Description: "Start a choreography, preempting any running one. Disables ambient color mode.",
		Tags:        []string{"animations"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *StartRequest) (*StartResponse, error) {
		opts := animation.Options{
			Cycles:     input.Body.Cycles,
			Interval:   time.Duration(input.Body.IntervalMs) * time.Millisecond,
			Transition: time.Duration(input.Body.TransitionMs) * time.Millisecond,
		}
		if err := engine.Start(animation.Type(input.Body.Type), opts); err != nil {
			if errors.Is(err, animation.ErrUnknownType) {
				return nil, huma.Error400BadRequest("unknown animation type "+input.Body.Type, err)
			}
			return nil, err
		}
		resp := &StartResponse{}
		resp.Body.Started = input.Body.Type
		return resp, nil
	})

	type StopResponse struct {
		Body struct {
			Stopped bool `json:"stopped" doc:"Whether a choreography was running"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-animation",
		Method:      http.MethodDelete,
		Path:        "/api/animations",
		Summary:     "Stop Animation",
		Tags:        []string{"animations"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*StopResponse, error) {
		resp := &StopResponse{}
		resp.Body.Stopped = engine.Stop()
		return resp, nil
	})

	type PaletteResponse struct {
		Body animation.Palette
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "get-animation-colors",
		Method:      http.MethodGet,
		Path:        "/api/animations/colors",
		Summary:     "Get Animation Colors",
		Tags:        []string{"animations"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*PaletteResponse, error) {
		return &PaletteResponse{Body: engine.CurrentPalette()}, nil
	})

	type PaletteRequest struct {
		Body animation.Palette
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-animation-colors",
		Method:      http.MethodPut,
		Path:        "/api/animations/colors",
		Summary:     "Set Animation Colors",
		Description: "Replace the choreography color table. Takes effect for the next session.",
		Tags:        []string{"animations"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *PaletteRequest) (*PaletteResponse, error) {
		engine.SetPalette(input.Body)
		return &PaletteResponse{Body: engine.CurrentPalette()}, nil
	})
}
