package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sirius3/lednode/internal/device"
)

// AcceptedResponse acknowledges a command that entered the dispatch
// queue. Delivery is reported asynchronously on the event stream.
type AcceptedResponse struct {
	Body struct {
		Queued  bool   `json:"queued" doc:"Whether the command entered the queue"`
		Command string `json:"command" example:"C:255,0,0" doc:"Encoded wire command"`
	}
}

func accepted(cmd device.Command) *AcceptedResponse {
	resp := &AcceptedResponse{}
	resp.Body.Queued = true
	resp.Body.Command = cmd.Encode()
	return resp
}

func (s *Server) registerCommandRoutes() {
	ctrl := s.options.Controller

	type ColorRequest struct {
		DeviceParam
		Body device.RGB
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-color",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/color",
		Summary:     "Set Color",
		Description: "Queue a fixed color command. Suppressed while ambient mode owns color.",
		Tags:        []string{"commands"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *ColorRequest) (*AcceptedResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		cmd := device.NewColor(id, input.Body)
		ctrl.Enqueue(cmd)
		return accepted(cmd), nil
	})

	type ModeRequest struct {
		DeviceParam
		Body struct {
			Auto bool `json:"auto" doc:"True enables automatic hue cycling"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-mode",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/mode",
		Summary:     "Set Mode",
		Tags:        []string{"commands"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *ModeRequest) (*AcceptedResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		cmd := device.NewMode(id, input.Body.Auto)
		ctrl.Enqueue(cmd)
		return accepted(cmd), nil
	})

	type HueRequest struct {
		DeviceParam
		Body struct {
			Hue uint8 `json:"hue" example:"128" doc:"Hue for automatic cycling"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-hue",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/hue",
		Summary:     "Set Hue",
		Tags:        []string{"commands"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *HueRequest) (*AcceptedResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		cmd := device.NewHue(id, input.Body.Hue)
		ctrl.Enqueue(cmd)
		return accepted(cmd), nil
	})

	type TransitionRequest struct {
		DeviceParam
		Body struct {
			device.RGB
			DurationMs int `json:"duration_ms" example:"1000" minimum:"1" doc:"Fade duration in milliseconds"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "set-transition",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/transition",
		Summary:     "Fade To Color",
		Tags:        []string{"commands"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *TransitionRequest) (*AcceptedResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		cmd := device.NewTransition(id, input.Body.RGB, time.Duration(input.Body.DurationMs)*time.Millisecond)
		ctrl.Enqueue(cmd)
		return accepted(cmd), nil
	})

	type SettingsRequest struct {
		Body struct {
			Device string     `json:"device,omitempty" example:"both" doc:"left, right, or both (default both)"`
			Auto   bool       `json:"auto" doc:"True enables automatic hue cycling"`
			Color  device.RGB `json:"color" doc:"Fixed color, used when auto is false"`
		}
	}
	type SettingsResponse struct {
		Body struct {
			Applied bool `json:"applied" doc:"Whether the settings reached every targeted peripheral"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "apply-settings",
		Method:      http.MethodPost,
		Path:        "/api/settings/apply",
		Summary:     "Apply Settings",
		Description: "Apply user settings to one or both peripherals. Auto mode sends only the mode switch; fixed mode sends only the color. Targeting both uses the simultaneous path.",
		Tags:        []string{"commands"},
		Errors:      []int{401, 404, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *SettingsRequest) (*SettingsResponse, error) {
		settings := device.Settings{Auto: input.Body.Auto, Color: input.Body.Color}
		done := make(chan bool, 1)

		target := input.Body.Device
		if target == "" || target == "both" {
			ctrl.ApplySettingsToBoth(settings, func(ok bool) { done <- ok })
		} else {
			id, err := parseDevice(target)
			if err != nil {
				return nil, err
			}
			ctrl.ApplySettings(id, settings, func(ok bool) { done <- ok })
		}

		select {
		case ok := <-done:
			resp := &SettingsResponse{}
			resp.Body.Applied = ok
			return resp, nil
		case <-time.After(15 * time.Second):
			return nil, huma.Error504GatewayTimeout("settings apply timed out")
		}
	})
}
