package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sirius3/lednode/internal/controller"
	"github.com/sirius3/lednode/internal/device"
)

// connectWait bounds how long a connect request holds the HTTP
// connection open: one discovery scan plus connection establishment.
const connectWait = 30 * time.Second

// parseDevice validates the {device} path parameter, case-insensitively.
func parseDevice(raw string) (device.ID, error) {
	id := device.ID(strings.ToUpper(raw))
	if !id.Valid() {
		return "", huma.Error404NotFound("unknown device " + raw)
	}
	return id, nil
}

// DeviceParam is the {device} path parameter shared by device routes.
type DeviceParam struct {
	Device string `path:"device" example:"left" doc:"Peripheral identifier (left or right)"`
}

// StatusResponse is the full node status snapshot.
type StatusResponse struct {
	Body struct {
		Devices   map[string]controller.Status `json:"devices" doc:"Connection state per peripheral"`
		Ambient   bool                         `json:"ambient" doc:"Whether the ambient producer owns color"`
		Animation string                       `json:"animation,omitempty" doc:"Running choreography, if any"`
	}
}

// ConnectionResponse reports the outcome of a connection operation.
type ConnectionResponse struct {
	Body struct {
		Device    string `json:"device" example:"LEFT" doc:"Peripheral identifier"`
		Connected bool   `json:"connected" doc:"Connection state after the operation"`
	}
}

func (s *Server) registerDeviceRoutes() {
	ctrl := s.options.Controller

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Node Status",
		Description: "Connection, ambient, and choreography state in one snapshot",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
		resp := &StatusResponse{}
		resp.Body.Devices = make(map[string]controller.Status, 2)
		for _, id := range device.All() {
			resp.Body.Devices[string(id)] = ctrl.StatusOf(id)
		}
		resp.Body.Ambient = ctrl.AmbientMode()
		if typ, running := s.options.Engine.Current(); running {
			resp.Body.Animation = string(typ)
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "connect-device",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/connect",
		Summary:     "Connect Device",
		Description: "Scan for the peripheral's advertisement and connect",
		Tags:        []string{"devices"},
		Errors:      []int{401, 404, 502, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *DeviceParam) (*ConnectionResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		ok, err := ctrl.ScanAndConnect(id).Wait(connectWait)
		if err != nil {
			return nil, huma.Error504GatewayTimeout("connection attempt timed out", err)
		}
		if !ok {
			return nil, huma.Error502BadGateway("device not found or connection refused")
		}
		resp := &ConnectionResponse{}
		resp.Body.Device = string(id)
		resp.Body.Connected = true
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "disconnect-device",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/disconnect",
		Summary:     "Disconnect Device",
		Tags:        []string{"devices"},
		Errors:      []int{401, 404, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *DeviceParam) (*ConnectionResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		if _, err := ctrl.Disconnect(id).Wait(10 * time.Second); err != nil {
			return nil, huma.Error504GatewayTimeout("disconnect timed out", err)
		}
		resp := &ConnectionResponse{}
		resp.Body.Device = string(id)
		resp.Body.Connected = ctrl.Connected(id)
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "check-device",
		Method:      http.MethodPost,
		Path:        "/api/devices/{device}/check",
		Summary:     "Check Connection",
		Description: "Probe the link and reconcile the recorded connection state",
		Tags:        []string{"devices"},
		Errors:      []int{401, 404, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *DeviceParam) (*ConnectionResponse, error) {
		id, err := parseDevice(input.Device)
		if err != nil {
			return nil, err
		}
		ok, err := ctrl.CheckConnection(id).Wait(10 * time.Second)
		if err != nil {
			return nil, huma.Error504GatewayTimeout("connection check timed out", err)
		}
		resp := &ConnectionResponse{}
		resp.Body.Device = string(id)
		resp.Body.Connected = ok
		return resp, nil
	})
}
