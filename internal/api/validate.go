package api

import (
	"fmt"
	"strings"

	"visitroute/internal/model"
)

type planRequest struct {
	Origin *model.GeoPoint `json:"origin"`
}

type deleteRequest struct {
	Action string `json:"action"`
}

func validateOrigin(p *model.GeoPoint) error {
	if p == nil {
		return fmt.Errorf("device position not provided")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("lat must be within [-90,90]")
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("lng must be within [-180,180]")
	}
	return nil
}

// normalizeDeleteAction defaults an empty action to "request".
func normalizeDeleteAction(req *deleteRequest) error {
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	switch req.Action {
	case "":
		req.Action = "request"
	case "request", "confirm", "cancel":
	default:
		return fmt.Errorf("invalid action: %s (allowed: request,confirm,cancel)", req.Action)
	}
	return nil
}
