package hikcentral

import (
	"context"
	"errors"
	"fmt"
)

const (
	pathListVehicles  = "/artemis/api/resource/v1/vehicle/vehicleList"
	pathAddVehicle    = "/artemis/api/resource/v1/vehicle/single/add"
	pathUpdateVehicle = "/artemis/api/resource/v1/vehicle/single/update"
	pathDeleteVehicle = "/artemis/api/resource/v1/vehicle/single/delete"
)

// ListVehicles fetches one page of vehicles in the configured vehicle group.
func (c *Client) ListVehicles(ctx context.Context, pageNo, pageSize int) (*Page[Vehicle], error) {
	body := struct {
		PageNo       int    `json:"pageNo"`
		PageSize     int    `json:"pageSize"`
		VehicleGroup string `json:"vehicleGroupIndexCode"`
	}{pageNo, pageSize, c.vehicleGroup}

	var page Page[Vehicle]
	if err := c.call(ctx, pathListVehicles, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AddVehicle registers a vehicle. An empty group is filled from config.
func (c *Client) AddVehicle(ctx context.Context, in VehicleInput) (ID, error) {
	if in.VehicleGroup == "" {
		in.VehicleGroup = c.vehicleGroup
	}
	resp := c.Send(ctx, pathAddVehicle, in)
	if err := resp.Err(pathAddVehicle); err != nil {
		return "", err
	}
	return ID(dataID(resp.Data, "vehicleId")), nil
}

// UpdateVehicle changes an existing vehicle, matched by plate.
func (c *Client) UpdateVehicle(ctx context.Context, in VehicleInput) error {
	return c.call(ctx, pathUpdateVehicle, in, nil)
}

// DeleteVehicles deletes each vehicle with its own call. All ids are
// attempted; the failures are joined.
func (c *Client) DeleteVehicles(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		body := map[string]string{"vehicleId": id}
		if err := c.call(ctx, pathDeleteVehicle, body, nil); err != nil {
			errs = append(errs, fmt.Errorf("deleting vehicle %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
