package person

import (
	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

type vehiclePlan struct {
	remove []hikcentral.Vehicle
	add    []VehicleEntry
}

// planVehicles diffs current against desired by normalised plate. Desired
// entries are deduplicated, first occurrence wins; plates come back
// normalised.
func planVehicles(current []hikcentral.Vehicle, desired []VehicleEntry) vehiclePlan {
	want := make(map[string]bool, len(desired))
	var plan vehiclePlan
	for _, d := range desired {
		plate := vehicle.NormalizePlate(d.PlateNo)
		if plate == "" || want[plate] {
			continue
		}
		want[plate] = true
		d.PlateNo = plate
		plan.add = append(plan.add, d)
	}

	have := make(map[string]bool, len(current))
	for _, v := range current {
		plate := vehicle.NormalizePlate(v.PlateNo)
		have[plate] = true
		if !want[plate] {
			plan.remove = append(plan.remove, v)
		}
	}

	added := plan.add[:0]
	for _, d := range plan.add {
		if !have[d.PlateNo] {
			added = append(added, d)
		}
	}
	plan.add = added
	return plan
}
