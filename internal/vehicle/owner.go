package vehicle

import (
	"strings"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
)

// OwnerKey is the join key between a person and the vehicles registered to
// them. The vendor stores personName with a trailing space, so keys are trimmed.
func OwnerKey(name string) string {
	return strings.TrimSpace(name)
}

// DisplayName formats a person's name the way the vendor stores it on vehicles.
func DisplayName(given, family string) string {
	return strings.TrimSpace(given) + " " + strings.TrimSpace(family)
}

// NormalizePlate canonicalises a plate for comparison.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// OwnedBy returns the vehicles registered to personID. A vehicle that
// carries a personId is matched on it alone; the owner name is the fallback
// for records where the vendor left it empty.
func OwnedBy(vehicles []hikcentral.Vehicle, personID, name string) []hikcentral.Vehicle {
	personID = strings.TrimSpace(personID)
	key := OwnerKey(name)
	var out []hikcentral.Vehicle
	for _, v := range vehicles {
		if owner := strings.TrimSpace(v.PersonID.String()); owner != "" {
			if owner == personID {
				out = append(out, v)
			}
			continue
		}
		if key != "" && OwnerKey(v.PersonName) == key {
			out = append(out, v)
		}
	}
	return out
}
