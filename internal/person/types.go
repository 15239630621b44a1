package person

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
)

// ErrInvalidRequest wraps every local validation failure.
var ErrInvalidRequest = errors.New("invalid person request")

// VehicleEntry is one desired vehicle. Empty dates fall back to the
// request-level dates, then to the default validity window.
type VehicleEntry struct {
	PlateNo       string `json:"plateNo"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	ExpiredDate   string `json:"expiredDate,omitempty"`
}

// Allow records which optional steps the caller may run.
type Allow struct {
	Photo    bool
	Vehicles bool
}

// AllowAll permits every step.
var AllowAll = Allow{Photo: true, Vehicles: true}

// Request is a create or update.
type Request struct {
	PersonCode   string        `json:"personCode,omitempty"`
	GivenName    string        `json:"personGivenName"`
	FamilyName   string        `json:"personFamilyName"`
	Gender       hikcentral.ID `json:"gender,omitempty"`
	OrgIndexCode string        `json:"orgIndexCode,omitempty"`
	PhoneNo      string        `json:"phoneNo,omitempty"`
	Email        string        `json:"email,omitempty"`
	Position     string        `json:"position,omitempty"`

	// DNI is written to the DNI custom field when non-blank.
	DNI string `json:"certificateNumber,omitempty"`

	// Photo is base64, optionally as a data URL.
	Photo string `json:"photo,omitempty"`

	// Vehicles is the desired vehicle set. Nil leaves vehicles untouched;
	// an empty list removes them all.
	Vehicles []VehicleEntry `json:"vehicles,omitempty"`

	// PlateNo is the older comma-separated form of Vehicles, used with the
	// request-level dates when Vehicles is nil.
	PlateNo string `json:"plateNo,omitempty"`

	EffectiveDate string `json:"effectiveDate,omitempty"`
	ExpiredDate   string `json:"expiredDate,omitempty"`

	Allow Allow `json:"-"`
}

// Validate checks the request before any vendor call.
func (r *Request) Validate() error {
	var problems []string
	if strings.TrimSpace(r.GivenName) == "" {
		problems = append(problems, "personGivenName is required")
	}
	if strings.TrimSpace(r.FamilyName) == "" {
		problems = append(problems, "personFamilyName is required")
	}
	if r.Gender != "" {
		if _, err := strconv.Atoi(string(r.Gender)); err != nil {
			problems = append(problems, "gender must be numeric")
		}
	}
	for i, v := range r.Vehicles {
		if strings.TrimSpace(v.PlateNo) == "" {
			problems = append(problems, fmt.Sprintf("vehicles[%d].plateNo is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// DisplayName is the name the vendor stores for this person.
func (r *Request) DisplayName() string {
	return strings.TrimSpace(r.GivenName) + " " + strings.TrimSpace(r.FamilyName)
}

func (r *Request) input() hikcentral.PersonInput {
	gender, _ := strconv.Atoi(string(r.Gender)) //nolint:errcheck // validated
	return hikcentral.PersonInput{
		PersonCode:       strings.TrimSpace(r.PersonCode),
		PersonGivenName:  strings.TrimSpace(r.GivenName),
		PersonFamilyName: strings.TrimSpace(r.FamilyName),
		Gender:           gender,
		OrgIndexCode:     r.OrgIndexCode,
		PhoneNo:          r.PhoneNo,
		Email:            r.Email,
		Position:         r.Position,
	}
}

// desiredVehicles returns the desired set, or nil when vehicles were not specified.
func (r *Request) desiredVehicles() []VehicleEntry {
	if r.Vehicles != nil {
		return r.Vehicles
	}
	if strings.TrimSpace(r.PlateNo) == "" {
		return nil
	}
	var out []VehicleEntry
	for _, p := range strings.Split(r.PlateNo, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, VehicleEntry{PlateNo: p})
		}
	}
	return out
}

// Step names.
const (
	StepBase         = "base"
	StepResolveCode  = "resolve_code"
	StepCustomFields = "custom_fields"
	StepPhoto        = "photo"
	StepVehicles     = "vehicles"
)

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// StepResult is one step's outcome.
type StepResult struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
	Err    error      `json:"-"`
}

// Report summarises a run.
type Report struct {
	PersonID        string       `json:"personId"`
	PersonCode      string       `json:"personCode,omitempty"`
	Steps           []StepResult `json:"steps"`
	VehiclesAdded   []string     `json:"vehiclesAdded,omitempty"`
	VehiclesRemoved []string     `json:"vehiclesRemoved,omitempty"`
}

// Step returns the result for name, if that step ran.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Failed lists the steps that failed.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			out = append(out, s.Step)
		}
	}
	return out
}

func (r *Report) record(step string, status StepStatus, detail string, err error) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: status, Detail: detail, Err: err})
}

// StripDataURL removes a "data:...;base64," header.
func StripDataURL(photo string) string {
	photo = strings.TrimSpace(photo)
	if !strings.HasPrefix(photo, "data:") {
		return photo
	}
	if _, rest, ok := strings.Cut(photo, ","); ok {
		return rest
	}
	return photo
}
