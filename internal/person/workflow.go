package person

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

// dateLayout is the vendor's validity timestamp format.
const dateLayout = "2006-01-02T15:04:05-07:00"

// Gateway is the vendor surface the workflow drives.
type Gateway interface {
	AddPerson(ctx context.Context, in hikcentral.PersonInput) (*hikcentral.AddPersonResult, error)
	UpdatePerson(ctx context.Context, personID string, in hikcentral.PersonInput) error
	ListPersons(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Person], error)
	SetDNI(ctx context.Context, personCode, dni string) error
	UpdateFace(ctx context.Context, personCode, faceData string) error
	ListVehicles(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Vehicle], error)
	AddVehicle(ctx context.Context, in hikcentral.VehicleInput) (hikcentral.ID, error)
	DeleteVehicles(ctx context.Context, ids ...string) error
}

// Invalidator is told when the vehicle set changed.
type Invalidator interface {
	Invalidate()
}

// Logger is the subset of logging.Logger the workflow needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Options tunes the workflow.
type Options struct {
	// ResolveDelay is waited before scanning for a newly created person's code.
	ResolveDelay    time.Duration
	ResolvePageSize int
	ResolveMaxPages int

	VehicleWorkers  int
	VehiclePageSize int
	VehicleMaxPages int

	// ValidityDays is the default vehicle validity window length.
	ValidityDays int
	Location     *time.Location

	Logger Logger
}

// Workflow runs person create and update requests.
type Workflow struct {
	gw       Gateway
	vehicles Invalidator
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewWorkflow builds a workflow over gw. vehicles may be nil.
func NewWorkflow(gw Gateway, vehicles Invalidator, opts Options) *Workflow {
	if opts.ResolvePageSize <= 0 {
		opts.ResolvePageSize = 200
	}
	if opts.ResolveMaxPages <= 0 {
		opts.ResolveMaxPages = 50
	}
	if opts.VehicleWorkers <= 0 {
		opts.VehicleWorkers = 10
	}
	if opts.VehiclePageSize <= 0 {
		opts.VehiclePageSize = 200
	}
	if opts.VehicleMaxPages <= 0 {
		opts.VehicleMaxPages = 50
	}
	if opts.ValidityDays <= 0 {
		opts.ValidityDays = 730
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Workflow{
		gw:       gw,
		vehicles: vehicles,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Create adds a person and runs the follow-up steps. The error is non-nil
// only for validation failures and a failed base add.
func (w *Workflow) Create(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rep := &Report{}
	res, err := w.gw.AddPerson(ctx, req.input())
	if err != nil {
		rep.record(StepBase, StatusFailed, "", err)
		return rep, fmt.Errorf("adding person: %w", err)
	}
	rep.PersonID = res.PersonID
	rep.record(StepBase, StatusSucceeded, "person added", nil)

	w.resolveCode(ctx, rep, req.PersonCode, res.PersonCode, true)
	w.runFollowUps(ctx, rep, &req, true)
	w.logReport("person created", rep)
	return rep, nil
}

// Update changes personID and runs the follow-up steps.
func (w *Workflow) Update(ctx context.Context, personID string, req Request) (*Report, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return nil, fmt.Errorf("%w: personId is required", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rep := &Report{PersonID: personID}
	if err := w.gw.UpdatePerson(ctx, personID, req.input()); err != nil {
		rep.record(StepBase, StatusFailed, "", err)
		return rep, fmt.Errorf("updating person: %w", err)
	}
	rep.record(StepBase, StatusSucceeded, "person updated", nil)

	w.resolveCode(ctx, rep, req.PersonCode, "", false)
	w.runFollowUps(ctx, rep, &req, false)
	w.logReport("person updated", rep)
	return rep, nil
}

func (w *Workflow) runFollowUps(ctx context.Context, rep *Report, req *Request, created bool) {
	w.customFields(ctx, rep, req)
	w.photo(ctx, rep, req)
	w.reconcileVehicles(ctx, rep, req, created)
}

func (w *Workflow) logReport(msg string, rep *Report) {
	args := []any{
		"person_id", rep.PersonID,
		"person_code", rep.PersonCode,
		"vehicles_added", len(rep.VehiclesAdded),
		"vehicles_removed", len(rep.VehiclesRemoved),
	}
	if failed := rep.Failed(); len(failed) > 0 {
		w.opts.Logger.Warn(msg+" with failed steps", append(args, "failed_steps", failed)...)
		return
	}
	w.opts.Logger.Info(msg, args...)
}

// resolveCode settles the personCode: supplied, echoed by the add, or found
// by scanning the person list for the personId.
func (w *Workflow) resolveCode(ctx context.Context, rep *Report, supplied, returned string, justCreated bool) {
	if code := strings.TrimSpace(supplied); code != "" {
		rep.PersonCode = code
		rep.record(StepResolveCode, StatusSucceeded, "supplied", nil)
		return
	}
	if returned != "" {
		rep.PersonCode = returned
		rep.record(StepResolveCode, StatusSucceeded, "returned by vendor", nil)
		return
	}
	if rep.PersonID == "" {
		rep.record(StepResolveCode, StatusSkipped, "no personId", nil)
		return
	}

	if justCreated {
		w.sleep(ctx, w.opts.ResolveDelay)
	}

	code, pages, err := w.findCode(ctx, rep.PersonID)
	switch {
	case err != nil:
		w.opts.Logger.Warn("resolving person code failed", "person_id", rep.PersonID, "error", err)
		rep.record(StepResolveCode, StatusFailed, "", err)
	case code == "":
		rep.record(StepResolveCode, StatusFailed, fmt.Sprintf("not found in %d pages", pages), nil)
	default:
		rep.PersonCode = code
		rep.record(StepResolveCode, StatusSucceeded, fmt.Sprintf("found on page %d", pages), nil)
	}
}

// findCode walks the person list sequentially until personID appears,
// a page comes back empty, the total is exhausted or the page cap is hit.
func (w *Workflow) findCode(ctx context.Context, personID string) (code string, pages int, err error) {
	size := w.opts.ResolvePageSize
	for pageNo := 1; pageNo <= w.opts.ResolveMaxPages; pageNo++ {
		page, err := w.gw.ListPersons(ctx, pageNo, size)
		if err != nil {
			return "", pageNo, err
		}
		for _, p := range page.List {
			if p.PersonID.String() == personID {
				return p.PersonCode, pageNo, nil
			}
		}
		if len(page.List) == 0 || pageNo*size >= page.Total {
			return "", pageNo, nil
		}
	}
	return "", w.opts.ResolveMaxPages, nil
}

func (w *Workflow) customFields(ctx context.Context, rep *Report, req *Request) {
	dni := strings.TrimSpace(req.DNI)
	switch {
	case dni == "":
		rep.record(StepCustomFields, StatusSkipped, "no DNI", nil)
		return
	case rep.PersonCode == "":
		rep.record(StepCustomFields, StatusSkipped, "personCode unresolved", nil)
		return
	}

	if err := w.gw.SetDNI(ctx, rep.PersonCode, dni); err != nil {
		w.opts.Logger.Warn("setting DNI failed", "person_code", rep.PersonCode, "error", err)
		rep.record(StepCustomFields, StatusFailed, "", err)
		return
	}
	rep.record(StepCustomFields, StatusSucceeded, "DNI set", nil)
}

func (w *Workflow) photo(ctx context.Context, rep *Report, req *Request) {
	face := StripDataURL(req.Photo)
	switch {
	case face == "":
		rep.record(StepPhoto, StatusSkipped, "no photo", nil)
		return
	case !req.Allow.Photo:
		rep.record(StepPhoto, StatusSkipped, "not permitted", nil)
		return
	case rep.PersonCode == "":
		rep.record(StepPhoto, StatusSkipped, "personCode unresolved", nil)
		return
	}

	if err := w.gw.UpdateFace(ctx, rep.PersonCode, face); err != nil {
		w.opts.Logger.Warn("uploading photo failed", "person_code", rep.PersonCode, "error", err)
		rep.record(StepPhoto, StatusFailed, "", err)
		return
	}
	rep.record(StepPhoto, StatusSucceeded, "photo uploaded", nil)
}

// ErrIncompleteVehicleScan is reported when the current vehicle set could
// not be read in full; reconciling against it would add duplicates.
var ErrIncompleteVehicleScan = errors.New("vehicle list incomplete")

// reconcileVehicles diffs the person's registered plates against the
// request. A person added in this run owns nothing yet, so creation only
// adds and never reads the vehicle list.
func (w *Workflow) reconcileVehicles(ctx context.Context, rep *Report, req *Request, created bool) {
	desired := req.desiredVehicles()
	switch {
	case desired == nil:
		rep.record(StepVehicles, StatusSkipped, "not specified", nil)
		return
	case !req.Allow.Vehicles:
		rep.record(StepVehicles, StatusSkipped, "not permitted", nil)
		return
	case rep.PersonID == "":
		rep.record(StepVehicles, StatusSkipped, "no personId", nil)
		return
	}

	var current []hikcentral.Vehicle
	if !created {
		all, stats, err := hikcentral.Scan(ctx, w.gw.ListVehicles, hikcentral.ScanOptions{
			PageSize:    w.opts.VehiclePageSize,
			Concurrency: w.opts.VehicleWorkers,
			MaxPages:    w.opts.VehicleMaxPages,
		})
		if err == nil && stats.Partial() {
			err = fmt.Errorf("%w: %d pages failed", ErrIncompleteVehicleScan, stats.FailedPages)
		}
		if err != nil {
			w.opts.Logger.Warn("reading current vehicles failed", "person_id", rep.PersonID, "error", err)
			rep.record(StepVehicles, StatusFailed, "", err)
			return
		}
		current = vehicle.OwnedBy(all, rep.PersonID, req.DisplayName())
	}

	plan := planVehicles(current, desired)

	var errs []error
	for _, cur := range plan.remove {
		if err := w.gw.DeleteVehicles(ctx, cur.VehicleID.String()); err != nil {
			errs = append(errs, err)
			continue
		}
		rep.VehiclesRemoved = append(rep.VehiclesRemoved, vehicle.NormalizePlate(cur.PlateNo))
	}

	defEffective, defExpired := w.defaultWindow()
	for _, want := range plan.add {
		in := hikcentral.VehicleInput{
			PlateNo:       want.PlateNo,
			PersonID:      rep.PersonID,
			EffectiveDate: firstNonEmpty(want.EffectiveDate, req.EffectiveDate, defEffective),
			ExpiredDate:   firstNonEmpty(want.ExpiredDate, req.ExpiredDate, defExpired),
		}
		if _, err := w.gw.AddVehicle(ctx, in); err != nil {
			errs = append(errs, fmt.Errorf("adding %s: %w", want.PlateNo, err))
			continue
		}
		rep.VehiclesAdded = append(rep.VehiclesAdded, want.PlateNo)
	}

	if len(rep.VehiclesAdded)+len(rep.VehiclesRemoved) > 0 && w.vehicles != nil {
		w.vehicles.Invalidate()
	}

	detail := fmt.Sprintf("added %d, removed %d", len(rep.VehiclesAdded), len(rep.VehiclesRemoved))
	if err := errors.Join(errs...); err != nil {
		w.opts.Logger.Warn("vehicle reconciliation incomplete", "person_id", rep.PersonID, "error", err)
		rep.record(StepVehicles, StatusFailed, detail, err)
		return
	}
	rep.record(StepVehicles, StatusSucceeded, detail, nil)
}

// defaultWindow is start of today through end of day ValidityDays from now.
func (w *Workflow) defaultWindow() (effective, expired string) {
	now := w.now().In(w.opts.Location)
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, w.opts.Location)
	end := time.Date(y, m, d+w.opts.ValidityDays, 23, 59, 59, 0, w.opts.Location)
	return start.Format(dateLayout), end.Format(dateLayout)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
