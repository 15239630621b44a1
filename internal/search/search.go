// Package search finds people on the appliance by name, code or DNI.
//
// The vendor has no filter endpoint, so a search reads the entire person
// list, ranks it locally and only then attaches vehicle data to the few
// records that survive.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Matched field names.
const (
	FieldName = "name"
	FieldCode = "code"
	FieldDNI  = "dni"
)

// PersonLister fetches one page of persons.
type PersonLister interface {
	ListPersons(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Person], error)
}

// VehicleIndex supplies the owner to vehicles mapping.
type VehicleIndex interface {
	Get(ctx context.Context) (vehicle.Index, error)
}

// Logger is the subset of logging.Logger the searcher needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Options tunes the searcher.
type Options struct {
	Workers  int
	PageSize int
	Limit    int
	Logger   Logger
}

// Result is a person with derived fields.
type Result struct {
	hikcentral.Person
	DNI          string            `json:"certificateNumber"`
	PlateNo      string            `json:"plateNo"`
	Vehicles     []vehicle.Summary `json:"vehicles"`
	Score        float64           `json:"score,omitempty"`
	MatchedField string            `json:"matchedField,omitempty"`
}

// Listing is one page of people or a ranked result set.
type Listing struct {
	Persons  []Result `json:"persons"`
	Total    int      `json:"total"`
	PageNo   int      `json:"page"`
	PageSize int      `json:"pageSize"`
	IsSearch bool     `json:"isSearch"`
}

// Searcher ranks and lists people.
type Searcher struct {
	persons  PersonLister
	vehicles VehicleIndex
	opts     Options
}

// New returns a searcher. vehicles may be nil, in which case results carry no vehicles.
func New(persons PersonLister, vehicles VehicleIndex, opts Options) *Searcher {
	if opts.Workers <= 0 {
		opts.Workers = 20
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Limit <= 0 {
		opts.Limit = 30
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Searcher{persons: persons, vehicles: vehicles, opts: opts}
}

// Search scans every person, keeps those whose name, code or DNI contains
// query (case-insensitive), ranks them by similarity and returns the top
// results with vehicles attached.
func (s *Searcher) Search(ctx context.Context, query string) (*Listing, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, ErrEmptyQuery
	}

	all, stats, err := hikcentral.Scan(ctx, s.persons.ListPersons, hikcentral.ScanOptions{
		PageSize:    s.opts.PageSize,
		Concurrency: s.opts.Workers,
		Logger:      s.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}
	if stats.Partial() {
		s.opts.Logger.Warn("search ran over an incomplete person list", "failed_pages", stats.FailedPages)
	}

	results := Rank(all, q)
	if len(results) > s.opts.Limit {
		results = results[:s.opts.Limit]
	}
	s.Enrich(ctx, results)

	return &Listing{
		Persons:  results,
		Total:    len(results),
		PageNo:   1,
		PageSize: len(results),
		IsSearch: true,
	}, nil
}

// FromPerson wraps p with its DNI extracted.
func FromPerson(p hikcentral.Person) Result {
	return Result{Person: p, DNI: p.DNI()}
}

// Page returns a single vendor page with DNI and vehicles attached.
func (s *Searcher) Page(ctx context.Context, pageNo, pageSize int) (*Listing, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = s.opts.PageSize
	}

	page, err := s.persons.ListPersons(ctx, pageNo, pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}

	results := make([]Result, 0, len(page.List))
	for _, p := range page.List {
		results = append(results, FromPerson(p))
	}
	s.Enrich(ctx, results)

	return &Listing{
		Persons:  results,
		Total:    page.Total,
		PageNo:   pageNo,
		PageSize: pageSize,
	}, nil
}

// Rank scores persons against the lower-cased query q and returns the
// matches, best first. Ties keep list order.
func Rank(persons []hikcentral.Person, q string) []Result {
	var out []Result
	for _, p := range persons {
		dni := p.DNI()
		fields := [...]struct{ name, value string }{
			{FieldName, p.PersonName},
			{FieldCode, p.PersonCode},
			{FieldDNI, dni},
		}

		best, matched := -1.0, ""
		for _, f := range fields {
			v := strings.ToLower(f.value)
			if !strings.Contains(v, q) {
				continue
			}
			if r := Similarity(q, v); r > best {
				best, matched = r, f.name
			}
		}
		if matched == "" {
			continue
		}
		out = append(out, Result{Person: p, DNI: dni, Score: best, MatchedField: matched})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Enrich attaches vehicles from the cache. A cache failure is logged and
// leaves every result with an empty vehicle list.
func (s *Searcher) Enrich(ctx context.Context, results []Result) {
	for i := range results {
		results[i].Vehicles = []vehicle.Summary{}
	}
	if s.vehicles == nil || len(results) == 0 {
		return
	}

	ix, err := s.vehicles.Get(ctx)
	if err != nil {
		s.opts.Logger.Warn("vehicle lookup failed, returning persons without vehicles", "error", err)
		return
	}
	for i := range results {
		if vs := ix[vehicle.OwnerKey(results[i].FullName())]; len(vs) > 0 {
			results[i].Vehicles = vs
		}
		results[i].PlateNo = strings.Join(ix.Plates(results[i].FullName()), ", ")
	}
}
