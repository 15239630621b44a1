package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

type memPersons struct {
	all   []hikcentral.Person
	calls int
}

func (m *memPersons) ListPersons(_ context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Person], error) {
	m.calls++
	var list []hikcentral.Person
	for i := (pageNo - 1) * pageSize; i < pageNo*pageSize && i < len(m.all); i++ {
		list = append(list, m.all[i])
	}
	return &hikcentral.Page[hikcentral.Person]{Total: len(m.all), PageNo: pageNo, PageSize: pageSize, List: list}, nil
}

type staticIndex struct {
	ix    vehicle.Index
	err   error
	calls int
}

func (s *staticIndex) Get(context.Context) (vehicle.Index, error) {
	s.calls++
	return s.ix, s.err
}

func withDNI(p hikcentral.Person, dni string) hikcentral.Person {
	p.CustomFields = []hikcentral.CustomField{{ID: "1", Name: "DNI", Value: dni}}
	return p
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("ana", "ana"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	// 2*3 / (3+10)
	assert.InDelta(t, 6.0/13.0, Similarity("ana", "ana quispe"), 1e-9)
	// multi-byte runes count once
	assert.InDelta(t, 1.0, Similarity("ñandú", "ñandú"), 1e-9)
	assert.InDelta(t, 2.0*4/(4+5), Similarity("peña", "peñas"), 1e-9)
}

func TestRankFiltersAndOrders(t *testing.T) {
	persons := []hikcentral.Person{
		{PersonName: "Ana Quispe", PersonCode: "C-001"},
		{PersonName: "Luis Rojas", PersonCode: "C-002"},
		withDNI(hikcentral.Person{PersonName: "Mariana Torres", PersonCode: "ANA"}, "44556677"),
		{PersonName: "Ana", PersonCode: "C-004"},
	}

	got := Rank(persons, "ana")
	require.Len(t, got, 3)

	// Exact matches (score 1) first in list order, then the partial.
	assert.Equal(t, "ANA", got[0].PersonCode)
	assert.Equal(t, FieldCode, got[0].MatchedField)
	assert.Equal(t, "Ana", got[1].PersonName)
	assert.Equal(t, FieldName, got[1].MatchedField)
	assert.Equal(t, "Ana Quispe", got[2].PersonName)
	assert.InDelta(t, 6.0/13.0, got[2].Score, 1e-9)
}

func TestRankMatchesDNI(t *testing.T) {
	persons := []hikcentral.Person{
		withDNI(hikcentral.Person{PersonName: "Ana Quispe", PersonCode: "X1"}, "70112233"),
		withDNI(hikcentral.Person{PersonName: "Luis Rojas", PersonCode: "X2"}, "44556677"),
	}

	got := Rank(persons, "7011")
	require.Len(t, got, 1)
	assert.Equal(t, FieldDNI, got[0].MatchedField)
	assert.Equal(t, "70112233", got[0].DNI)
}

func TestSearchTruncatesThenEnriches(t *testing.T) {
	var all []hikcentral.Person
	for i := range 250 {
		name := "Persona"
		if i%5 == 0 {
			name = "Ana Persona"
		}
		all = append(all, hikcentral.Person{PersonName: name, PersonCode: "P" + string(rune('a'+i%26))})
	}
	persons := &memPersons{all: all}
	index := &staticIndex{ix: vehicle.Index{
		"Ana Persona": {{PlateNo: "ABC123", VehicleID: "9"}, {PlateNo: "XYZ789", VehicleID: "10"}},
	}}

	s := New(persons, index, Options{Workers: 4, PageSize: 100, Limit: 30})
	got, err := s.Search(context.Background(), "  ANA ")
	require.NoError(t, err)

	assert.Equal(t, 3, persons.calls)
	assert.True(t, got.IsSearch)
	assert.Len(t, got.Persons, 30)
	assert.Equal(t, 30, got.Total)
	assert.Equal(t, 1, index.calls)
	assert.Equal(t, "ABC123, XYZ789", got.Persons[0].PlateNo)
	assert.Len(t, got.Persons[0].Vehicles, 2)
}

func TestSearchEmptyQuery(t *testing.T) {
	s := New(&memPersons{}, nil, Options{})
	_, err := s.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchNoMatchesSkipsVehicleLookup(t *testing.T) {
	index := &staticIndex{}
	s := New(&memPersons{all: []hikcentral.Person{{PersonName: "Luis"}}}, index, Options{})

	got, err := s.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, got.Persons)
	assert.Zero(t, index.calls)
}

func TestPageEnrichesAndSurvivesVehicleFailure(t *testing.T) {
	persons := &memPersons{all: []hikcentral.Person{
		withDNI(hikcentral.Person{PersonName: "Ana Quispe "}, " 70112233 "),
		{PersonName: "Luis Rojas"},
		{PersonName: "Rosa Diaz"},
	}}

	s := New(persons, &staticIndex{ix: vehicle.Index{"Ana Quispe": {{PlateNo: "ABC123"}}}}, Options{})
	got, err := s.Page(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, got.IsSearch)
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Persons, 2)
	assert.Equal(t, "70112233", got.Persons[0].DNI)
	assert.Equal(t, "ABC123", got.Persons[0].PlateNo)
	assert.Empty(t, got.Persons[1].PlateNo)
	assert.NotNil(t, got.Persons[1].Vehicles)

	s = New(persons, &staticIndex{err: errors.New("vendor down")}, Options{})
	got, err = s.Page(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, got.Persons[0].Vehicles)
}
