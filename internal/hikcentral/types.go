package hikcentral

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Page is one page of a vendor list.
type Page[T any] struct {
	Total    int `json:"total"`
	PageNo   int `json:"pageNo"`
	PageSize int `json:"pageSize"`
	List     []T `json:"list"`
}

// ID is a vendor identifier that may arrive as a JSON string or number.
type ID string

// UnmarshalJSON accepts strings and numbers.
func (id *ID) UnmarshalJSON(b []byte) error {
	*id = ID(scalarString(b))
	return nil
}

func (id ID) String() string { return string(id) }

// DNIFieldName is the custom field that carries the national ID number.
const DNIFieldName = "DNI"

// CustomField is one entry of a person's custom field list.
//
// The vendor writes the name key as "customFiledName" and reads back either
// spelling, so both are accepted and the misspelt one is written.
type CustomField struct {
	ID    string
	Name  string
	Type  int
	Value string
}

type customFieldWire struct {
	ID       ID              `json:"id"`
	Name     string          `json:"customFieldName,omitempty"`
	NameTypo string          `json:"customFiledName,omitempty"`
	Type     ID              `json:"customFieldType"`
	Value    json.RawMessage `json:"customFieldValue,omitempty"`
}

// UnmarshalJSON reads either spelling of the name key.
func (f *CustomField) UnmarshalJSON(b []byte) error {
	var w customFieldWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	f.ID = string(w.ID)
	f.Name = w.Name
	if f.Name == "" {
		f.Name = w.NameTypo
	}
	f.Type, _ = strconv.Atoi(string(w.Type)) //nolint:errcheck // unknown types read as 0
	f.Value = scalarString(w.Value)
	return nil
}

// MarshalJSON writes the name under "customFiledName" only.
func (f CustomField) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Name  string `json:"customFiledName"`
		Type  int    `json:"customFieldType"`
		Value string `json:"customFieldValue"`
	}{f.ID, f.Name, f.Type, f.Value})
}

// Person is a vendor person record.
type Person struct {
	PersonID         ID            `json:"personId,omitempty"`
	PersonCode       string        `json:"personCode,omitempty"`
	PersonName       string        `json:"personName,omitempty"`
	PersonGivenName  string        `json:"personGivenName,omitempty"`
	PersonFamilyName string        `json:"personFamilyName,omitempty"`
	Gender           ID            `json:"gender,omitempty"`
	OrgIndexCode     string        `json:"orgIndexCode,omitempty"`
	OrgName          string        `json:"orgName,omitempty"`
	PhoneNo          string        `json:"phoneNo,omitempty"`
	Email            string        `json:"email,omitempty"`
	Position         string        `json:"position,omitempty"`
	CustomFields     []CustomField `json:"customFieldList,omitempty"`
}

// DNI returns the trimmed value of the DNI custom field, or "".
func (p *Person) DNI() string {
	for _, f := range p.CustomFields {
		if strings.EqualFold(strings.TrimSpace(f.Name), DNIFieldName) {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// FullName is the vendor personName when present, else "given family".
func (p *Person) FullName() string {
	if name := strings.TrimSpace(p.PersonName); name != "" {
		return name
	}
	return strings.TrimSpace(p.PersonGivenName + " " + p.PersonFamilyName)
}

// Vehicle is a vendor vehicle record.
type Vehicle struct {
	VehicleID        ID     `json:"vehicleId,omitempty"`
	PlateNo          string `json:"plateNo"`
	PlateArea        int    `json:"plateArea"`
	PersonID         ID     `json:"personId,omitempty"`
	PersonName       string `json:"personName,omitempty"`
	PersonGivenName  string `json:"personGivenName,omitempty"`
	PersonFamilyName string `json:"personFamilyName,omitempty"`
	VehicleGroup     string `json:"vehicleGroupIndexCode,omitempty"`
	EffectiveDate    string `json:"effectiveDate,omitempty"`
	ExpiredDate      string `json:"expiredDate,omitempty"`
}

// AccessGroup is a privilege group (access level).
type AccessGroup struct {
	ID          ID     `json:"privilegeGroupId"`
	Name        string `json:"privilegeGroupName"`
	Description string `json:"description,omitempty"`
	Type        int    `json:"type,omitempty"`
}

// Organization is a node of the vendor org tree.
type Organization struct {
	IndexCode       string `json:"orgIndexCode"`
	Name            string `json:"orgName"`
	ParentIndexCode string `json:"parentOrgIndexCode,omitempty"`
}

// PersonInput is the writable subset of a person for add and update.
type PersonInput struct {
	PersonID         string `json:"personId,omitempty"`
	PersonCode       string `json:"personCode,omitempty"`
	PersonGivenName  string `json:"personGivenName"`
	PersonFamilyName string `json:"personFamilyName"`
	Gender           int    `json:"gender"`
	OrgIndexCode     string `json:"orgIndexCode,omitempty"`
	PhoneNo          string `json:"phoneNo,omitempty"`
	Email            string `json:"email,omitempty"`
	Position         string `json:"position,omitempty"`
}

// VehicleInput is the writable subset of a vehicle for add and update.
type VehicleInput struct {
	PlateNo       string `json:"plateNo"`
	PersonID      string `json:"personId,omitempty"`
	PersonName    string `json:"personName,omitempty"`
	PlateArea     int    `json:"plateArea"`
	VehicleGroup  string `json:"vehicleGroupIndexCode,omitempty"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	ExpiredDate   string `json:"expiredDate,omitempty"`
}

// AddPersonResult carries what the vendor returned from an add. PersonCode
// is empty when the vendor did not echo it.
type AddPersonResult struct {
	PersonID   string
	PersonCode string
}

// UnmarshalJSON accepts either a bare personId or an object.
func (r *AddPersonResult) UnmarshalJSON(b []byte) error {
	var obj struct {
		PersonID   ID     `json:"personId"`
		PersonCode string `json:"personCode"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		r.PersonID = string(obj.PersonID)
		r.PersonCode = obj.PersonCode
		return nil
	}
	r.PersonID = scalarString(b)
	return nil
}
