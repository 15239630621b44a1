package hikcentral

import (
	"context"
	"fmt"
	"strings"
)

const (
	pathAddPerson          = "/artemis/api/resource/v1/person/single/add"
	pathUpdatePerson       = "/artemis/api/resource/v1/person/single/update"
	pathListPersons        = "/artemis/api/resource/v1/person/personList"
	pathPersonByCode       = "/artemis/api/resource/v1/person/personCode/personInfo"
	pathUpdateCustomFields = "/artemis/api/resource/v1/person/personId/customFieldsUpdate"
	pathUpdateFace         = "/artemis/api/resource/v1/person/face/update"
)

type pageRequest struct {
	PageNo   int `json:"pageNo"`
	PageSize int `json:"pageSize"`
}

// call sends body and decodes a successful reply's data into out (which may be nil).
func (c *Client) call(ctx context.Context, path string, body, out any) error {
	resp := c.Send(ctx, path, body)
	if err := resp.Err(path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// AddPerson creates a person.
func (c *Client) AddPerson(ctx context.Context, in PersonInput) (*AddPersonResult, error) {
	in.PersonID = ""
	var out AddPersonResult
	if err := c.call(ctx, pathAddPerson, in, &out); err != nil {
		return nil, err
	}
	if out.PersonCode == "" {
		out.PersonCode = in.PersonCode
	}
	return &out, nil
}

// UpdatePerson updates the base attributes of personID.
func (c *Client) UpdatePerson(ctx context.Context, personID string, in PersonInput) error {
	in.PersonID = personID
	return c.call(ctx, pathUpdatePerson, in, nil)
}

// ListPersons fetches one page of the person list.
func (c *Client) ListPersons(ctx context.Context, pageNo, pageSize int) (*Page[Person], error) {
	var page Page[Person]
	if err := c.call(ctx, pathListPersons, pageRequest{pageNo, pageSize}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPersonByCode fetches a person by personCode.
func (c *Client) GetPersonByCode(ctx context.Context, personCode string) (*Person, error) {
	var p Person
	body := map[string]string{"personCode": personCode}
	if err := c.call(ctx, pathPersonByCode, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateCustomFields writes custom fields for the person identified by personCode.
// The vendor keys this call on personCode only.
func (c *Client) UpdateCustomFields(ctx context.Context, personCode string, fields []CustomField) error {
	body := struct {
		PersonCode string        `json:"personCode"`
		List       []CustomField `json:"list"`
	}{personCode, fields}
	return c.call(ctx, pathUpdateCustomFields, body, nil)
}

// SetDNI upserts the DNI custom field.
func (c *Client) SetDNI(ctx context.Context, personCode, dni string) error {
	return c.UpdateCustomFields(ctx, personCode, []CustomField{{
		ID:    "1",
		Name:  DNIFieldName,
		Type:  0,
		Value: strings.TrimSpace(dni),
	}})
}

// UpdateFace replaces the face photo. faceData is bare base64.
func (c *Client) UpdateFace(ctx context.Context, personCode, faceData string) error {
	if faceData == "" {
		return fmt.Errorf("updating face for %s: empty photo", personCode)
	}
	body := map[string]string{"personCode": personCode, "faceData": faceData}
	return c.call(ctx, pathUpdateFace, body, nil)
}
