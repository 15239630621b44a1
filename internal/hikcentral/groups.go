package hikcentral

import (
	"context"
	"errors"
	"fmt"
)

const (
	pathListAccessGroups   = "/artemis/api/acs/v1/privilege/group"
	pathAddToAccessGroup   = "/artemis/api/acs/v1/privilege/group/single/addPersons"
	privilegeTypeAccessLvl = 1
)

// ListAccessGroups fetches one page of access-control privilege groups.
func (c *Client) ListAccessGroups(ctx context.Context, pageNo, pageSize int) (*Page[AccessGroup], error) {
	body := struct {
		PageNo   int `json:"pageNo"`
		PageSize int `json:"pageSize"`
		Type     int `json:"type"`
	}{pageNo, pageSize, privilegeTypeAccessLvl}

	var page Page[AccessGroup]
	if err := c.call(ctx, pathListAccessGroups, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type groupMember struct {
	ID string `json:"id"`
}

// AddPersonToAccessGroup adds personID to the privilege group.
func (c *Client) AddPersonToAccessGroup(ctx context.Context, groupID, personID string) error {
	body := struct {
		GroupID string        `json:"privilegeGroupId"`
		Type    int           `json:"type"`
		List    []groupMember `json:"list"`
	}{groupID, privilegeTypeAccessLvl, []groupMember{{ID: personID}}}
	return c.call(ctx, pathAddToAccessGroup, body, nil)
}

// AssignAccessLevel resolves personCode to a personId and adds that person
// to groupID.
func (c *Client) AssignAccessLevel(ctx context.Context, personCode, groupID string) error {
	p, err := c.GetPersonByCode(ctx, personCode)
	if err != nil {
		var ve *VendorError
		if errors.As(err, &ve) && !ve.Local() {
			return fmt.Errorf("%w: %s: %w", ErrPersonNotResolved, personCode, err)
		}
		return err
	}
	if p.PersonID == "" {
		return fmt.Errorf("%w: %s", ErrMissingPersonID, personCode)
	}
	return c.AddPersonToAccessGroup(ctx, groupID, p.PersonID.String())
}
