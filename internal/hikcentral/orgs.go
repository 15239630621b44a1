package hikcentral

import "context"

const pathListOrganizations = "/artemis/api/resource/v1/org/advance/orgList"

// ListOrganizations fetches one page of organisations.
func (c *Client) ListOrganizations(ctx context.Context, pageNo, pageSize int) (*Page[Organization], error) {
	var page Page[Organization]
	if err := c.call(ctx, pathListOrganizations, pageRequest{pageNo, pageSize}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
