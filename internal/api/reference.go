package api

import "net/http"

// handleListAccessLevels returns one page of access-control privilege groups.
func (s *Server) handleListAccessLevels(w http.ResponseWriter, r *http.Request) {
	pageNo := queryInt(r, 1, "page_no", "page")
	pageSize := min(queryInt(r, defaultPageSize, "page_size"), maxPageSize)

	page, err := s.vendor.ListAccessGroups(r.Context(), pageNo, pageSize)
	if err != nil {
		writeVendorError(w, "error listing access levels", err)
		return
	}
	writeOK(w, http.StatusOK, "list retrieved", map[string]any{
		"groups": page.List,
		"total":  page.Total,
	})
}

// handleListOrganizations returns one page of organisations.
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	pageNo := queryInt(r, 1, "page_no", "page")
	pageSize := min(queryInt(r, defaultPageSize, "page_size"), maxPageSize)

	page, err := s.vendor.ListOrganizations(r.Context(), pageNo, pageSize)
	if err != nil {
		writeVendorError(w, "error listing organizations", err)
		return
	}
	writeOK(w, http.StatusOK, "list retrieved", map[string]any{
		"organizations": page.List,
		"total":         page.Total,
	})
}
