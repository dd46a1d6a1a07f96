// Package client models the opaque client reference the LMS reconciler
// looks up by (spec.md SS3).
package client

// Client is a reference to the person or organization behind a Contract,
// carrying the identifiers needed to query the LMS.
type Client struct {
	ID    string
	Email string
	// ExternalIDs is a multimap of (system -> external id), e.g.
	// ExternalIDs["lms"] holds the opaque id the LMS reconciler prefers
	// over an email lookup (spec.md SS4.6, SS9 "External-data
	// optionality").
	ExternalIDs map[string]string
}

// ExternalID returns the external id registered for system, or "" if none
// is linked yet.
func (c *Client) ExternalID(system string) string {
	if c.ExternalIDs == nil {
		return ""
	}
	return c.ExternalIDs[system]
}
