package forge

import "net/url"

// SetBaseURL points the underlying GitHub client at a test server.
func (c *Client) SetBaseURL(raw string) error {
	parsed, err := url.Parse(raw + "/")
	if err != nil {
		return err
	}

	c.gh.BaseURL = parsed

	return nil
}
