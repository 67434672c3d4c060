package reportstore

import (
	"context"
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
)

// CurrentUser fetches the authenticated identity from the identity
// collaborator, once per session. Callers must treat any error here as a
// deny-all signal, never as fatal.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "reportstore.CurrentUser")
	defer span.End()

	body, err := c.do(ctx, "GET", "/current-user", nil, nil)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("reportstore: decoding current user: %w", err)
	}
	return &user, nil
}
