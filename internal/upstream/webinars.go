package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// ListWebinars returns the organizer's webinars.
func (c *Client) ListWebinars(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/webinars", nil)
}

// GetWebinar returns one webinar.
func (c *Client) GetWebinar(ctx context.Context, webinarKey string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/webinars/"+url.PathEscape(webinarKey), nil)
}

// ListAttendees returns everyone who attended any session of the webinar.
func (c *Client) ListAttendees(ctx context.Context, webinarKey string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/webinars/"+url.PathEscape(webinarKey)+"/attendees", nil)
}

// GetRegistrant returns a registrant including their registration survey answers.
func (c *Client) GetRegistrant(ctx context.Context, webinarKey, registrantKey string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet,
		"/webinars/"+url.PathEscape(webinarKey)+"/registrants/"+url.PathEscape(registrantKey), nil)
}

// SendChat posts an in-session chat message to one attendee.
func (c *Client) SendChat(ctx context.Context, webinarKey, sessionKey, registrantKey, message string) error {
	path := "/webinars/" + url.PathEscape(webinarKey) +
		"/sessions/" + url.PathEscape(sessionKey) +
		"/attendees/" + url.PathEscape(registrantKey) + "/chats"
	_, err := c.Do(ctx, http.MethodPost, path, map[string]string{"message": message})
	return err
}
