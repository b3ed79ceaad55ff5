package graph

import (
	"context"
	"fmt"
	"net/url"
)

// User represents a directory user from Microsoft Graph.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// GetEmail returns the user's email address, falling back to the principal name.
func (u *User) GetEmail() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}

// UserType classifies a principal id. Unknown means the lookup failed or the
// id is neither a user nor a group (e.g. a service principal); callers must
// treat Unknown conservatively by emitting roles for both interpretations.
type UserType int

const (
	// UserTypeUnknown is an unclassifiable principal.
	UserTypeUnknown UserType = iota
	// UserTypeUser is a directory user.
	UserTypeUser
	// UserTypeGroup is a directory group.
	UserTypeGroup
)

// String returns the classification name.
func (t UserType) String() string {
	switch t {
	case UserTypeUser:
		return "user"
	case UserTypeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// ListUsers returns the first page of directory users.
func (c *Client) ListUsers(ctx context.Context) (*Page[User], error) {
	u := fmt.Sprintf("%s/users?$top=%d&$select=id,displayName,mail,userPrincipalName",
		c.baseURL, defaultPageSize)
	return list[User](ctx, c, u)
}

// GetUser fetches one user by id or principal name.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	u := fmt.Sprintf("%s/users/%s?$select=id,displayName,mail,userPrincipalName",
		c.baseURL, url.PathEscape(id))
	var user User
	if err := c.getJSON(ctx, u, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserType classifies a principal id as user, group or unknown. The
// result is cached for the lifetime of the client, so repeated permission
// grants for the same principal cost one Graph call.
func (c *Client) GetUserType(ctx context.Context, id string) UserType {
	t, err := c.userTypes.Get(ctx, id)
	if err != nil {
		// Unreachable: the loader folds every failure into a classification.
		return UserTypeUnknown
	}
	return t
}

// loadUserType is the cache loader behind GetUserType. A 404 from "get
// user" means the id exists as something other than a user, classified as
// group. Any other failure classifies as unknown: fail open, logged at
// warn, never surfaced as an error.
func (c *Client) loadUserType(ctx context.Context, id string) (UserType, error) {
	_, err := c.GetUser(ctx, id)
	switch {
	case err == nil:
		return UserTypeUser, nil
	case IsNotFound(err):
		return UserTypeGroup, nil
	default:
		c.log.Warn("user type lookup failed, classifying as unknown",
			"id", id, "error", err)
		return UserTypeUnknown, nil
	}
}
