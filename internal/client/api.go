package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
)

// Register signs up and keeps the returned token
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	req := model.RegisterRequest{Email: email, Password: password, FullName: fullName}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Login signs in and keeps the returned token
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	req := model.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout revokes the token server-side, closes the realtime connection
// and forgets the token. The local state is cleared even when the
// request fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/logout", nil, nil, nil)
	c.Close()
	c.SetToken("")
	return err
}

// Profile returns the signed-in user's profile
func (c *Client) Profile(ctx context.Context) (*model.ProfileResponse, error) {
	var profile model.ProfileResponse
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/auth/profile", nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateLocation reports the user's position
func (c *Client) UpdateLocation(ctx context.Context, lat, lng float64) (*model.ProfileResponse, error) {
	var profile model.ProfileResponse
	req := model.UpdateLocationRequest{Lat: &lat, Lng: &lng}
	if err := c.do(ctx, http.MethodPut, apiPrefix+"/profile/location", nil, req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ActiveUsers lists other users who reported a location recently
func (c *Client) ActiveUsers(ctx context.Context) ([]model.ProfileResponse, error) {
	var users []model.ProfileResponse
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/profiles/active", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ResolveAlert marks one of the user's alerts resolved
func (c *Client) ResolveAlert(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/alerts/"+id.String()+"/resolve", nil, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Groups lists the groups the user belongs to
func (c *Client) Groups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/groups", nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup creates a group with the user as admin
func (c *Client) CreateGroup(ctx context.Context, name string, memberIDs ...uuid.UUID) (*model.Group, error) {
	var group model.Group
	req := model.CreateGroupRequest{Name: name, MemberIDs: memberIDs}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/groups", nil, req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}
