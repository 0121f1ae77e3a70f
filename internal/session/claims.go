// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the identity discriminator embedded in a session token.
type Role string

const (
	RoleAdmin         Role = "Admin"
	RoleUser          Role = "User"
	RoleUserAnonymous Role = "UserAnonymous"
)

// UserClaims identifies the record a user-kind token was issued for.
type UserClaims struct {
	CollectionID string `json:"collection_id"`
	ID           string `json:"id"`
}

// Claims is the payload of a session token.
type Claims struct {
	Identity string      `json:"id"`
	Kind     Role        `json:"kind"`
	User     *UserClaims `json:"user,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued to an administrator.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Kind == RoleAdmin
}

// DecodeClaims reads the claims of token without verifying its signature.
// Trust is delegated to the server's introspection endpoint; the result is
// only used to decide which profile endpoint to call and to gate roles.
func DecodeClaims(token string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	switch c.Kind {
	case RoleAdmin, RoleUser, RoleUserAnonymous:
	default:
		return nil, fmt.Errorf("decode token claims: unknown kind %q", c.Kind)
	}
	return &c, nil
}
