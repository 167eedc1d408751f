// Package model defines the data structures used throughout the storefront.
package model

import "time"

// User represents a customer or administrator account.
//
// Google is the identity provider, so ID is the provider-issued subject
// ("sub" claim). It is stable per Google account and is used as the primary
// key directly: repeated logins upsert the same row instead of creating a
// new one.
//
// IsAdmin is never changed by a login. It is set manually in the database
// or through the bootstrap admin list in the configuration.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
