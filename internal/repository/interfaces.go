// Package repository defines the capability contracts over backend
// concerns: auth, user profile, blob storage, keyed-collection CRUD,
// analytics events, and push-notification registration. These interfaces
// are the only sanctioned boundary for future real-backend integration;
// the mock package satisfies them with process-local storage.
package repository

import (
	"context"
	"time"
)

// User is the authenticated identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated session: user plus bearer token.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Auth covers sign-up, sign-in, and session introspection.
type Auth interface {
	SignUp(ctx context.Context, email, password, name string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (User, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// UserProfile is the mutable public profile of a user.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfilePatch carries partial profile updates; nil fields are untouched.
type ProfilePatch struct {
	Name      *string
	Bio       *string
	AvatarURL *string
}

// Profile covers reading and updating user profiles.
type Profile interface {
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (UserProfile, error)
}

// Blobs covers opaque file storage addressed by path.
type Blobs interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Document is one record in a keyed collection.
type Document struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListQuery filters and paginates a collection listing.
type ListQuery struct {
	// Filter matches documents whose field equals the given value.
	Filter map[string]any
	Limit  int
	Offset int
}

// DocumentList is a page of documents with the collection's total count.
type DocumentList struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
}

// Collections covers generic keyed-collection CRUD.
type Collections interface {
	Create(ctx context.Context, collection string, fields map[string]any) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q ListQuery) (DocumentList, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// Analytics covers product analytics events.
type Analytics interface {
	Track(ctx context.Context, event string, props map[string]any) error
	Identify(ctx context.Context, userID string, traits map[string]any) error
	Reset(ctx context.Context) error
}

// DeviceRegistration records one push-notification target.
type DeviceRegistration struct {
	Token      string    `json:"token"`
	Platform   string    `json:"platform"`
	Registered time.Time `json:"registered"`
}

// Notifications covers push-notification device registration.
type Notifications interface {
	RegisterDevice(ctx context.Context, token, platform string) error
	UnregisterDevice(ctx context.Context, token string) error
	Registrations(ctx context.Context) ([]DeviceRegistration, error)
}

// Registry bundles one implementation of every capability.
type Registry struct {
	Auth          Auth
	Profile       Profile
	Blobs         Blobs
	Collections   Collections
	Analytics     Analytics
	Notifications Notifications
}
