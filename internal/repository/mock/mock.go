// Package mock provides in-memory, non-persistent implementations of the
// repository contracts. They exist so the rest of the kit can be exercised
// without a real backend and never fail except where a contract allows a
// not-found outcome.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nadav-galili/starter/internal/apperr"
	"github.com/nadav-galili/starter/internal/repository"
)

// NewRegistry builds a registry backed entirely by in-memory mocks.
func NewRegistry() repository.Registry {
	auth := NewAuth()
	return repository.Registry{
		Auth:          auth,
		Profile:       NewProfile(auth),
		Blobs:         NewBlobs(),
		Collections:   NewCollections(),
		Analytics:     NewAnalytics(),
		Notifications: NewNotifications(),
	}
}

// Auth ------------------------------------------------------------------

type authUser struct {
	user repository.User
	hash []byte
}

// Auth is the in-memory auth backend.
type Auth struct {
	mu       sync.RWMutex
	byEmail  map[string]*authUser
	sessions map[string]string // token -> user ID
	resets   []string
}

var _ repository.Auth = (*Auth)(nil)

func NewAuth() *Auth {
	return &Auth{
		byEmail:  make(map[string]*authUser),
		sessions: make(map[string]string),
	}
}

func (a *Auth) SignUp(_ context.Context, email, password, name string) (repository.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byEmail[email]; exists {
		return repository.Session{}, fmt.Errorf("account %s already exists", email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return repository.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := repository.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	a.byEmail[email] = &authUser{user: user, hash: hash}

	token := uuid.NewString()
	a.sessions[token] = user.ID
	return repository.Session{User: user, Token: token}, nil
}

func (a *Auth) SignIn(_ context.Context, email, password string) (repository.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	au, ok := a.byEmail[email]
	if !ok {
		return repository.Session{}, apperr.NewNotFoundError("account", email)
	}
	if err := bcrypt.CompareHashAndPassword(au.hash, []byte(password)); err != nil {
		return repository.Session{}, fmt.Errorf("invalid credentials")
	}

	token := uuid.NewString()
	a.sessions[token] = au.user.ID
	return repository.Session{User: au.user, Token: token}, nil
}

func (a *Auth) SignOut(_ context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, token)
	return nil
}

func (a *Auth) CurrentUser(_ context.Context, token string) (repository.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	userID, ok := a.sessions[token]
	if !ok {
		return repository.User{}, apperr.NewNotFoundError("session", "")
	}
	for _, au := range a.byEmail {
		if au.user.ID == userID {
			return au.user, nil
		}
	}
	return repository.User{}, apperr.NewNotFoundError("user", userID)
}

func (a *Auth) SendPasswordReset(_ context.Context, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets = append(a.resets, email)
	return nil
}

// Profile ---------------------------------------------------------------

// Profile is the in-memory profile backend. Profiles materialize lazily
// from the auth user on first read.
type Profile struct {
	mu       sync.RWMutex
	auth     *Auth
	profiles map[string]repository.UserProfile
}

var _ repository.Profile = (*Profile)(nil)

func NewProfile(auth *Auth) *Profile {
	return &Profile{auth: auth, profiles: make(map[string]repository.UserProfile)}
}

func (p *Profile) GetProfile(_ context.Context, userID string) (repository.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prof, ok := p.profiles[userID]; ok {
		return prof, nil
	}

	p.auth.mu.RLock()
	defer p.auth.mu.RUnlock()
	for _, au := range p.auth.byEmail {
		if au.user.ID == userID {
			prof := repository.UserProfile{
				UserID:    userID,
				Name:      au.user.Name,
				UpdatedAt: time.Now().UTC(),
			}
			p.profiles[userID] = prof
			return prof, nil
		}
	}
	return repository.UserProfile{}, apperr.NewNotFoundError("profile", userID)
}

func (p *Profile) UpdateProfile(ctx context.Context, userID string, patch repository.ProfilePatch) (repository.UserProfile, error) {
	prof, err := p.GetProfile(ctx, userID)
	if err != nil {
		return repository.UserProfile{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if patch.Name != nil {
		prof.Name = *patch.Name
	}
	if patch.Bio != nil {
		prof.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		prof.AvatarURL = *patch.AvatarURL
	}
	prof.UpdatedAt = time.Now().UTC()
	p.profiles[userID] = prof
	return prof, nil
}

// Blobs -----------------------------------------------------------------

type blob struct {
	data        []byte
	contentType string
}

// Blobs is the in-memory blob store.
type Blobs struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

var _ repository.Blobs = (*Blobs)(nil)

func NewBlobs() *Blobs {
	return &Blobs{blobs: make(map[string]blob)}
}

func (b *Blobs) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[path] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return "mock://storage/" + path, nil
}

func (b *Blobs) Download(_ context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bl, ok := b.blobs[path]
	if !ok {
		return nil, apperr.NewNotFoundError("blob", path)
	}
	return append([]byte(nil), bl.data...), nil
}

func (b *Blobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, path)
	return nil
}

// Collections -----------------------------------------------------------

// Collections is the in-memory keyed-collection CRUD backend.
type Collections struct {
	mu   sync.RWMutex
	data map[string]map[string]repository.Document // collection -> id -> doc
	seq  map[string][]string                       // insertion order per collection
}

var _ repository.Collections = (*Collections)(nil)

func NewCollections() *Collections {
	return &Collections{
		data: make(map[string]map[string]repository.Document),
		seq:  make(map[string][]string),
	}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (c *Collections) Create(_ context.Context, collection string, fields map[string]any) (repository.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data[collection] == nil {
		c.data[collection] = make(map[string]repository.Document)
	}
	now := time.Now().UTC()
	doc := repository.Document{
		ID:        uuid.NewString(),
		Fields:    cloneFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.data[collection][doc.ID] = doc
	c.seq[collection] = append(c.seq[collection], doc.ID)
	return doc, nil
}

func (c *Collections) Get(_ context.Context, collection, id string) (repository.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.data[collection][id]
	if !ok {
		return repository.Document{}, apperr.NewNotFoundError(collection, id)
	}
	doc.Fields = cloneFields(doc.Fields)
	return doc, nil
}

func matches(doc repository.Document, filter map[string]any) bool {
	for k, want := range filter {
		if doc.Fields[k] != want {
			return false
		}
	}
	return true
}

func (c *Collections) List(_ context.Context, collection string, q repository.ListQuery) (repository.DocumentList, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.seq[collection]
	var all []repository.Document
	for _, id := range ids {
		doc, ok := c.data[collection][id]
		if !ok || !matches(doc, q.Filter) {
			continue
		}
		doc.Fields = cloneFields(doc.Fields)
		all = append(all, doc)
	}

	total := len(all)
	if q.Offset > 0 {
		if q.Offset >= len(all) {
			all = nil
		} else {
			all = all[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(all) {
		all = all[:q.Limit]
	}
	return repository.DocumentList{Items: all, Total: total}, nil
}

func (c *Collections) Update(_ context.Context, collection, id string, fields map[string]any) (repository.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.data[collection][id]
	if !ok {
		return repository.Document{}, apperr.NewNotFoundError(collection, id)
	}
	merged := cloneFields(doc.Fields)
	for k, v := range fields {
		merged[k] = v
	}
	doc.Fields = merged
	doc.UpdatedAt = time.Now().UTC()
	c.data[collection][id] = doc

	doc.Fields = cloneFields(doc.Fields)
	return doc, nil
}

func (c *Collections) Delete(_ context.Context, collection, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[collection][id]; !ok {
		return apperr.NewNotFoundError(collection, id)
	}
	delete(c.data[collection], id)
	seq := c.seq[collection]
	for i, sid := range seq {
		if sid == id {
			c.seq[collection] = append(seq[:i:i], seq[i+1:]...)
			break
		}
	}
	return nil
}

// Analytics -------------------------------------------------------------

// Event is one recorded analytics call.
type Event struct {
	Name  string
	Props map[string]any
	At    time.Time
}

// Analytics is the in-memory analytics sink.
type Analytics struct {
	mu     sync.Mutex
	events []Event
	userID string
	traits map[string]any
}

var _ repository.Analytics = (*Analytics)(nil)

func NewAnalytics() *Analytics {
	return &Analytics{}
}

func (a *Analytics) Track(_ context.Context, event string, props map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, Event{Name: event, Props: cloneFields(props), At: time.Now().UTC()})
	return nil
}

func (a *Analytics) Identify(_ context.Context, userID string, traits map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = userID
	a.traits = cloneFields(traits)
	return nil
}

func (a *Analytics) Reset(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = ""
	a.traits = nil
	a.events = nil
	return nil
}

// Events returns recorded events, oldest first.
func (a *Analytics) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Event(nil), a.events...)
}

// Notifications ---------------------------------------------------------

// Notifications is the in-memory device registration backend.
type Notifications struct {
	mu      sync.RWMutex
	devices map[string]repository.DeviceRegistration
}

var _ repository.Notifications = (*Notifications)(nil)

func NewNotifications() *Notifications {
	return &Notifications{devices: make(map[string]repository.DeviceRegistration)}
}

func (n *Notifications) RegisterDevice(_ context.Context, token, platform string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices[token] = repository.DeviceRegistration{
		Token:      token,
		Platform:   platform,
		Registered: time.Now().UTC(),
	}
	return nil
}

func (n *Notifications) UnregisterDevice(_ context.Context, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.devices, token)
	return nil
}

func (n *Notifications) Registrations(_ context.Context) ([]repository.DeviceRegistration, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]repository.DeviceRegistration, 0, len(n.devices))
	for _, d := range n.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}
