// Package platform provides an in-memory community platform implementing
// api.Platform. It backs the CLI demo server and the engine tests.
package platform

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/petrijr/wizflow/pkg/api"
)

// Post is a created topic or private message as recorded by Memory.
type Post struct {
	api.Topic
	Author     string
	Body       string
	CategoryID int64
	Tags       []string
	Recipients []string
	Private    bool
}

type category struct {
	api.Category
	ParentID  int64
	Color     string
	TextColor string
}

// Memory is a goroutine-safe in-memory platform.
type Memory struct {
	mu sync.Mutex

	nextID     int64
	users      map[string]api.Actor // lowercased username -> actor
	profiles   map[string]map[string]any
	posts      []Post
	categories map[int64]*category
	groups     map[int64]*api.Group
	members    map[int64]map[string]bool
	levels     map[string]map[int64]api.NotificationLevel
}

var _ api.Platform = (*Memory)(nil)

// NewMemory creates an empty platform seeded with the given users.
func NewMemory(users ...api.Actor) *Memory {
	m := &Memory{
		users:      make(map[string]api.Actor),
		profiles:   make(map[string]map[string]any),
		categories: make(map[int64]*category),
		groups:     make(map[int64]*api.Group),
		members:    make(map[int64]map[string]bool),
		levels:     make(map[string]map[int64]api.NotificationLevel),
	}
	for _, u := range users {
		m.AddUser(u)
	}
	return m
}

// AddUser registers or replaces a user.
func (m *Memory) AddUser(u api.Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Username)] = u
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) FindUser(_ context.Context, username string) (api.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return api.Actor{}, fmt.Errorf("%w: user %q", api.ErrNotFound, username)
	}
	return u, nil
}

func (m *Memory) CreateTopic(_ context.Context, author api.Actor, t api.NewTopic) (api.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CategoryID != 0 {
		if _, ok := m.categories[t.CategoryID]; !ok {
			return api.Topic{}, fmt.Errorf("%w: category %d", api.ErrNotFound, t.CategoryID)
		}
	}
	topic := m.newTopicLocked(t.Title)
	m.posts = append(m.posts, Post{
		Topic:      topic,
		Author:     author.Username,
		Body:       t.Body,
		CategoryID: t.CategoryID,
		Tags:       append([]string(nil), t.Tags...),
	})
	return topic, nil
}

func (m *Memory) SendMessage(_ context.Context, author api.Actor, msg api.NewMessage) (api.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(msg.Recipients) == 0 {
		return api.Topic{}, fmt.Errorf("message %q has no recipients", msg.Title)
	}
	topic := m.newTopicLocked(msg.Title)
	m.posts = append(m.posts, Post{
		Topic:      topic,
		Author:     author.Username,
		Body:       msg.Body,
		Recipients: append([]string(nil), msg.Recipients...),
		Private:    true,
	})
	return topic, nil
}

func (m *Memory) newTopicLocked(title string) api.Topic {
	id := m.id()
	slug := Slugify(title)
	if slug == "" {
		slug = "topic"
	}
	return api.Topic{ID: id, Title: title, URL: fmt.Sprintf("/t/%s/%d", slug, id)}
}

func (m *Memory) UpdateProfile(_ context.Context, userID string, attrs map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasUserIDLocked(userID) {
		return fmt.Errorf("%w: user id %q", api.ErrNotFound, userID)
	}
	p := m.profiles[userID]
	if p == nil {
		p = make(map[string]any)
		m.profiles[userID] = p
	}
	for k, v := range attrs {
		p[k] = v
	}
	return nil
}

func (m *Memory) hasUserIDLocked(userID string) bool {
	for _, u := range m.users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (m *Memory) CreateCategory(_ context.Context, _ api.Actor, c api.NewCategory) (api.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slug := c.Slug
	if slug == "" {
		slug = Slugify(c.Name)
	}
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) || existing.Slug == slug {
			return api.Category{}, fmt.Errorf("%w: category %q", api.ErrConflict, c.Name)
		}
	}
	if c.ParentID != 0 {
		if _, ok := m.categories[c.ParentID]; !ok {
			return api.Category{}, fmt.Errorf("%w: parent category %d", api.ErrNotFound, c.ParentID)
		}
	}
	cat := &category{
		Category:  api.Category{ID: m.id(), Name: c.Name, Slug: slug},
		ParentID:  c.ParentID,
		Color:     c.Color,
		TextColor: c.TextColor,
	}
	m.categories[cat.ID] = cat
	return cat.Category, nil
}

func (m *Memory) FindCategory(_ context.Context, ref string) (api.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if c, ok := m.categories[id]; ok {
			return c.Category, nil
		}
	}
	for _, c := range m.categories {
		if c.Slug == ref || strings.EqualFold(c.Name, ref) {
			return c.Category, nil
		}
	}
	return api.Category{}, fmt.Errorf("%w: category %q", api.ErrNotFound, ref)
}

func (m *Memory) SetCategoryNotificationLevel(_ context.Context, userID string, categoryID int64, level api.NotificationLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[categoryID]; !ok {
		return fmt.Errorf("%w: category %d", api.ErrNotFound, categoryID)
	}
	l := m.levels[userID]
	if l == nil {
		l = make(map[int64]api.NotificationLevel)
		m.levels[userID] = l
	}
	l[categoryID] = level
	return nil
}

func (m *Memory) CreateGroup(_ context.Context, _ api.Actor, g api.NewGroup) (api.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.groups {
		if strings.EqualFold(existing.Name, g.Name) {
			return api.Group{}, fmt.Errorf("%w: group %q", api.ErrConflict, g.Name)
		}
	}
	group := &api.Group{ID: m.id(), Name: g.Name, FullName: g.FullName}
	m.groups[group.ID] = group
	return *group, nil
}

func (m *Memory) FindGroup(_ context.Context, ref string) (api.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if g, ok := m.groups[id]; ok {
			return *g, nil
		}
	}
	for _, g := range m.groups {
		if strings.EqualFold(g.Name, ref) {
			return *g, nil
		}
	}
	return api.Group{}, fmt.Errorf("%w: group %q", api.ErrNotFound, ref)
}

func (m *Memory) AddGroupMember(_ context.Context, groupID int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return fmt.Errorf("%w: group %d", api.ErrNotFound, groupID)
	}
	members := m.members[groupID]
	if members == nil {
		members = make(map[string]bool)
		m.members[groupID] = members
	}
	members[userID] = true
	return nil
}

// Posts returns the created topics and messages in creation order.
func (m *Memory) Posts() []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Post(nil), m.posts...)
}

// Profile returns a copy of the profile attributes set for a user.
func (m *Memory) Profile(userID string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.profiles[userID]))
	for k, v := range m.profiles[userID] {
		out[k] = v
	}
	return out
}

// Members returns the sorted user ids of a group.
func (m *Memory) Members(groupID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.members[groupID]))
	for id := range m.members[groupID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NotificationLevel returns the level a user has on a category, and whether
// one was ever set.
func (m *Memory) NotificationLevel(userID string, categoryID int64) (api.NotificationLevel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.levels[userID][categoryID]
	return l, ok
}
