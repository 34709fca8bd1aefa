package api

import "context"

// The host community platform is reached through the narrow ports below.
// Implementations apply their own timeout and retry policy; the engine treats
// each call as synchronous. Missing targets should be reported as ErrNotFound
// and name collisions as ErrConflict (wrapped is fine).

// Topic is a created discussion thread or private message.
type Topic struct {
	ID    int64
	Title string
	URL   string
}

// NewTopic describes a topic to create.
type NewTopic struct {
	Title      string
	Body       string
	CategoryID int64
	Tags       []string
}

// NewMessage describes a private message to create.
type NewMessage struct {
	Title      string
	Body       string
	Recipients []string // usernames, already resolved
}

// Category is a platform category.
type Category struct {
	ID   int64
	Name string
	Slug string
}

// NewCategory describes a category to create.
type NewCategory struct {
	Name      string
	Slug      string
	Color     string
	TextColor string
	ParentID  int64
}

// Group is a platform group.
type Group struct {
	ID       int64
	Name     string
	FullName string
}

// NewGroup describes a group to create.
type NewGroup struct {
	Name     string
	FullName string
	Bio      string
}

// NotificationLevel is a user's subscription level for a category.
type NotificationLevel int

const (
	NotificationMuted    NotificationLevel = 0
	NotificationRegular  NotificationLevel = 1
	NotificationTracking NotificationLevel = 2
	NotificationWatching NotificationLevel = 3
)

// ParseNotificationLevel maps a level name to its value.
func ParseNotificationLevel(name string) (NotificationLevel, bool) {
	switch name {
	case "muted":
		return NotificationMuted, true
	case "regular", "":
		return NotificationRegular, true
	case "tracking":
		return NotificationTracking, true
	case "watching":
		return NotificationWatching, true
	}
	return 0, false
}

// Upload is an uploaded file reference as submitted by upload fields.
type Upload struct {
	ID               int64  `json:"id" mapstructure:"id"`
	URL              string `json:"url" mapstructure:"url"`
	OriginalFilename string `json:"original_filename,omitempty" mapstructure:"original_filename"`
	Filesize         int64  `json:"filesize,omitempty" mapstructure:"filesize"`
}

// Users resolves usernames to actors.
type Users interface {
	FindUser(ctx context.Context, username string) (Actor, error)
}

// Topics creates topics and private messages.
type Topics interface {
	CreateTopic(ctx context.Context, author Actor, t NewTopic) (Topic, error)
	SendMessage(ctx context.Context, author Actor, m NewMessage) (Topic, error)
}

// Profiles mutates user profile attributes. Values are strings, or Upload
// for image attributes.
type Profiles interface {
	UpdateProfile(ctx context.Context, userID string, attrs map[string]any) error
}

// Categories creates, finds and subscribes to categories. FindCategory accepts
// an id, slug or name.
type Categories interface {
	CreateCategory(ctx context.Context, author Actor, c NewCategory) (Category, error)
	FindCategory(ctx context.Context, ref string) (Category, error)
	SetCategoryNotificationLevel(ctx context.Context, userID string, categoryID int64, level NotificationLevel) error
}

// Groups creates, finds and populates groups. FindGroup accepts an id or name.
type Groups interface {
	CreateGroup(ctx context.Context, author Actor, g NewGroup) (Group, error)
	FindGroup(ctx context.Context, ref string) (Group, error)
	AddGroupMember(ctx context.Context, groupID int64, userID string) error
}

// Platform bundles every capability the action handlers need.
type Platform interface {
	Users
	Topics
	Profiles
	Categories
	Groups
}
