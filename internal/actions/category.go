package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/wizflow/pkg/api"
)

// CreateCategory creates a category. Its output {id, slug, name} is exposed
// under the action token.
type CreateCategory struct {
	id string

	Name      string `param:"name"`
	Slug      string `param:"slug"`
	Color     string `param:"color"`
	TextColor string `param:"text_color"`
	Parent    string `param:"parent"`
}

func (a *CreateCategory) ID() string           { return a.id }
func (a *CreateCategory) Kind() api.ActionKind { return api.ActionCreateCategory }

func (a *CreateCategory) Execute(ctx context.Context, env Env) (Outcome, error) {
	name := env.render(a.Name)
	if name == "" {
		return Outcome{}, errors.New("name is blank")
	}

	nc := api.NewCategory{
		Name:      name,
		Slug:      env.render(a.Slug),
		Color:     env.render(a.Color),
		TextColor: env.render(a.TextColor),
	}
	if ref := env.render(a.Parent); ref != "" {
		parent, err := env.Platform.FindCategory(ctx, ref)
		if err != nil {
			return Outcome{}, fmt.Errorf("parent category %q: %w", ref, err)
		}
		nc.ParentID = parent.ID
	}

	cat, err := env.Platform.CreateCategory(ctx, env.Actor, nc)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Value:   map[string]any{"id": cat.ID, "slug": cat.Slug, "name": cat.Name},
		Message: fmt.Sprintf("created category %d %q", cat.ID, cat.Slug),
	}, nil
}

// WatchCategory sets the notification level of a user on one or more
// categories. The level defaults to watching; User defaults to the actor.
type WatchCategory struct {
	id string

	Categories []string `param:"categories"`
	Level      string   `param:"level"`
	User       string   `param:"user"`
}

func (a *WatchCategory) ID() string           { return a.id }
func (a *WatchCategory) Kind() api.ActionKind { return api.ActionWatchCategory }

func (a *WatchCategory) Execute(ctx context.Context, env Env) (Outcome, error) {
	levelName := env.render(a.Level)
	if levelName == "" {
		levelName = "watching"
	}
	level, ok := api.ParseNotificationLevel(levelName)
	if !ok {
		return Outcome{}, fmt.Errorf("unknown notification level %q", levelName)
	}

	user, err := env.targetUser(ctx, a.User)
	if err != nil {
		return Outcome{}, err
	}

	refs := env.renderList(a.Categories)
	if len(refs) == 0 {
		return Outcome{}, errors.New("no categories")
	}

	var (
		out     Outcome
		watched int
	)
	for _, ref := range refs {
		cat, err := env.Platform.FindCategory(ctx, ref)
		if err == nil {
			err = env.Platform.SetCategoryNotificationLevel(ctx, user.ID, cat.ID, level)
		}
		if err != nil {
			out.Errors = append(out.Errors, env.actionError(a, ref, err))
			continue
		}
		watched++
	}
	if watched == 0 {
		return out, errors.New("no category updated")
	}
	out.Message = fmt.Sprintf("set %s to %s on %d categor(ies)", user.Username, levelName, watched)
	return out, nil
}

// targetUser resolves an optional username template, falling back to the
// actor.
func (e Env) targetUser(ctx context.Context, tmpl string) (api.Actor, error) {
	if tmpl == "" {
		if e.Actor.Anonymous() {
			return api.Actor{}, errors.New("no user to act on")
		}
		return e.Actor, nil
	}
	name := e.render(tmpl)
	if name == "" {
		return api.Actor{}, errors.New("user is blank")
	}
	user, err := e.Platform.FindUser(ctx, name)
	if err != nil {
		return api.Actor{}, fmt.Errorf("user %q: %w", name, err)
	}
	return user, nil
}
