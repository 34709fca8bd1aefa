package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/wizflow/pkg/api"
)

// CreateGroup creates a group. Its output {id, name} is exposed under the
// action token.
type CreateGroup struct {
	id string

	Name     string `param:"name"`
	FullName string `param:"full_name"`
	Bio      string `param:"bio"`
}

func (a *CreateGroup) ID() string           { return a.id }
func (a *CreateGroup) Kind() api.ActionKind { return api.ActionCreateGroup }

func (a *CreateGroup) Execute(ctx context.Context, env Env) (Outcome, error) {
	name := env.render(a.Name)
	if name == "" {
		return Outcome{}, errors.New("name is blank")
	}
	g, err := env.Platform.CreateGroup(ctx, env.Actor, api.NewGroup{
		Name:     name,
		FullName: env.render(a.FullName),
		Bio:      env.render(a.Bio),
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Value:   map[string]any{"id": g.ID, "name": g.Name},
		Message: fmt.Sprintf("created group %d %q", g.ID, g.Name),
	}, nil
}

// AddToGroup adds a user (the actor unless User is set) to a group given by
// id or name, typically "action_<id>.id" of an earlier create_group.
type AddToGroup struct {
	id string

	Group string `param:"group"`
	User  string `param:"user"`
}

func (a *AddToGroup) ID() string           { return a.id }
func (a *AddToGroup) Kind() api.ActionKind { return api.ActionAddToGroup }

func (a *AddToGroup) Execute(ctx context.Context, env Env) (Outcome, error) {
	ref := env.render(a.Group)
	if ref == "" {
		return Outcome{}, errors.New("group is blank")
	}
	g, err := env.Platform.FindGroup(ctx, ref)
	if err != nil {
		return Outcome{}, fmt.Errorf("group %q: %w", ref, err)
	}
	user, err := env.targetUser(ctx, a.User)
	if err != nil {
		return Outcome{}, err
	}
	if err := env.Platform.AddGroupMember(ctx, g.ID, user.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: fmt.Sprintf("added %s to group %q", user.Username, g.Name)}, nil
}
