package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/wizflow/pkg/api"
)

// CreateTopic creates a discussion topic.
type CreateTopic struct {
	id string

	Title    string   `param:"title"`
	Body     string   `param:"body"`
	Category string   `param:"category"`
	Tags     []string `param:"tags"`

	// Redirect sends the user to the new topic once the wizard completes.
	Redirect bool `param:"redirect"`
}

func (a *CreateTopic) ID() string           { return a.id }
func (a *CreateTopic) Kind() api.ActionKind { return api.ActionCreateTopic }

func (a *CreateTopic) Execute(ctx context.Context, env Env) (Outcome, error) {
	title := env.render(a.Title)
	if title == "" {
		return Outcome{}, errors.New("title is blank")
	}
	body := env.render(a.Body)
	if body == "" {
		return Outcome{}, errors.New("body is blank")
	}

	topic := api.NewTopic{Title: title, Body: body, Tags: env.renderList(a.Tags)}
	if ref := env.render(a.Category); ref != "" {
		cat, err := env.Platform.FindCategory(ctx, ref)
		if err != nil {
			return Outcome{}, fmt.Errorf("category %q: %w", ref, err)
		}
		topic.CategoryID = cat.ID
	}

	created, err := env.Platform.CreateTopic(ctx, env.Actor, topic)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Value:   map[string]any{"id": created.ID, "url": created.URL, "title": created.Title},
		Message: fmt.Sprintf("created topic %d %q", created.ID, created.Title),
	}
	if a.Redirect {
		out.RedirectOnComplete = created.URL
	}
	return out, nil
}

// SendMessage creates a private message to one or more recipients.
// Unknown recipients are reported individually; the others still receive
// the message.
type SendMessage struct {
	id string

	Title      string   `param:"title"`
	Body       string   `param:"body"`
	Recipients []string `param:"recipients"`
}

func (a *SendMessage) ID() string           { return a.id }
func (a *SendMessage) Kind() api.ActionKind { return api.ActionSendMessage }

func (a *SendMessage) Execute(ctx context.Context, env Env) (Outcome, error) {
	title := env.render(a.Title)
	if title == "" {
		return Outcome{}, errors.New("title is blank")
	}
	body := env.render(a.Body)
	if body == "" {
		return Outcome{}, errors.New("body is blank")
	}

	var (
		out        Outcome
		recipients []string
	)
	for _, name := range env.renderList(a.Recipients) {
		user, err := env.Platform.FindUser(ctx, name)
		if err != nil {
			out.Errors = append(out.Errors, env.actionError(a, name, err))
			continue
		}
		recipients = append(recipients, user.Username)
	}
	if len(recipients) == 0 {
		return out, errors.New("no valid recipients")
	}

	msg, err := env.Platform.SendMessage(ctx, env.Actor, api.NewMessage{Title: title, Body: body, Recipients: recipients})
	if err != nil {
		return out, err
	}
	out.Value = map[string]any{"id": msg.ID, "url": msg.URL, "title": msg.Title}
	out.Message = fmt.Sprintf("sent message %d %q to %d recipient(s)", msg.ID, msg.Title, len(recipients))
	return out, nil
}
