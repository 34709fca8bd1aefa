package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petrijr/wizflow/pkg/api"
)

const (
	routeOnNext     = "next"
	routeOnComplete = "complete"
)

// RouteTo sets a redirect URL, either for when the current step is left
// (On: "next") or for when the wizard completes (the default).
type RouteTo struct {
	id string

	URL string `param:"url"`
	On  string `param:"on"`
}

func (a *RouteTo) ID() string           { return a.id }
func (a *RouteTo) Kind() api.ActionKind { return api.ActionRouteTo }

func (a *RouteTo) Execute(_ context.Context, env Env) (Outcome, error) {
	url := escapeURI(env.render(a.URL))
	if url == "" {
		return Outcome{}, errors.New("url is blank")
	}

	switch a.On {
	case routeOnNext:
		return Outcome{RedirectOnNext: url, Message: "route on next to " + url}, nil
	case routeOnComplete, "":
		return Outcome{RedirectOnComplete: url, Message: "route on complete to " + url}, nil
	}
	return Outcome{}, fmt.Errorf("unknown route trigger %q", a.On)
}

// uriKeep are the bytes left as-is besides ASCII letters and digits. It is
// the set JavaScript's encodeURI keeps: "#" survives, "[" and "]" do not.
const uriKeep = "-_.!~*'();/?:@&=+$,#"

// escapeURI percent-encodes a whole URL the way encodeURI does, so
// interpolated spaces and non-ASCII text become valid without touching
// separators such as "/" or "&".
func escapeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte(uriKeep, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
