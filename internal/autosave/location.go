package autosave

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// DefaultParam is the query parameter carrying the share token.
const DefaultParam = "state"

// Location is where share tokens live: the page address bar in a browser, a history
// table on disk for the CLI.
type Location interface {
	// Current returns the token in the current address, if any.
	Current(ctx context.Context) (token string, ok bool, err error)
	// Push makes token current and records the new address in the history.
	Push(ctx context.Context, token string) error
}

// URLLocation is an in-memory address bar with a push-only history.
type URLLocation struct {
	mu      sync.Mutex
	param   string
	current *url.URL
	history []string
}

// NewURLLocation starts at rawURL. An empty param selects DefaultParam.
func NewURLLocation(rawURL, param string) (*URLLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if param == "" {
		param = DefaultParam
	}
	return &URLLocation{param: param, current: u, history: []string{u.String()}}, nil
}

func (l *URLLocation) Current(_ context.Context) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	token := l.current.Query().Get(l.param)
	return token, token != "", nil
}

func (l *URLLocation) Push(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := *l.current
	q := next.Query()
	q.Set(l.param, token)
	next.RawQuery = q.Encode()
	l.current = &next
	l.history = append(l.history, next.String())
	return nil
}

// URL returns the current address.
func (l *URLLocation) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.String()
}

// History returns every address pushed so far, oldest first.
func (l *URLLocation) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.history...)
}
