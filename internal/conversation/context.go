// internal/conversation/context.go

// Package conversation keeps short-lived dialogue state so follow-up
// questions ("它的环比呢") can borrow the subject of an earlier turn.
// The state lives outside the recognition core: recognition itself
// stays pure and stateless.
package conversation

import (
	"regexp"
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

// MaxTurns bounds how much history one conversation retains.
const MaxTurns = 5

// Turn is one question/answer exchange.
type Turn struct {
	Query     string              `json:"query"`
	Intent    *intent.QueryIntent `json:"intent,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Context is the retained state of one conversation.
type Context struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// pronounPattern matches the anaphora a follow-up uses in place of the
// subject.
var pronounPattern = regexp.MustCompile(`它的?|这个|那个|这项|该指标|(?i)\bits\b|\bit\b|\bthat metric\b|\bthis one\b`)

// AddTurn appends a turn, discarding the oldest once MaxTurns is
// reached.
func (c *Context) AddTurn(query string, qi *intent.QueryIntent, at time.Time) {
	c.Turns = append(c.Turns, Turn{Query: query, Intent: qi, Timestamp: at})
	if len(c.Turns) > MaxTurns {
		c.Turns = c.Turns[len(c.Turns)-MaxTurns:]
	}
}

// LastSubject returns the most recent turn that resolved a subject.
func (c *Context) LastSubject() (string, bool) {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if t := c.Turns[i]; t.Intent != nil && t.Intent.CoreSubject != "" {
			return t.Intent.CoreSubject, true
		}
	}
	return "", false
}

// ResolveReference rewrites pronoun references against the last known
// subject. The boolean reports whether a substitution happened; a query
// with no pronoun, or a conversation with no prior subject, passes
// through untouched.
func (c *Context) ResolveReference(query string) (string, bool) {
	if !pronounPattern.MatchString(query) {
		return query, false
	}
	subject, ok := c.LastSubject()
	if !ok {
		return query, false
	}
	// 它的 swallows the possessive particle, so "它的环比" becomes
	// "GMV环比" rather than "GMV的环比".
	return pronounPattern.ReplaceAllString(query, subject), true
}
