// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"fmt"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent records one outgoing call made through the context.
type Sent struct {
	What any
	Opts []any
}

// Text returns the message body when What is a string.
func (s Sent) Text() string {
	if t, ok := s.What.(string); ok {
		return t
	}
	return fmt.Sprint(s.What)
}

// Markup returns the reply markup passed with the call, if any.
func (s Sent) Markup() *tele.ReplyMarkup {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			return v
		}
	}
	return nil
}

// Context implements the parts of tele.Context used by handlers.
// Calling any other method panics through the nil embedded interface.
type Context struct {
	tele.Context

	mu        sync.Mutex
	update    tele.Update
	store     map[string]any
	sent      []Sent
	responses []*tele.CallbackResponse
	// SendErr, when set, is returned by every send.
	SendErr error
}

// NewMessage builds a context for a private text message from userID.
func NewMessage(userID int64, text string) *Context {
	return &Context{
		update: tele.Update{
			ID: int(userID),
			Message: &tele.Message{
				Text:   text,
				Sender: &tele.User{ID: userID, FirstName: "Test"},
				Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			},
		},
		store: make(map[string]any),
	}
}

// NewCallback builds a context for an inline button press carrying payload.
func NewCallback(userID int64, unique, payload string) *Context {
	user := &tele.User{ID: userID, FirstName: "Test"}
	return &Context{
		update: tele.Update{
			ID: int(userID),
			Callback: &tele.Callback{
				ID:     "cb",
				Sender: user,
				Data:   "\f" + unique + "|" + payload,
				Message: &tele.Message{
					Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
				},
			},
		},
		store: make(map[string]any),
	}
}

func (c *Context) Update() tele.Update       { return c.update }
func (c *Context) Message() *tele.Message    { return c.update.Message }
func (c *Context) Callback() *tele.Callback  { return c.update.Callback }
func (c *Context) Recipient() tele.Recipient { return c.Chat() }
func (c *Context) Args() []string            { return nil }

func (c *Context) Data() string {
	if cb := c.update.Callback; cb != nil {
		return cb.Data
	}
	return ""
}

func (c *Context) Sender() *tele.User {
	switch {
	case c.update.Callback != nil:
		return c.update.Callback.Sender
	case c.update.Message != nil:
		return c.update.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	switch {
	case c.update.Callback != nil && c.update.Callback.Message != nil:
		return c.update.Callback.Message.Chat
	case c.update.Message != nil:
		return c.update.Message.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if m := c.update.Message; m != nil {
		return m.Text
	}
	return ""
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

func (c *Context) record(what any, opts []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Send(what any, opts ...any) error        { return c.record(what, opts) }
func (c *Context) Reply(what any, opts ...any) error       { return c.record(what, opts) }
func (c *Context) Edit(what any, opts ...any) error        { return c.record(what, opts) }
func (c *Context) EditOrSend(what any, opts ...any) error  { return c.record(what, opts) }
func (c *Context) EditOrReply(what any, opts ...any) error { return c.record(what, opts) }

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		c.responses = append(c.responses, nil)
		return nil
	}
	c.responses = append(c.responses, resp...)
	return nil
}

// Sent returns a copy of every recorded outgoing call.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Texts returns the bodies of every recorded outgoing call.
func (c *Context) Texts() []string {
	sent := c.Sent()
	out := make([]string, len(sent))
	for i, s := range sent {
		out[i] = s.Text()
	}
	return out
}

// Last returns the most recent outgoing call or a zero Sent.
func (c *Context) Last() Sent {
	sent := c.Sent()
	if len(sent) == 0 {
		return Sent{}
	}
	return sent[len(sent)-1]
}

// Responses returns callback answers recorded by Respond.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responses...)
}

var _ tele.Context = (*Context)(nil)
