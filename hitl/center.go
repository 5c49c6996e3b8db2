package hitl

import (
	"context"
	"sync"

	"github.com/voocel/pilot/schema"
)

// Center tracks at most one pending question and one pending permission
// request per session. The awaiting tool call blocks on a one-shot channel;
// any caller (API handler, UI, test) may resolve the interaction, not just
// the one that registered it.
type Center struct {
	// OnChange, when set before first use, observes every transition of the
	// pending set. It is called outside the lock with the new pending count.
	OnChange func(pending int)

	mu sync.Mutex

	question   Question
	questionCh chan string

	permission   *PermissionRequest
	permissionCh chan Decision

	lastQuestionID   string
	lastPermissionID string
}

func (c *Center) notify() {
	if c.OnChange != nil {
		c.OnChange(c.PendingCount())
	}
}

// NewCenter creates an empty Center.
func NewCenter() *Center {
	return &Center{}
}

// AskQuestion registers q and blocks until a human answers or ctx ends.
// Cancellation releases the registration immediately so no phantom pending
// question lingers.
func (c *Center) AskQuestion(ctx context.Context, q Question) (string, error) {
	c.mu.Lock()
	if c.question != nil {
		c.mu.Unlock()
		return "", schema.ErrInteractionPending
	}
	ch := make(chan string, 1)
	c.question = q
	c.questionCh = ch
	c.mu.Unlock()
	c.notify()

	select {
	case answer := <-ch:
		return answer, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.question != nil && c.question.QuestionID() == q.QuestionID() {
			c.question = nil
			c.questionCh = nil
			c.mu.Unlock()
			c.notify()
			return "", ctx.Err()
		}
		c.mu.Unlock()
		// An answer won the race with cancellation; deliver it.
		select {
		case answer := <-ch:
			return answer, nil
		default:
			return "", ctx.Err()
		}
	}
}

// Answer resolves the pending question. Resolution is exactly-once: a second
// attempt for the same id reports ErrInteractionResolved, an id that was
// never pending reports ErrInteractionNotFound.
func (c *Center) Answer(id, answer string) error {
	c.mu.Lock()
	if c.question == nil || c.question.QuestionID() != id {
		defer c.mu.Unlock()
		if id != "" && id == c.lastQuestionID {
			return schema.ErrInteractionResolved
		}
		return schema.ErrInteractionNotFound
	}

	ch := c.questionCh
	c.question = nil
	c.questionCh = nil
	c.lastQuestionID = id
	ch <- answer
	c.mu.Unlock()
	c.notify()
	return nil
}

// RequestPermission registers req and blocks until a human decides or ctx
// ends.
func (c *Center) RequestPermission(ctx context.Context, req PermissionRequest) (Decision, error) {
	c.mu.Lock()
	if c.permission != nil {
		c.mu.Unlock()
		return Decision{}, schema.ErrInteractionPending
	}
	ch := make(chan Decision, 1)
	r := req
	c.permission = &r
	c.permissionCh = ch
	c.mu.Unlock()
	c.notify()

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.permission != nil && c.permission.ID == req.ID {
			c.permission = nil
			c.permissionCh = nil
			c.mu.Unlock()
			c.notify()
			return Decision{}, ctx.Err()
		}
		c.mu.Unlock()
		select {
		case d := <-ch:
			return d, nil
		default:
			return Decision{}, ctx.Err()
		}
	}
}

// Decide resolves the pending permission request exactly once.
func (c *Center) Decide(id string, d Decision) error {
	c.mu.Lock()
	if c.permission == nil || c.permission.ID != id {
		defer c.mu.Unlock()
		if id != "" && id == c.lastPermissionID {
			return schema.ErrInteractionResolved
		}
		return schema.ErrInteractionNotFound
	}

	ch := c.permissionCh
	c.permission = nil
	c.permissionCh = nil
	c.lastPermissionID = id
	ch <- d
	c.mu.Unlock()
	c.notify()
	return nil
}

// PendingQuestion returns the question currently awaiting an answer.
func (c *Center) PendingQuestion() (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.question == nil {
		return nil, false
	}
	return c.question, true
}

// PendingPermission returns the permission request currently awaiting a
// decision.
func (c *Center) PendingPermission() (PermissionRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.permission == nil {
		return PermissionRequest{}, false
	}
	return *c.permission, true
}

// PendingCount returns how many interactions are waiting, zero to two.
func (c *Center) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	if c.question != nil {
		n++
	}
	if c.permission != nil {
		n++
	}
	return n
}
