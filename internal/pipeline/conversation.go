package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sceneforge/internal/compile"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Meta records what a turn actually did, alongside the message text.
type Meta struct {
	SkillsUsed   []string
	EditsApplied int
	ErrorContext string // set on rejection or give-up messages
}

// Message is one entry in the append-only conversation log.
type Message struct {
	ID      string
	Role    Role
	Content string
	At      time.Time
	Meta    Meta
}

// Conversation holds the session state a turn reads and writes: the message
// log, the current scene source, and the live artifact. The artifact only
// ever changes by atomic supersede; a failed turn leaves the previous one
// rendering untouched.
type Conversation struct {
	mu       sync.Mutex
	turnMu   sync.Mutex
	messages []Message
	source   string
	artifact *compile.Artifact
	usedIDs  []string
	usedSet  map[string]bool
}

// NewConversation starts an empty session.
func NewConversation() *Conversation {
	return &Conversation{usedSet: make(map[string]bool)}
}

// beginTurn claims the single-turn-in-flight slot.
func (c *Conversation) beginTurn() error {
	if !c.turnMu.TryLock() {
		return ErrTurnInFlight
	}
	return nil
}

func (c *Conversation) endTurn() {
	c.turnMu.Unlock()
}

// Append adds a message to the log and returns it with its id and
// timestamp filled in.
func (c *Conversation) Append(role Role, content string, meta Meta) Message {
	msg := Message{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
		At:      time.Now(),
		Meta:    meta,
	}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// RecentPrompts returns up to n of the latest user prompts, oldest first.
func (c *Conversation) RecentPrompts(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var prompts []string
	for i := len(c.messages) - 1; i >= 0 && len(prompts) < n; i-- {
		if c.messages[i].Role == RoleUser {
			prompts = append(prompts, c.messages[i].Content)
		}
	}
	for i, j := 0, len(prompts)-1; i < j; i, j = i+1, j-1 {
		prompts[i], prompts[j] = prompts[j], prompts[i]
	}
	return prompts
}

// Source returns the current scene source, empty before the first
// successful turn.
func (c *Conversation) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Artifact returns the live compiled artifact, nil before the first
// successful turn.
func (c *Conversation) Artifact() *compile.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

// install supersedes the current source and artifact in one step.
func (c *Conversation) install(source string, artifact *compile.Artifact) {
	c.mu.Lock()
	c.source = source
	c.artifact = artifact
	c.mu.Unlock()
}

// markSkillsUsed records skill ids injected this session so later turns
// exclude them from selection.
func (c *Conversation) markSkillsUsed(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if !c.usedSet[id] {
			c.usedSet[id] = true
			c.usedIDs = append(c.usedIDs, id)
		}
	}
}

// UsedSkillIDs returns the ids injected so far, in first-use order.
func (c *Conversation) UsedSkillIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.usedIDs))
	copy(out, c.usedIDs)
	return out
}

// Reset drops all session state.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.source = ""
	c.artifact = nil
	c.usedIDs = nil
	c.usedSet = make(map[string]bool)
	c.mu.Unlock()
}
