package workflows

import (
	"strconv"

	"github.com/google/uuid"

	"go-chat-commerce/chat-commerce/types"
)

// transcriptNamespace scopes ids derived for stored entries that have none
var transcriptNamespace = uuid.MustParse("6f1c7d3e-2b7a-4b8e-9a51-0c0de5c4a7f1")

// Timeline is the append-only message log of one chat session.
// Messages are addressed by id, never by position.
type Timeline struct {
	messages []types.Message
	index    map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{index: make(map[string]int)}
}

// Append adds msg at the end. A message whose id is already present is ignored.
func (t *Timeline) Append(msg types.Message) bool {
	if _, ok := t.index[msg.ID]; ok {
		return false
	}
	t.index[msg.ID] = len(t.messages)
	t.messages = append(t.messages, msg)
	return true
}

// SetStatus moves a user message's delivery status forward. It reports false
// when the message is gone or the status would move backwards.
func (t *Timeline) SetStatus(id string, status types.DeliveryStatus) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	msg := &t.messages[i]
	if msg.Sender != types.SenderUser || statusRank(status) <= statusRank(msg.DeliveryStatus) {
		return false
	}
	msg.DeliveryStatus = status
	return true
}

// Replay appends stored transcript entries, skipping any already present,
// and returns how many were added. Replaying the same transcript twice
// leaves the timeline unchanged.
func (t *Timeline) Replay(token string, entries []types.TranscriptEntry) int {
	added := 0
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = derivedID(token, i, e)
		}
		msg := types.Message{
			ID:         id,
			Text:       e.Text,
			Sender:     e.Sender,
			Timestamp:  e.Timestamp,
			Attachment: e.Attachment,
		}
		if e.Sender == types.SenderUser {
			msg.DeliveryStatus = types.StatusRead
		}
		if t.Append(msg) {
			added++
		}
	}
	return added
}

// Messages returns a copy of the timeline in creation order
func (t *Timeline) Messages() []types.Message {
	out := make([]types.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	return len(t.messages)
}

func derivedID(token string, i int, e types.TranscriptEntry) string {
	key := token + "|" + strconv.Itoa(i) + "|" + string(e.Sender) + "|" + e.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999Z") + "|" + e.Text
	return uuid.NewSHA1(transcriptNamespace, []byte(key)).String()
}

func statusRank(s types.DeliveryStatus) int {
	switch s {
	case types.StatusSent:
		return 1
	case types.StatusDelivered:
		return 2
	case types.StatusRead:
		return 3
	}
	return 0
}
