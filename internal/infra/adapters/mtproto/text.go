package mtproto

import (
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gotd/td/tg"

	"telegram-account-manager/internal/domain/model"
)

// markdownText returns the message text with bold entities wrapped in "**".
// Entity offsets are in UTF-16 code units.
func markdownText(m *tg.Message) string {
	type span struct{ start, end int }
	var spans []span
	for _, e := range m.Entities {
		if b, ok := e.(*tg.MessageEntityBold); ok && b.Length > 0 {
			spans = append(spans, span{b.Offset, b.Offset + b.Length})
		}
	}
	if len(spans) == 0 {
		return m.Message
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	units := utf16.Encode([]rune(m.Message))
	var sb strings.Builder
	pos := 0
	for _, s := range spans {
		if s.start < pos || s.start >= len(units) {
			continue
		}
		if s.end > len(units) {
			s.end = len(units)
		}
		sb.WriteString(string(utf16.Decode(units[pos:s.start])))
		sb.WriteString("**")
		sb.WriteString(string(utf16.Decode(units[s.start:s.end])))
		sb.WriteString("**")
		pos = s.end
	}
	sb.WriteString(string(utf16.Decode(units[pos:])))
	return sb.String()
}

func historyMessages(res tg.MessagesMessagesClass) []model.ServiceMessage {
	var raw []tg.MessageClass
	switch h := res.(type) {
	case *tg.MessagesMessages:
		raw = h.Messages
	case *tg.MessagesMessagesSlice:
		raw = h.Messages
	case *tg.MessagesChannelMessages:
		raw = h.Messages
	}

	out := make([]model.ServiceMessage, 0, len(raw))
	for _, mc := range raw {
		m, ok := mc.(*tg.Message)
		if !ok {
			continue
		}
		out = append(out, model.ServiceMessage{
			ID:   m.ID,
			Date: time.Unix(int64(m.Date), 0),
			Text: markdownText(m),
		})
	}
	return out
}

func findUserPeer(users []tg.UserClass, id int64) *tg.InputPeerUser {
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok && u.ID == id {
			return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
		}
	}
	return nil
}
