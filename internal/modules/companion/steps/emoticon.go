package steps

import (
	"fmt"
	"regexp"
	"strings"

	types "github.com/yungbote/companion-backend/internal/domain"
)

var (
	emoticonTag = regexp.MustCompile(`<img src="assets/img/(.*?)" class="chat-emoticon".*?>`)
	anyImgTag   = regexp.MustCompile(`<img.*?>`)
)

// DescribeEmoticons rewrites emoticon markup into a bracketed behavioral
// description. Only the first emoticon is described; every img tag is removed.
func DescribeEmoticons(p *Persona, raw string) string {
	m := emoticonTag.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	file := m[1]
	name, _, _ := strings.Cut(file, "_")
	meaning := p.EmoticonMeaning(file)
	text := strings.TrimSpace(anyImgTag.ReplaceAllString(raw, ""))
	if text == "" {
		return fmt.Sprintf("(사용자가 '%s' 이모티콘으로 %s 바라본다.)", name, meaning)
	}
	return fmt.Sprintf("%s (사용자는 '%s' 이모티콘도 함께 보냈다: %s)", text, name, meaning)
}

// describeTurns returns copies of turns with user text run through
// DescribeEmoticons. Stored rows keep the raw markup.
func describeTurns(p *Persona, turns []*types.ConversationTurn) []*types.ConversationTurn {
	out := make([]*types.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t == nil {
			continue
		}
		if t.IsFromUser {
			c := *t
			c.Text = DescribeEmoticons(p, t.Text)
			t = &c
		}
		out = append(out, t)
	}
	return out
}
