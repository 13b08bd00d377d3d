package steps

import (
	"fmt"
	"strings"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

type ComposeInput struct {
	Username         string
	Profile          *types.UserProfile
	Time             TimeContexts
	Bundle           *ContextBundle
	ImageDescription string
}

// profileVars resolves the bot name and affinity, falling back to the persona
// defaults when no profile is stored.
func profileVars(p *Persona, username string, profile *types.UserProfile) (PromptVars, int) {
	v := PromptVars{User: username, Bot: p.DefaultBotName()}
	affinity := p.DefaultAffinity()
	if profile != nil {
		if name := strings.TrimSpace(profile.ChatbotName); name != "" {
			v.Bot = name
		}
		affinity = profile.AffinityScore
	}
	return v, affinity
}

// Compose renders the system prompt for a conversational reply.
func Compose(p *Persona, in ComposeInput) string {
	v, affinity := profileVars(p, in.Username, in.Profile)

	var sb strings.Builder
	sb.WriteString(p.CharacterBlock(v, affinity))
	sb.WriteString(p.RAGBlock(v))

	sb.WriteString("\n\n## 대화 상황 컨텍스트 ##\n")
	sb.WriteString(in.Time.Current)
	sb.WriteString("\n")
	sb.WriteString(in.Time.Awareness)
	sb.WriteString("\n")

	lines := []string{fmt.Sprintf("[사용자에 대한 현재 호감도 점수]: %d점", affinity)}
	for _, e := range in.Bundle.Entries() {
		lines = append(lines, e.Text)
	}
	sb.WriteString(strings.Join(lines, "\n"))

	if desc := strings.TrimSpace(in.ImageDescription); desc != "" {
		sb.WriteString("\n[이미지 정보]\n- 사용자가 보낸 이미지에 대한 설명: ")
		sb.WriteString(desc)
		sb.WriteString("\n** 현재 사용자는 이미지에 대한 대화를 하고 싶어해. 이 이미지를 대화에 활용해**\n")
	}

	sb.WriteString("\n\n")
	sb.WriteString(p.Closing(v))
	sb.WriteString("\n")
	return sb.String()
}

type ProactiveComposeInput struct {
	Username string
	Profile  *types.UserProfile
	Trigger  Trigger
	Bundle   *ContextBundle
}

// ComposeProactive renders the prompt for an unprompted message. Context
// snippets are labeled by their key instead of being listed bare, and the
// memory section is left out when there is nothing to show.
func ComposeProactive(p *Persona, in ProactiveComposeInput) string {
	v, affinity := profileVars(p, in.Username, in.Profile)
	v.Schedule = in.Trigger.Schedule

	var sb strings.Builder
	sb.WriteString(p.CharacterBlock(v, affinity))
	sb.WriteString(p.RAGBlock(v))

	if in.Bundle.Len() > 0 {
		lines := make([]string, 0, in.Bundle.Len())
		for _, e := range in.Bundle.Entries() {
			lines = append(lines, fmt.Sprintf("[%s]: %s", e.Key.Header(), e.Text))
		}
		sb.WriteString("\n## 사용자 기억 컨텍스트 ##\n")
		sb.WriteString(strings.Join(lines, "\n"))
	}

	sb.WriteString("\n\n## 능동적 대화 지시 ##\n")
	sb.WriteString(p.TriggerInstruction(in.Trigger.Type, v))
	return sb.String()
}

// BuildMessages lays out system prompt, history and the new user text.
// history is newest first, as the turn repo returns it.
func BuildMessages(system string, history []*types.ConversationTurn, userText string) []openai.Message {
	msgs := make([]openai.Message, 0, len(history)+2)
	msgs = append(msgs, openai.Message{Role: openai.RoleSystem, Content: system})
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t == nil {
			continue
		}
		role := openai.RoleAssistant
		if t.IsFromUser {
			role = openai.RoleUser
		}
		msgs = append(msgs, openai.Message{Role: role, Content: t.Text})
	}
	if userText != "" {
		msgs = append(msgs, openai.Message{Role: openai.RoleUser, Content: userText})
	}
	return msgs
}
