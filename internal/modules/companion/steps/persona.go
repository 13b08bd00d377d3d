package steps

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	domainchat "github.com/yungbote/companion-backend/internal/domain/chat"
)

//go:embed persona.yaml
var personaFS embed.FS

// PromptVars are the fields persona templates may reference.
type PromptVars struct {
	User     string
	Bot      string
	Schedule string
}

type Emoticon struct {
	File    string `yaml:"file"`
	Usage   string `yaml:"usage"`
	Meaning string `yaml:"meaning"`
}

type personaSpec struct {
	Version         int    `yaml:"version"`
	DefaultBotName  string `yaml:"default_bot_name"`
	DefaultAffinity int    `yaml:"default_affinity"`

	Persona string           `yaml:"persona"`
	Bands   []affinityBandSp `yaml:"affinity_bands"`

	EmoticonIntro  string     `yaml:"emoticon_intro"`
	Emoticons      []Emoticon `yaml:"emoticons"`
	UnknownMeaning string     `yaml:"unknown_emoticon_meaning"`

	CommonRules []string `yaml:"common_rules"`
	RAG         string   `yaml:"rag"`
	Closing     string   `yaml:"closing"`

	Proactive struct {
		Request  string                   `yaml:"request"`
		Suffix   string                   `yaml:"suffix"`
		Triggers map[string]triggerTextSp `yaml:"triggers"`
	} `yaml:"proactive"`
}

type affinityBandSp struct {
	Below int      `yaml:"below"`
	Title string   `yaml:"title"`
	Rules []string `yaml:"rules"`
}

type triggerTextSp struct {
	Instruction string `yaml:"instruction"`
	Fallback    string `yaml:"fallback"`
	Emotion     string `yaml:"emotion"`
}

type band struct {
	below int
	title string
	tmpl  string
}

// Persona is the parsed prompt vocabulary: persona text, affinity bands,
// emoticons, rules and proactive instructions.
type Persona struct {
	defaultBot      string
	defaultAffinity int

	root      *template.Template
	bands     []band
	emoticons []Emoticon
	meanings  map[string]string
	unknown   string
	emotions  map[TriggerType]string
}

// DefaultPersona parses the embedded configuration and panics if it is invalid.
func DefaultPersona() *Persona {
	p, err := LoadPersona("")
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPersona reads path, or the embedded file when path is empty.
func LoadPersona(path string) (*Persona, error) {
	var (
		data []byte
		err  error
	)
	if path = strings.TrimSpace(path); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = personaFS.ReadFile("persona.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read persona config: %w", err)
	}
	return ParsePersona(data)
}

func ParsePersona(data []byte) (*Persona, error) {
	var spec personaSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode persona config: %w", err)
	}
	if err := validatePersona(&spec); err != nil {
		return nil, fmt.Errorf("invalid persona config: %w", err)
	}

	p := &Persona{
		defaultBot:      spec.DefaultBotName,
		defaultAffinity: spec.DefaultAffinity,
		root:            template.New("persona").Option("missingkey=zero"),
		emoticons:       spec.Emoticons,
		meanings:        make(map[string]string, len(spec.Emoticons)),
		unknown:         spec.UnknownMeaning,
		emotions:        map[TriggerType]string{},
	}
	add := func(name, src string) error {
		if _, err := p.root.New(name).Parse(src); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}

	bands := append([]affinityBandSp(nil), spec.Bands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Below < bands[j].Below })
	for i, b := range bands {
		name := fmt.Sprintf("band.%d", i)
		src := fmt.Sprintf("## {{.Bot}}의 행동 규칙 (%s) ##\n%s\n", b.Title, strings.Join(trimAll(b.Rules), "\n"))
		if err := add(name, src); err != nil {
			return nil, err
		}
		p.bands = append(p.bands, band{below: b.Below, title: b.Title, tmpl: name})
	}

	var emo strings.Builder
	emo.WriteString("\n## 이모티콘 사용 규칙 ##\n")
	emo.WriteString(strings.TrimSpace(spec.EmoticonIntro))
	emo.WriteString("\n")
	for _, e := range spec.Emoticons {
		fmt.Fprintf(&emo, "- `[EMOTICON:%s]`: %s\n", e.File, e.Usage)
		p.meanings[e.File] = e.Meaning
	}
	emo.WriteString("\n")

	var common strings.Builder
	for _, r := range trimAll(spec.CommonRules) {
		common.WriteString(r)
		common.WriteString("\n")
	}

	srcs := []struct{ name, src string }{
		{"persona", strings.TrimSpace(spec.Persona) + "\n\n"},
		{"emoticons", emo.String()},
		{"common", common.String()},
		{"rag", strings.TrimSpace(spec.RAG) + "\n"},
		{"closing", strings.TrimSpace(spec.Closing)},
		{"proactive.request", strings.TrimSpace(spec.Proactive.Request)},
		{"proactive.suffix", strings.TrimSpace(spec.Proactive.Suffix)},
	}
	for kind, t := range spec.Proactive.Triggers {
		srcs = append(srcs,
			struct{ name, src string }{"trigger." + kind + ".instruction", strings.TrimSpace(t.Instruction)},
			struct{ name, src string }{"trigger." + kind + ".fallback", strings.TrimSpace(t.Fallback)},
		)
		emotion := strings.TrimSpace(t.Emotion)
		if emotion == "" {
			emotion = domainchat.EmotionNeutral
		}
		p.emotions[TriggerType(kind)] = emotion
	}
	for _, s := range srcs {
		if err := add(s.name, s.src); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func validatePersona(spec *personaSpec) error {
	if strings.TrimSpace(spec.Persona) == "" {
		return errors.New("persona text is required")
	}
	if strings.TrimSpace(spec.DefaultBotName) == "" {
		return errors.New("default_bot_name is required")
	}
	if len(spec.Bands) == 0 {
		return errors.New("at least one affinity band is required")
	}
	seen := map[int]bool{}
	for _, b := range spec.Bands {
		if seen[b.Below] {
			return fmt.Errorf("duplicate band bound %d", b.Below)
		}
		seen[b.Below] = true
		if len(b.Rules) == 0 {
			return fmt.Errorf("band below %d has no rules", b.Below)
		}
	}
	for _, e := range spec.Emoticons {
		if strings.TrimSpace(e.File) == "" {
			return errors.New("emoticon file is required")
		}
	}
	for _, kind := range AllTriggerTypes {
		t, ok := spec.Proactive.Triggers[string(kind)]
		if !ok || strings.TrimSpace(t.Instruction) == "" || strings.TrimSpace(t.Fallback) == "" {
			return fmt.Errorf("trigger %s needs an instruction and a fallback", kind)
		}
		if e := strings.TrimSpace(t.Emotion); e != "" && !domainchat.IsEmotionLabel(e) {
			return fmt.Errorf("trigger %s: unknown emotion %q", kind, e)
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Persona) exec(name string, v PromptVars) string {
	var sb strings.Builder
	if err := p.root.ExecuteTemplate(&sb, name, v); err != nil {
		return ""
	}
	return sb.String()
}

func (p *Persona) DefaultBotName() string { return p.defaultBot }
func (p *Persona) DefaultAffinity() int   { return p.defaultAffinity }

func (p *Persona) bandFor(affinity int) band {
	for _, b := range p.bands {
		if affinity < b.below {
			return b
		}
	}
	return p.bands[len(p.bands)-1]
}

// BandTitle names the behavior band selected for affinity.
func (p *Persona) BandTitle(affinity int) string { return p.bandFor(affinity).title }

// CharacterBlock renders persona, the affinity band rules, the emoticon
// vocabulary and the common style rules.
func (p *Persona) CharacterBlock(v PromptVars, affinity int) string {
	var sb strings.Builder
	sb.WriteString(p.exec("persona", v))
	sb.WriteString(p.exec(p.bandFor(affinity).tmpl, v))
	sb.WriteString(p.exec("emoticons", v))
	sb.WriteString(p.exec("common", v))
	return sb.String()
}

func (p *Persona) RAGBlock(v PromptVars) string { return p.exec("rag", v) }
func (p *Persona) Closing(v PromptVars) string  { return p.exec("closing", v) }

func (p *Persona) ProactiveRequest(v PromptVars) string { return p.exec("proactive.request", v) }

// TriggerInstruction is the trigger framing followed by the shared proactive suffix.
func (p *Persona) TriggerInstruction(kind TriggerType, v PromptVars) string {
	base := strings.TrimSpace(p.exec("trigger."+string(kind)+".instruction", v))
	suffix := p.exec("proactive.suffix", v)
	if base == "" {
		return suffix
	}
	return base + " " + suffix
}

// TriggerFallback is the canned message and emotion used when generation fails.
func (p *Persona) TriggerFallback(kind TriggerType, v PromptVars) (string, string) {
	return p.exec("trigger."+string(kind)+".fallback", v), p.emotions[kind]
}

// EmoticonMeaning maps an emoticon file name to its behavioral phrase.
func (p *Persona) EmoticonMeaning(file string) string {
	if m, ok := p.meanings[file]; ok && m != "" {
		return m
	}
	return p.unknown
}

func (p *Persona) Emoticons() []Emoticon { return p.emoticons }
