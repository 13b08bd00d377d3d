package steps

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	domainmemory "github.com/yungbote/companion-backend/internal/domain/memory"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

//go:embed extraction.tmpl
var extractionSrc string

var extractionTmpl = template.Must(template.New("extraction").Option("missingkey=zero").Parse(extractionSrc))

const (
	DefaultExtractModel = "gpt-4.1"
	activityDedupWindow = 10 * time.Minute
	extractionSystem    = "You are an AI that extracts structured information about a user's core facts, activities, relationships, and schedules from a conversation, returning a single JSON object."
)

type ExtractionKind string

const (
	KindAttribute    ExtractionKind = "attribute"
	KindActivity     ExtractionKind = "activity"
	KindRelationship ExtractionKind = "relationship"
	KindSchedule     ExtractionKind = "schedule"
)

// Extraction is one decoded fact. The concrete type selects the merge function.
type Extraction interface {
	Kind() ExtractionKind
}

// AttributeFact carries an action hint that is informational only; storage
// always upserts by fact type.
type AttributeFact struct {
	Action   string `json:"action"`
	FactType string `json:"fact_type"`
	Content  string `json:"content"`
}

type ActivityFact struct {
	Date      string `json:"activity_date"`
	Time      string `json:"activity_time"`
	Place     string `json:"place"`
	Companion string `json:"companion"`
	Memo      string `json:"memo"`
}

type RelationshipFact struct {
	Name             string `json:"name"`
	RelationshipType string `json:"relationship_type"`
	Position         string `json:"position"`
	Traits           string `json:"traits"`
}

type ScheduleFact struct {
	Date    string `json:"schedule_date"`
	Time    string `json:"schedule_time"`
	Content string `json:"content"`
}

func (AttributeFact) Kind() ExtractionKind    { return KindAttribute }
func (ActivityFact) Kind() ExtractionKind     { return KindActivity }
func (RelationshipFact) Kind() ExtractionKind { return KindRelationship }
func (ScheduleFact) Kind() ExtractionKind     { return KindSchedule }

type extractionEnvelope struct {
	Attributes    json.RawMessage `json:"user_attributes"`
	Activity      json.RawMessage `json:"activity"`
	Relationships json.RawMessage `json:"relationships"`
	Schedule      json.RawMessage `json:"schedule"`
}

// DecodeExtractions parses the single extraction object. Each category may be
// a list, a lone object, null or absent.
func DecodeExtractions(raw string) ([]Extraction, error) {
	var env extractionEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &env); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	var out []Extraction
	attrs, err := decodeListOrOne[AttributeFact](env.Attributes)
	if err != nil {
		return nil, fmt.Errorf("user_attributes: %w", err)
	}
	for _, a := range attrs {
		out = append(out, a)
	}
	acts, err := decodeListOrOne[ActivityFact](env.Activity)
	if err != nil {
		return nil, fmt.Errorf("activity: %w", err)
	}
	for _, a := range acts {
		out = append(out, a)
	}
	rels, err := decodeListOrOne[RelationshipFact](env.Relationships)
	if err != nil {
		return nil, fmt.Errorf("relationships: %w", err)
	}
	for _, r := range rels {
		out = append(out, r)
	}
	scheds, err := decodeListOrOne[ScheduleFact](env.Schedule)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	for _, s := range scheds {
		out = append(out, s)
	}
	return out, nil
}

func decodeListOrOne[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []*T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		out := make([]T, 0, len(list))
		for _, v := range list {
			if v != nil {
				out = append(out, *v)
			}
		}
		return out, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

type ExtractDeps struct {
	Log   *logger.Logger
	LLM   openai.Client
	Model string
	Clock Clock
	Loc   *time.Location

	Attributes    repos.UserAttributeRepo
	Activities    repos.UserActivityRepo
	Relationships repos.UserRelationshipRepo
	Schedules     repos.UserScheduleRepo
}

type ExtractInput struct {
	UserID   uuid.UUID
	UserText string
	BotText  string
	// History is newest first.
	History []*types.ConversationTurn
}

// MergeReport counts what one extraction pass wrote.
type MergeReport struct {
	Attributes    int
	Activities    int
	Relationships int
	Schedules     int
	Skipped       int
	Failed        int
}

// ExtractAndMerge asks the model for facts about the exchange and merges them
// into memory. Every failure is logged and absorbed.
func ExtractAndMerge(ctx context.Context, deps ExtractDeps, in ExtractInput) MergeReport {
	var rep MergeReport
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("step", "ExtractAndMerge", "user_id", in.UserID)
	if deps.LLM == nil || in.UserID == uuid.Nil {
		return rep
	}
	loc := deps.Loc
	if loc == nil {
		loc = Seoul()
	}
	now := deps.Clock.now()
	today := now.In(loc).Format("2006-01-02")
	dbc := dbctx.New(ctx)

	var attrs []*types.UserAttribute
	if deps.Attributes != nil {
		var err error
		if attrs, err = deps.Attributes.ListByUser(dbc, in.UserID); err != nil {
			log.Warn("load attributes for extraction failed", "error", err)
		}
	}
	var rels []*types.UserRelationship
	if deps.Relationships != nil {
		var err error
		if rels, err = deps.Relationships.ListByUser(dbc, in.UserID); err != nil {
			log.Warn("load relationships for extraction failed", "error", err)
		}
	}

	prompt, err := renderExtractionPrompt(in, today, attrs, rels)
	if err != nil {
		log.Warn("render extraction prompt failed", "error", err)
		return rep
	}
	model := deps.Model
	if model == "" {
		model = DefaultExtractModel
	}
	raw, err := deps.LLM.Complete(ctx, openai.ChatParams{Model: model, Temperature: 0, JSON: true}, []openai.Message{
		{Role: openai.RoleSystem, Content: extractionSystem},
		{Role: openai.RoleUser, Content: prompt},
	})
	if err != nil {
		log.Warn("extraction request failed", "error", err)
		return rep
	}
	facts, err := DecodeExtractions(raw)
	if err != nil {
		log.Warn("extraction response unusable", "error", err)
		return rep
	}

	m := merger{deps: deps, log: log, dbc: dbc, userID: in.UserID, now: now, loc: loc, rels: rels}
	for _, f := range facts {
		wrote, err := m.merge(f)
		switch {
		case err != nil:
			rep.Failed++
			log.Warn("merge failed", "kind", string(f.Kind()), "error", err)
		case !wrote:
			rep.Skipped++
		default:
			switch f.Kind() {
			case KindAttribute:
				rep.Attributes++
			case KindActivity:
				rep.Activities++
			case KindRelationship:
				rep.Relationships++
			case KindSchedule:
				rep.Schedules++
			}
		}
	}
	log.Debug("extraction merged",
		"attributes", rep.Attributes,
		"activities", rep.Activities,
		"relationships", rep.Relationships,
		"schedules", rep.Schedules,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	return rep
}

func renderExtractionPrompt(in ExtractInput, today string, attrs []*types.UserAttribute, rels []*types.UserRelationship) (string, error) {
	var history []string
	for i := len(in.History) - 1; i >= 0; i-- {
		if t := in.History[i]; t != nil {
			history = append(history, t.Speaker()+": "+t.Text)
		}
	}
	var attrLines []string
	for _, a := range attrs {
		attrLines = append(attrLines, "- "+a.FactType+": "+a.Content)
	}
	var relLines []string
	for _, r := range rels {
		line := fmt.Sprintf("- %s (%s)", r.Name, r.RelationshipType)
		if aliases := domainmemory.SplitSet(r.Aliases); len(aliases) > 0 {
			line += ", 별명: " + strings.Join(aliases, ", ")
		}
		relLines = append(relLines, line)
	}
	var sb strings.Builder
	err := extractionTmpl.Execute(&sb, map[string]string{
		"UserText":      in.UserText,
		"BotText":       in.BotText,
		"History":       strings.Join(history, "\n"),
		"Attributes":    strings.Join(attrLines, "\n"),
		"Relationships": strings.Join(relLines, "\n"),
		"Today":         today,
	})
	return sb.String(), err
}

type merger struct {
	deps   ExtractDeps
	log    *logger.Logger
	dbc    dbctx.Context
	userID uuid.UUID
	now    time.Time
	loc    *time.Location
	rels   []*types.UserRelationship
}

func (m *merger) merge(f Extraction) (bool, error) {
	switch v := f.(type) {
	case AttributeFact:
		return m.attribute(v)
	case ActivityFact:
		return m.activity(v)
	case RelationshipFact:
		return m.relationship(v)
	case ScheduleFact:
		return m.schedule(v)
	default:
		return false, fmt.Errorf("unknown extraction %T", f)
	}
}

func (m *merger) today() time.Time {
	return domainmemory.DateOf(m.now.In(m.loc))
}

func (m *merger) attribute(a AttributeFact) (bool, error) {
	factType, content := strings.TrimSpace(a.FactType), strings.TrimSpace(a.Content)
	if factType == "" || content == "" || m.deps.Attributes == nil {
		return false, nil
	}
	if err := m.deps.Attributes.Upsert(m.dbc, m.userID, factType, content); err != nil {
		return false, err
	}
	return true, nil
}

func (m *merger) activity(a ActivityFact) (bool, error) {
	if m.deps.Activities == nil {
		return false, nil
	}
	place, companion, memo := strings.TrimSpace(a.Place), strings.TrimSpace(a.Companion), strings.TrimSpace(a.Memo)
	clock := ParseClock(a.Time)
	if place == "" && companion == "" && memo == "" && clock == "" {
		return false, nil
	}
	day := m.today()
	if d, ok := parseDate(a.Date, m.loc); ok {
		day = d
	}
	row := &types.UserActivity{
		ID:           uuid.New(),
		UserID:       m.userID,
		ActivityDate: day,
		ActivityTime: clock,
		Place:        place,
		Companion:    companion,
		Memo:         memo,
		CreatedAt:    m.now.UTC(),
	}
	created, err := m.deps.Activities.CreateUnlessMemoSince(m.dbc, row, m.now.Add(-activityDedupWindow))
	if err != nil {
		return false, err
	}
	if !created {
		m.log.Debug("duplicate activity skipped", "memo", memo)
	}
	return created, nil
}

// canonicalName maps an alias or differently cased name onto the stored person.
func (m *merger) canonicalName(name string) (string, bool) {
	for _, r := range m.rels {
		if r.Answers(name) {
			return r.Name, true
		}
	}
	return name, false
}

func (m *merger) relationship(r RelationshipFact) (bool, error) {
	if m.deps.Relationships == nil {
		return false, nil
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return false, nil
	}
	name, known := m.canonicalName(name)
	relType := strings.TrimSpace(r.RelationshipType)
	if relType == "" && !known {
		return false, nil
	}
	row, created, err := m.deps.Relationships.MergeByName(m.dbc, m.userID, repos.RelationshipMerge{
		Name:             name,
		RelationshipType: relType,
		Position:         strings.TrimSpace(r.Position),
		Traits:           r.Traits,
	})
	if err != nil {
		return false, err
	}
	if created && row != nil {
		m.rels = append(m.rels, row)
	}
	return row != nil, nil
}

func (m *merger) schedule(s ScheduleFact) (bool, error) {
	content := strings.TrimSpace(s.Content)
	if content == "" || m.deps.Schedules == nil {
		return false, nil
	}
	day := m.today()
	if strings.TrimSpace(s.Date) != "" {
		d, ok := parseDate(s.Date, m.loc)
		if !ok {
			m.log.Debug("schedule date unparseable", "date", s.Date)
			return false, nil
		}
		day = d
	}
	if day.Before(m.today()) {
		return false, nil
	}
	clock := ""
	if t, err := time.Parse("15:04", strings.TrimSpace(s.Time)); err == nil {
		clock = t.Format("15:04")
	}
	err := m.deps.Schedules.Upsert(m.dbc, &types.UserSchedule{
		UserID:       m.userID,
		Date:         day,
		ScheduleTime: clock,
		Content:      content,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return domainmemory.DateOf(t), true
}

// ParseClock normalizes "HH:MM", "H:MM PM" and "N시 M분" to "HH:MM". Anything
// else yields "".
func ParseClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"15:04", "3:04 PM", "03:04 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	if strings.Contains(s, "시") {
		k := strings.ReplaceAll(strings.ReplaceAll(s, "시", ":"), "분", "")
		k = strings.Join(strings.Fields(k), "")
		if strings.HasSuffix(k, ":") {
			k += "0"
		}
		if t, err := time.Parse("15:4", k); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}
