package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/services"
)

type TriggerType string

const (
	TriggerInactivity       TriggerType = "inactivity"
	TriggerMorningGreeting  TriggerType = "morning_greeting"
	TriggerLunchTime        TriggerType = "lunch_time"
	TriggerEveningGreeting  TriggerType = "evening_greeting"
	TriggerUpcomingSchedule TriggerType = "upcoming_schedule"
	TriggerInactivityTimer  TriggerType = "inactivity_timer"
)

var AllTriggerTypes = []TriggerType{
	TriggerInactivity,
	TriggerMorningGreeting,
	TriggerLunchTime,
	TriggerEveningGreeting,
	TriggerUpcomingSchedule,
	TriggerInactivityTimer,
}

const (
	inactivityGap     = time.Hour
	timeWindowGap     = 30 * time.Minute
	scheduleLookahead = 10 * time.Minute

	DefaultSweepConcurrency = 4
)

// Trigger is the reason for one proactive message. Schedule is set only for
// upcoming_schedule.
type Trigger struct {
	Type     TriggerType
	Schedule string
}

func (t Trigger) IsZero() bool { return t.Type == "" }

type hourWindow struct {
	from, to int
	kind     TriggerType
}

var greetingWindows = []hourWindow{
	{6, 10, TriggerMorningGreeting},
	{12, 14, TriggerLunchTime},
	{18, 22, TriggerEveningGreeting},
}

// ResolveTrigger picks the sweep trigger for one user. Inactivity over an
// hour wins over the greeting windows; a schedule due within ten minutes is
// checked last and replaces whatever was picked.
func ResolveTrigger(now time.Time, loc *time.Location, last *types.ConversationTurn, schedules []*types.UserSchedule) Trigger {
	if loc == nil {
		loc = Seoul()
	}
	local := now.In(loc)
	var out Trigger

	switch {
	case last != nil && now.Sub(last.CreatedAt) > inactivityGap:
		out.Type = TriggerInactivity
	case last == nil || now.Sub(last.CreatedAt) > timeWindowGap:
		h := local.Hour()
		for _, w := range greetingWindows {
			if h >= w.from && h < w.to {
				out.Type = w.kind
				break
			}
		}
	}

	if content, ok := upcomingSchedule(local, schedules); ok {
		out = Trigger{Type: TriggerUpcomingSchedule, Schedule: content}
	}
	return out
}

func upcomingSchedule(local time.Time, schedules []*types.UserSchedule) (string, bool) {
	y, m, d := local.Date()
	for _, s := range schedules {
		if s == nil || s.ScheduleTime == "" || strings.TrimSpace(s.Content) == "" {
			continue
		}
		hm, err := time.Parse("15:04", s.ScheduleTime)
		if err != nil {
			continue
		}
		at := time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, local.Location())
		until := at.Sub(local)
		if until > 0 && until <= scheduleLookahead {
			return s.Content, true
		}
	}
	return "", false
}

type ProactiveDeps struct {
	Log     *logger.Logger
	LLM     openai.Client
	Persona *Persona
	Clock   Clock
	Loc     *time.Location
	Model   string

	Users     repos.UserRepo
	Turns     repos.TurnRepo
	Pending   repos.PendingProactiveRepo
	Profiles  repos.UserProfileRepo
	Schedules repos.UserScheduleRepo

	Assemble   AssembleDeps
	Emotion    services.EmotionClassifier
	Similarity services.SimilarityIndex
	Notifier   services.ProactiveNotifier

	Concurrency int
}

func (d ProactiveDeps) logger() *logger.Logger {
	if d.Log == nil {
		return logger.NewNop()
	}
	return d.Log
}

func (d ProactiveDeps) persona() *Persona {
	if d.Persona == nil {
		return DefaultPersona()
	}
	return d.Persona
}

type proactiveMessage struct {
	Text     string
	Emotion  string
	Fallback bool
}

// generateProactive composes the trigger prompt and asks the model for
// {"answer","explanation"}. Any failure short of cancellation lands on the
// trigger's canned message.
func generateProactive(ctx context.Context, deps ProactiveDeps, userID uuid.UUID, username string, trig Trigger) (proactiveMessage, error) {
	log := deps.logger()
	p := deps.persona()
	dbc := dbctx.New(ctx)

	var profile *types.UserProfile
	if deps.Profiles != nil {
		var err error
		if profile, err = deps.Profiles.GetByUserID(dbc, userID); err != nil {
			log.Warn("load profile failed; using persona defaults", "user_id", userID, "error", err)
			profile = nil
		}
	}
	bundle := AssembleContext(ctx, deps.Assemble, AssembleInput{UserID: userID})
	system := ComposeProactive(p, ProactiveComposeInput{Username: username, Profile: profile, Trigger: trig, Bundle: bundle})

	v, _ := profileVars(p, username, profile)
	v.Schedule = trig.Schedule
	fallback := func() proactiveMessage {
		text, emotion := p.TriggerFallback(trig.Type, v)
		return proactiveMessage{Text: text, Emotion: emotion, Fallback: true}
	}

	if deps.LLM == nil {
		return fallback(), nil
	}
	model := deps.Model
	if model == "" {
		model = DefaultChatModel
	}
	raw, err := deps.LLM.Complete(ctx, openai.ChatParams{
		Model:            model,
		Temperature:      ReplyTemperature,
		TopP:             ReplyTopP,
		FrequencyPenalty: ReplyFrequencyPenalty,
		PresencePenalty:  ReplyPresencePenalty,
		JSON:             true,
	}, []openai.Message{
		{Role: openai.RoleSystem, Content: system},
		{Role: openai.RoleUser, Content: p.ProactiveRequest(v)},
	})
	if ctx.Err() != nil {
		return proactiveMessage{}, ctx.Err()
	}
	if err != nil {
		log.Warn("proactive completion failed; using canned message", "trigger", string(trig.Type), "error", err)
		return fallback(), nil
	}
	text, ok := strictAnswer(raw)
	if !ok {
		log.Warn("proactive completion unusable; using canned message", "trigger", string(trig.Type))
		return fallback(), nil
	}
	emotion := ""
	if deps.Emotion != nil {
		emotion = deps.Emotion.Classify(ctx, text)
	}
	if ctx.Err() != nil {
		return proactiveMessage{}, ctx.Err()
	}
	return proactiveMessage{Text: text, Emotion: emotion}, nil
}

func strictAnswer(raw string) (string, bool) {
	var env answerEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &env); err != nil || env.Answer == nil {
		return "", false
	}
	a := strings.TrimSpace(*env.Answer)
	return a, a != ""
}

func (d ProactiveDeps) persistAI(ctx context.Context, userID uuid.UUID, msg proactiveMessage) (*types.ConversationTurn, error) {
	turn := &types.ConversationTurn{ID: uuid.New(), UserID: userID, Text: msg.Text, EmotionLabel: msg.Emotion}
	if err := d.Turns.Create(dbctx.New(ctx), turn); err != nil {
		return nil, fmt.Errorf("persist proactive turn: %w", err)
	}
	if d.Similarity != nil {
		if err := d.Similarity.Index(ctx, turn); err != nil {
			d.logger().Warn("index proactive turn failed", "turn_id", turn.ID, "error", err)
		}
	}
	return turn, nil
}

type TickInput struct {
	UserID   uuid.UUID
	Username string
}

// InactivityTick produces the filler message for a live connection that went
// quiet. It sends the emotion first, then the whole text as a single chunk,
// then the passive stream end. On cancellation nothing is sent or stored.
func InactivityTick(ctx context.Context, deps ProactiveDeps, sink FrameSink, in TickInput) error {
	msg, err := generateProactive(ctx, deps, in.UserID, in.Username, Trigger{Type: TriggerInactivityTimer})
	if err != nil {
		return err
	}
	for _, frame := range []realtime.Message{
		realtime.EmotionResult(msg.Emotion),
		realtime.ChatStream(msg.Text),
		realtime.StreamEnd(realtime.StatusSuccessPassive, msg.Emotion),
	} {
		if err := sink.Send(ctx, frame); err != nil {
			return fmt.Errorf("send inactivity message: %w", err)
		}
	}
	_, err = deps.persistAI(context.WithoutCancel(ctx), in.UserID, msg)
	return err
}

type SweepOutcome string

const (
	OutcomePending   SweepOutcome = "pending"
	OutcomeNoTrigger SweepOutcome = "no_trigger"
	OutcomeSent      SweepOutcome = "sent"
)

type SweepResult struct {
	Outcome SweepOutcome
	Trigger Trigger
	Turn    *types.ConversationTurn
}

// SweepUser runs the scheduled trigger check for one user. The pending check
// and the final upsert share the user_id key, so repeated or overlapping runs
// leave at most one pending row.
func SweepUser(ctx context.Context, deps ProactiveDeps, u *types.User) (SweepResult, error) {
	dbc := dbctx.New(ctx)
	log := deps.logger().With("step", "SweepUser", "user_id", u.ID)

	pending, err := deps.Pending.Exists(dbc, u.ID)
	if err != nil {
		return SweepResult{}, fmt.Errorf("check pending: %w", err)
	}
	if pending {
		return SweepResult{Outcome: OutcomePending}, nil
	}

	last, err := deps.Turns.Latest(dbc, u.ID)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load last turn: %w", err)
	}
	now := deps.Clock.now()
	loc := deps.Loc
	if loc == nil {
		loc = Seoul()
	}
	var schedules []*types.UserSchedule
	if deps.Schedules != nil {
		if schedules, err = deps.Schedules.ListForDay(dbc, u.ID, now.In(loc)); err != nil {
			log.Warn("load schedules failed", "error", err)
		}
	}
	trig := ResolveTrigger(now, loc, last, schedules)
	if trig.IsZero() {
		return SweepResult{Outcome: OutcomeNoTrigger}, nil
	}

	msg, err := generateProactive(ctx, deps, u.ID, u.Username, trig)
	if err != nil {
		return SweepResult{}, err
	}
	turn, err := deps.persistAI(ctx, u.ID, msg)
	if err != nil {
		return SweepResult{}, err
	}
	if err := deps.Pending.Upsert(dbc, &types.PendingProactiveMessage{
		UserID:      u.ID,
		TurnID:      turn.ID,
		TriggerType: string(trig.Type),
	}); err != nil {
		return SweepResult{}, fmt.Errorf("upsert pending: %w", err)
	}
	if deps.Notifier != nil {
		deps.Notifier.ProactiveAvailable(ctx, u.ID)
	}
	log.Info("proactive message queued", "trigger", string(trig.Type), "fallback", msg.Fallback)
	return SweepResult{Outcome: OutcomeSent, Trigger: trig, Turn: turn}, nil
}

type SweepReport struct {
	Users     int
	Sent      int
	Pending   int
	NoTrigger int
	Failed    int
}

// Sweep checks every active user with bounded concurrency. A failing user is
// logged and counted; the rest still run.
func Sweep(ctx context.Context, deps ProactiveDeps) (SweepReport, error) {
	log := deps.logger().With("step", "Sweep")
	var rep SweepReport

	users, err := deps.Users.ListActive(dbctx.New(ctx))
	if err != nil {
		return rep, fmt.Errorf("list active users: %w", err)
	}
	rep.Users = len(users)

	limit := deps.Concurrency
	if limit <= 0 {
		limit = DefaultSweepConcurrency
	}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)
	for _, u := range users {
		u := u
		g.Go(func() error {
			res, err := sweepOne(ctx, deps, u)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed++
				log.Warn("proactive sweep failed for user", "user_id", u.ID, "error", err)
				return nil
			}
			switch res.Outcome {
			case OutcomeSent:
				rep.Sent++
			case OutcomePending:
				rep.Pending++
			default:
				rep.NoTrigger++
			}
			return nil
		})
	}
	_ = g.Wait()
	log.Info("proactive sweep finished",
		"users", rep.Users,
		"sent", rep.Sent,
		"pending", rep.Pending,
		"no_trigger", rep.NoTrigger,
		"failed", rep.Failed,
	)
	return rep, ctx.Err()
}

func sweepOne(ctx context.Context, deps ProactiveDeps, u *types.User) (res SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if u == nil {
		return SweepResult{Outcome: OutcomeNoTrigger}, nil
	}
	return SweepUser(ctx, deps, u)
}
