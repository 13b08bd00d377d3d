package steps

import (
	"fmt"
	"time"

	types "github.com/yungbote/companion-backend/internal/domain"
)

var seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Seoul is the service's wall-clock zone for dates, hours and schedules.
func Seoul() *time.Location { return seoul }

var koreanWeekdays = [...]string{
	time.Sunday:    "일요일",
	time.Monday:    "월요일",
	time.Tuesday:   "화요일",
	time.Wednesday: "수요일",
	time.Thursday:  "목요일",
	time.Friday:    "금요일",
	time.Saturday:  "토요일",
}

// TimeContexts are the two time lines of the reply prompt. Awareness is
// empty unless the last turn is more than an hour old.
type TimeContexts struct {
	Current   string
	Awareness string
}

const awarenessGap = time.Hour

func BuildTimeContexts(now time.Time, loc *time.Location, last *types.ConversationTurn) TimeContexts {
	if loc == nil {
		loc = seoul
	}
	local := now.In(loc)
	stamp := fmt.Sprintf("%s %s %s", local.Format("2006년 01월 02일"), koreanWeekdays[local.Weekday()], local.Format("15시 04분"))
	out := TimeContexts{
		Current: fmt.Sprintf("[시간 정보]: 현재 대한민국 시간은 정확히 '%s'이야. 시간과 관련된 모든 질문에 이 정보를 최우선으로 사용해서 답해야 해. 절대 다른 시간을 말해서는 안 돼", stamp),
	}
	if last == nil {
		return out
	}
	gap := now.Sub(last.CreatedAt)
	if gap <= awarenessGap {
		return out
	}
	secs := int64(gap / time.Second)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	sender := "내가"
	if last.IsFromUser {
		sender = "네가"
	}
	out.Awareness = fmt.Sprintf("[최근 마지막 대화정보]: 마지막 대화로부터 약 %d시간 %d분이 지났어. 마지막에 %s 한 말은 '%s'이었어. 이 시간의 공백을 네 캐릭터에 맞게 재치있게 언급하며 대화를 시작해줘.", hours, minutes, sender, last.Text)
	return out
}
