package models

import "time"

// SessionKind distinguishes a logged workout from a template being built.
// Each kind is persisted under its own key so the two never collide.
type SessionKind string

const (
	KindWorkout  SessionKind = "workout"
	KindTemplate SessionKind = "template"
)

// Valid reports whether k is a known session kind.
func (k SessionKind) Valid() bool {
	return k == KindWorkout || k == KindTemplate
}

// Session is the in-progress workout or template. It is the aggregate root:
// every change goes through the workout store, which replaces the value as a whole.
type Session struct {
	Kind            SessionKind     `json:"kind"`
	Name            string          `json:"name"`
	Comment         string          `json:"comment,omitempty"`
	StartTime       time.Time       `json:"startTime"`
	Exercises       []ExerciseEntry `json:"exercises"`
	Supersets       []SupersetGroup `json:"supersets"`
	Assets          Assets          `json:"assets"`
	RepeatedFromID  string          `json:"repeatedFromId,omitempty"`
	TemplateID      string          `json:"templateId,omitempty"`
	UpdateWorkoutID string          `json:"updateWorkoutId,omitempty"`
	Intervals       []Interval      `json:"stopwatchIntervals"`
	// CommittedAs is set on a stored copy the remote API already accepted
	// but that could not be deleted. Such a copy is never resumed.
	CommittedAs string `json:"committedAs,omitempty"`
}

// Interval is one stretch of active time. To is nil while the interval is open.
type Interval struct {
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
}

// Open reports whether the interval has not been closed yet.
func (i Interval) Open() bool { return i.To == nil }

// Assets holds uploaded media keys. Upload itself happens elsewhere.
type Assets struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
}

// ExerciseEntry is one occurrence of a catalog exercise within a session.
// Identifier is unique per session; ExerciseID may repeat.
type ExerciseEntry struct {
	Identifier string      `json:"identifier"`
	ExerciseID string      `json:"exerciseId"`
	Lot        ExerciseLot `json:"lot"`
	Notes      []string    `json:"notes"`
	Assets     Assets      `json:"assets"`
	Sets       []SetRecord `json:"sets"`
}

// SetRecord is a single performed (or planned) set.
type SetRecord struct {
	Identifier string    `json:"identifier"`
	Lot        SetLot    `json:"lot"`
	Statistic  Statistic `json:"statistic"`
	// ConfirmedAt is nil while the set is unconfirmed.
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	// Note is nil when the set has no note. A non-nil empty string is a
	// note the user opened but has not typed yet.
	Note                   *string            `json:"note,omitempty"`
	RestTimer              *SetRestTimer      `json:"restTimer,omitempty"`
	DisplayRestTimeTrigger bool               `json:"displayRestTimeTrigger,omitempty"`
	RPE                    *float64           `json:"rpe,omitempty"`
	PersonalBests          []PersonalBestKind `json:"personalBests,omitempty"`
}

// Confirmed reports whether the set has been confirmed.
func (s SetRecord) Confirmed() bool { return s.ConfirmedAt != nil }

// SetRestTimer is the persisted rest timer configuration of a set.
type SetRestTimer struct {
	Duration   int        `json:"duration"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	HasElapsed bool       `json:"hasElapsed,omitempty"`
}

// SupersetGroup ties exercises that are performed back to back. Members are
// referenced by their position in Session.Exercises.
type SupersetGroup struct {
	Identifier      string `json:"identifier"`
	Color           string `json:"color"`
	ExerciseIndexes []int  `json:"exerciseIndexes"`
}

// Contains reports whether the exercise at idx belongs to the group.
func (g SupersetGroup) Contains(idx int) bool {
	for _, i := range g.ExerciseIndexes {
		if i == idx {
			return true
		}
	}
	return false
}

// RestTimerTrigger identifies the set that started a rest countdown.
type RestTimerTrigger struct {
	ExerciseIdentifier string `json:"exerciseIdentifier"`
	SetIdentifier      string `json:"setIdentifier"`
}

// RestTimerSignal is the ephemeral, process-wide countdown. It is never part
// of the persisted Session.
type RestTimerSignal struct {
	TriggeredBy      RestTimerTrigger `json:"triggeredBy"`
	TotalSeconds     int              `json:"totalSeconds"`
	RemainingSeconds int              `json:"remainingSeconds"`
	StartedAt        time.Time        `json:"startedAt"`
}

// SetRestTimersSettings holds the user's default rest duration per set lot,
// in seconds. Zero means no timer for that lot.
type SetRestTimersSettings struct {
	Normal  int `json:"normal" yaml:"normal"`
	WarmUp  int `json:"warmUp" yaml:"warm_up"`
	Drop    int `json:"drop" yaml:"drop"`
	Failure int `json:"failure" yaml:"failure"`
}

// For returns the configured default for lot.
func (s SetRestTimersSettings) For(lot SetLot) int {
	switch lot {
	case SetLotWarmUp:
		return s.WarmUp
	case SetLotDrop:
		return s.Drop
	case SetLotFailure:
		return s.Failure
	default:
		return s.Normal
	}
}

// Paused reports whether the stopwatch has no open interval.
func (s *Session) Paused() bool {
	if len(s.Intervals) == 0 {
		return true
	}
	return !s.Intervals[len(s.Intervals)-1].Open()
}

// Clone returns a deep copy of the session. Stores hand out clones so that
// callers never alias the stored value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Assets = s.Assets.Clone()
	out.Intervals = make([]Interval, len(s.Intervals))
	for i, iv := range s.Intervals {
		out.Intervals[i] = Interval{From: iv.From, To: clonePtr(iv.To)}
	}
	out.Supersets = make([]SupersetGroup, len(s.Supersets))
	for i, g := range s.Supersets {
		g.ExerciseIndexes = append([]int(nil), g.ExerciseIndexes...)
		out.Supersets[i] = g
	}
	out.Exercises = make([]ExerciseEntry, len(s.Exercises))
	for i, ex := range s.Exercises {
		out.Exercises[i] = ex.Clone()
	}
	return &out
}

// Clone returns a deep copy of the asset lists.
func (a Assets) Clone() Assets {
	return Assets{
		Images: append([]string{}, a.Images...),
		Videos: append([]string{}, a.Videos...),
	}
}

// Clone returns a deep copy of the entry.
func (e ExerciseEntry) Clone() ExerciseEntry {
	out := e
	out.Notes = append([]string{}, e.Notes...)
	out.Assets = e.Assets.Clone()
	out.Sets = make([]SetRecord, len(e.Sets))
	for i, set := range e.Sets {
		out.Sets[i] = set.Clone()
	}
	return out
}

// Clone returns a deep copy of the set.
func (s SetRecord) Clone() SetRecord {
	out := s
	out.Statistic = s.Statistic.Clone()
	out.ConfirmedAt = clonePtr(s.ConfirmedAt)
	out.Note = clonePtr(s.Note)
	out.RPE = clonePtr(s.RPE)
	if s.RestTimer != nil {
		rt := *s.RestTimer
		rt.StartedAt = clonePtr(s.RestTimer.StartedAt)
		out.RestTimer = &rt
	}
	out.PersonalBests = append([]PersonalBestKind(nil), s.PersonalBests...)
	return out
}
