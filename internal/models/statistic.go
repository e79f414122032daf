package models

// ExerciseLot is the schema of statistic fields an exercise expects.
type ExerciseLot string

const (
	ExerciseLotReps                       ExerciseLot = "reps"
	ExerciseLotDuration                   ExerciseLot = "duration"
	ExerciseLotRepsAndDuration            ExerciseLot = "reps_and_duration"
	ExerciseLotDistanceAndDuration        ExerciseLot = "distance_and_duration"
	ExerciseLotRepsAndWeight              ExerciseLot = "reps_and_weight"
	ExerciseLotRepsAndDurationAndDistance ExerciseLot = "reps_and_duration_and_distance"
)

// Valid reports whether l is a known exercise lot.
func (l ExerciseLot) Valid() bool {
	return l.PersonalBests() != nil
}

// SetLot classifies a set.
type SetLot string

const (
	SetLotNormal  SetLot = "normal"
	SetLotWarmUp  SetLot = "warm_up"
	SetLotDrop    SetLot = "drop"
	SetLotFailure SetLot = "failure"
)

// Valid reports whether l is a known set lot.
func (l SetLot) Valid() bool {
	switch l {
	case SetLotNormal, SetLotWarmUp, SetLotDrop, SetLotFailure:
		return true
	}
	return false
}

// PersonalBestKind names a metric a set can set a personal best in.
type PersonalBestKind string

const (
	PersonalBestWeight   PersonalBestKind = "weight"
	PersonalBestOneRM    PersonalBestKind = "one_rm"
	PersonalBestVolume   PersonalBestKind = "volume"
	PersonalBestReps     PersonalBestKind = "reps"
	PersonalBestTime     PersonalBestKind = "time"
	PersonalBestPace     PersonalBestKind = "pace"
	PersonalBestDistance PersonalBestKind = "distance"
)

// PersonalBests lists the metrics tracked for an exercise lot.
func (l ExerciseLot) PersonalBests() []PersonalBestKind {
	switch l {
	case ExerciseLotReps:
		return []PersonalBestKind{PersonalBestReps}
	case ExerciseLotDuration:
		return []PersonalBestKind{PersonalBestTime}
	case ExerciseLotRepsAndDuration:
		return []PersonalBestKind{PersonalBestReps, PersonalBestTime}
	case ExerciseLotDistanceAndDuration:
		return []PersonalBestKind{PersonalBestPace, PersonalBestTime, PersonalBestDistance}
	case ExerciseLotRepsAndDurationAndDistance:
		return []PersonalBestKind{PersonalBestReps, PersonalBestPace, PersonalBestTime, PersonalBestDistance}
	case ExerciseLotRepsAndWeight:
		return []PersonalBestKind{PersonalBestReps, PersonalBestOneRM, PersonalBestWeight, PersonalBestVolume}
	}
	return nil
}

// Statistic holds the measured values of a set. Nil fields were not entered.
// Pace, OneRM and Volume are derived from the others.
type Statistic struct {
	Reps     *float64 `json:"reps,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
	Pace     *float64 `json:"pace,omitempty"`
	OneRM    *float64 `json:"oneRm,omitempty"`
	Volume   *float64 `json:"volume,omitempty"`
}

// Empty reports whether no field has been entered.
func (s Statistic) Empty() bool {
	return s.Reps == nil && s.Weight == nil && s.Duration == nil && s.Distance == nil &&
		s.Pace == nil && s.OneRM == nil && s.Volume == nil
}

// Clone returns a copy that shares no pointers with s.
func (s Statistic) Clone() Statistic {
	return Statistic{
		Reps:     clonePtr(s.Reps),
		Weight:   clonePtr(s.Weight),
		Duration: clonePtr(s.Duration),
		Distance: clonePtr(s.Distance),
		Pace:     clonePtr(s.Pace),
		OneRM:    clonePtr(s.OneRM),
		Volume:   clonePtr(s.Volume),
	}
}

// WithDerived returns a copy with Pace, OneRM and Volume computed from the
// entered fields. Derived fields whose inputs are missing are cleared.
func (s Statistic) WithDerived() Statistic {
	out := s.Clone()
	out.Volume = nil
	out.OneRM = nil
	out.Pace = nil
	if s.Weight != nil && s.Reps != nil {
		v := *s.Weight * *s.Reps
		out.Volume = &v
		out.OneRM = oneRepMax(*s.Weight, *s.Reps)
	}
	if s.Distance != nil && s.Duration != nil && *s.Duration > 0 {
		p := *s.Distance / *s.Duration
		out.Pace = &p
	}
	return out
}

// oneRepMax estimates with Brzycki below ten reps and Epley from ten up.
func oneRepMax(weight, reps float64) *float64 {
	var v float64
	if reps < 10 {
		v = weight * 36 / (37 - reps)
	} else {
		v = weight * (1 + reps/30)
	}
	if v <= 0 {
		return nil
	}
	return &v
}

// Value returns the metric a personal best of kind compares.
func (s Statistic) Value(kind PersonalBestKind) (float64, bool) {
	d := s.WithDerived()
	var p *float64
	switch kind {
	case PersonalBestWeight:
		p = d.Weight
	case PersonalBestOneRM:
		p = d.OneRM
	case PersonalBestVolume:
		p = d.Volume
	case PersonalBestReps:
		p = d.Reps
	case PersonalBestTime:
		p = d.Duration
	case PersonalBestPace:
		p = d.Pace
	case PersonalBestDistance:
		p = d.Distance
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float returns a pointer to v, for building statistics literally.
func Float(v float64) *float64 { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
