package wellness

import "strings"

type Valence string

const (
	ValencePositive Valence = "positive"
	ValenceNeutral  Valence = "neutral"
	ValenceNegative Valence = "negative"
)

// Mood is one entry of the check-in mood catalog.
type Mood struct {
	Label   string  `json:"label"`
	Emoji   string  `json:"emoji"`
	Color   string  `json:"color"`
	Valence Valence `json:"valence"`
	Score   int     `json:"score"`
}

var moods = []Mood{
	{"Happy", "😊", "green", ValencePositive, 85},
	{"Tired", "😴", "blue", ValenceNeutral, 55},
	{"Anxious", "😰", "yellow", ValenceNegative, 35},
	{"Sad", "😢", "red", ValenceNegative, 30},
	{"Angry", "😡", "red", ValenceNegative, 25},
	{"Confused", "🤔", "purple", ValenceNeutral, 50},
	{"Calm", "😌", "green", ValencePositive, 80},
	{"Excited", "😄", "yellow", ValencePositive, 90},
}

// Moods returns the catalog in display order.
func Moods() []Mood {
	out := make([]Mood, len(moods))
	copy(out, moods)
	return out
}

// LookupMood finds a mood by label, ignoring case and surrounding space.
func LookupMood(label string) (Mood, bool) {
	label = strings.TrimSpace(label)
	for _, m := range moods {
		if strings.EqualFold(m.Label, label) {
			return m, true
		}
	}
	return Mood{}, false
}

// ValenceOf returns the valence of a mood label; unknown labels are neutral.
func ValenceOf(label string) Valence {
	if m, ok := LookupMood(label); ok {
		return m.Valence
	}
	return ValenceNeutral
}
