package wellness

// Fixed content served to clients alongside the interactive features.

type HelpReason struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Available    bool   `json:"available"`
	ResponseTime string `json:"response_time"`
}

// DefaultHelpMessage is used when a help request is sent without a message.
const DefaultHelpMessage = "I could use some support right now."

var helpReasons = []HelpReason{
	{"overwhelmed", "Feeling overwhelmed", "😰"},
	{"sad", "Feeling sad or down", "😢"},
	{"anxious", "Feeling anxious", "😟"},
	{"lonely", "Feeling lonely", "😔"},
	{"stressed", "Dealing with stress", "😤"},
	{"conflict", "Family conflict", "😠"},
	{"support", "Need emotional support", "🤗"},
	{"other", "Something else", "💭"},
}

var contacts = []Contact{
	{"parent", "Parent/Guardian", "Reach out to your parent or guardian", true, "Usually responds within 5 minutes"},
	{"sibling", "Sibling", "Talk to your brother or sister", true, "Usually responds within 15 minutes"},
	{"therapist", "Family Therapist", "Professional mental health support", false, "Available during business hours"},
	{"counselor", "School Counselor", "Educational and emotional support", true, "Available during school hours"},
}

func HelpReasons() []HelpReason { return append([]HelpReason(nil), helpReasons...) }
func Contacts() []Contact       { return append([]Contact(nil), contacts...) }

// LookupHelpReason finds a help reason by ID.
func LookupHelpReason(id string) (HelpReason, bool) {
	for _, r := range helpReasons {
		if r.ID == id {
			return r, true
		}
	}
	return HelpReason{}, false
}

// LookupContact finds a contact option by ID.
func LookupContact(id string) (Contact, bool) {
	for _, c := range contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

type EmergencyContact struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type BreathingExercise struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Duration    int      `json:"duration_seconds"`
	Steps       []string `json:"steps"`
}

type CopingStrategy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type CrisisResources struct {
	EmergencyContacts  []EmergencyContact  `json:"emergency_contacts"`
	BreathingExercises []BreathingExercise `json:"breathing_exercises"`
	CopingStrategies   []CopingStrategy    `json:"coping_strategies"`
}

// Resources returns crisis hotlines, breathing exercises and coping strategies.
func Resources() CrisisResources {
	return CrisisResources{
		EmergencyContacts: []EmergencyContact{
			{"National Suicide Prevention Lifeline", "988", "24/7 crisis support", "crisis"},
			{"Crisis Text Line", "Text HOME to 741741", "24/7 text-based crisis support", "text"},
		},
		BreathingExercises: []BreathingExercise{
			{
				Name:        "4-7-8 Breathing",
				Description: "Inhale for 4, hold for 7, exhale for 8",
				Duration:    60,
				Steps: []string{
					"Inhale through nose for 4 counts",
					"Hold breath for 7 counts",
					"Exhale through mouth for 8 counts",
					"Repeat 3-4 times",
				},
			},
			{
				Name:        "Box Breathing",
				Description: "Equal counts for inhale, hold, exhale, hold",
				Duration:    80,
				Steps:       []string{"Inhale for 4 counts", "Hold for 4 counts", "Exhale for 4 counts", "Hold for 4 counts"},
			},
		},
		CopingStrategies: []CopingStrategy{
			{"Grounding Technique (5-4-3-2-1)", "Name 5 things you see, 4 you can touch, 3 you hear, 2 you smell, 1 you taste", "🌱"},
			{"Progressive Muscle Relaxation", "Tense and release each muscle group from toes to head", "💪"},
			{"Mindful Observation", "Focus intently on a single object for 2-3 minutes", "👁️"},
			{"Cold Water Technique", "Splash cold water on face or hold ice cubes", "❄️"},
		},
	}
}

// JournalTags are the mood tags an entry may carry.
var JournalTags = []string{"Gratitude", "Stress", "Hope", "Anger", "Calm"}

// IsJournalTag reports whether tag is in JournalTags.
func IsJournalTag(tag string) bool {
	for _, t := range JournalTags {
		if t == tag {
			return true
		}
	}
	return false
}

var journalPrompts = []string{
	"What made you smile today?",
	"Describe a moment when you felt proud of yourself",
	"What's one thing you're grateful for right now?",
	"How did you show kindness to someone today?",
	"What challenge did you overcome recently?",
	"Write about a person who inspires you",
}

func JournalPrompts() []string { return append([]string(nil), journalPrompts...) }

var chatSuggestions = []string{
	"That's wonderful news! I'm so proud of you! 🎉",
	"Tell us more about it!",
	"Your hard work is really paying off!",
	"How can we celebrate this together?",
}

func ChatSuggestions() []string { return append([]string(nil), chatSuggestions...) }
