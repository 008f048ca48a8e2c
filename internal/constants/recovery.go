package constants

// AddictionType is the substance or behavior a profile is recovering from
type AddictionType string

// Badge is the icon key shown next to a milestone
type Badge string

// ChatRole tags a chat message with its author
type ChatRole string

const (
	AddictionSmoking AddictionType = "Smoking"
	AddictionAlcohol AddictionType = "Alcohol"
	AddictionDrugs   AddictionType = "Drugs"

	DefaultAddictionType = AddictionSmoking

	BadgeStar   Badge = "star"
	BadgeAward  Badge = "award"
	BadgeTrophy Badge = "trophy"

	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"

	// Points awarded for a daily log
	PointsSober    = 10
	PointsConsumed = -5

	// ChatWindow caps how many prior turns the relay sends to the model
	ChatWindow = 20

	// HistoryDays is the length of the daily progress and savings chart windows
	HistoryDays = 7

	AnonymousAuthor = "Anonymous"
	NoUserTurnReply = "No user message found to respond to."
	CurrencySymbol  = "₹"
)

// AddictionTypes lists the supported addiction types in display order
var AddictionTypes = []AddictionType{AddictionSmoking, AddictionAlcohol, AddictionDrugs}

// IsAddictionType reports whether s names a supported addiction type
func IsAddictionType(s string) bool {
	for _, t := range AddictionTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Counselors are the personas a chat session can be opened with
var Counselors = []string{"Alex", "Dr. Evelyn Reed", "Sam", "Jordan"}

// Affirmations is the pool the daily affirmation is drawn from
var Affirmations = []string{
	"I am in control of my life and my choices.",
	"Every day sober is a victory worth celebrating.",
	"I am stronger than my addiction.",
	"I choose a healthy and happy life.",
	"My past does not define my future.",
	"I am resilient and can overcome any challenge.",
	"I deserve peace and happiness.",
	"I am committed to my recovery, one day at a time.",
	"I am creating a better life for myself.",
	"I am worthy of love, respect, and a sober life.",
}

// CopingTechniques are the reference techniques the coping suggester draws from
var CopingTechniques = []string{
	"Deep breathing exercises",
	"Meditation or mindfulness",
	"Physical exercise",
	"Calling a friend or family member",
	"Attending a support group meeting",
	"Engaging in a hobby",
	"Progressive muscle relaxation",
	"Visualization techniques",
	"Writing in a journal",
	"Listening to music",
	"Reframing negative thoughts",
	"Avoiding triggers",
	"Seeking professional help",
}
