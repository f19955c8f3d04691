package models

type Sport string

const (
	SportBasketball Sport = "basketball"
	SportSoccer     Sport = "soccer"
)

// Sports lists every playable sport in display order.
var Sports = []Sport{SportBasketball, SportSoccer}

func (s Sport) Valid() bool {
	return s == SportBasketball || s == SportSoccer
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Easier returns the difficulty one step below d. Easy has nothing below it.
func (d Difficulty) Easier() (Difficulty, bool) {
	switch d {
	case DifficultyMedium:
		return DifficultyEasy, true
	case DifficultyHard:
		return DifficultyMedium, true
	}
	return "", false
}

type Category string

const (
	CategoryPlayers       Category = "players"
	CategoryTeams         Category = "teams"
	CategoryHistory       Category = "history"
	CategoryStats         Category = "stats"
	CategoryChampionships Category = "championships"
	CategoryDraft         Category = "draft"
	CategoryRecords       Category = "records"
	CategoryCurrentEvents Category = "current_events"
)

var Categories = []Category{
	CategoryPlayers, CategoryTeams, CategoryHistory, CategoryStats,
	CategoryChampionships, CategoryDraft, CategoryRecords, CategoryCurrentEvents,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Sport         Sport      `json:"sport"`
	Category      Category   `json:"category,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
}

// PublicQuestion is a question as shown to players: no answer.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Text       string     `json:"question"`
	Options    []string   `json:"options"`
	Sport      Sport      `json:"sport"`
	Category   Category   `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Options:    append([]string(nil), q.Options...),
		Sport:      q.Sport,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

type GenerateQuestionsRequest struct {
	Sport      Sport      `json:"sport"`
	Category   Category   `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Count      int        `json:"count"`
}
