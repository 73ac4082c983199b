package achievement

// Badge types, stable because clients key on them.
const (
	BadgeFirstPomodoro  = "first_pomodoro"
	BadgeTenPomodoros   = "10_pomodoros"
	Badge100Questions   = "100_questions"
	Badge500Questions   = "500_questions"
	Badge1000Questions  = "1000_questions"
	BadgeThreeDayStreak = "3_day_streak"
	BadgeSevenDayStreak = "7_day_streak"
	BadgeTwoWeekStreak  = "14_day_streak"
	BadgeMonthStreak    = "30_day_streak"
)

// Rule pairs a badge with the predicate that earns it.
type Rule struct {
	BadgeType   string
	Title       string
	Description string
	Icon        string
	Satisfied   func(Aggregates) bool
}

// Rules returns the ordered rule table. Rules are independent of each other.
func Rules() []Rule {
	return []Rule{
		{
			BadgeType:   BadgeFirstPomodoro,
			Title:       "First Pomodoro!",
			Description: "You completed your first focus session!",
			Icon:        "🍅",
			Satisfied:   func(a Aggregates) bool { return a.WorkSessionCount == 1 },
		},
		{
			BadgeType:   BadgeTenPomodoros,
			Title:       "10 Pomodoros",
			Description: "Ten focus sessions completed.",
			Icon:        "🔟",
			Satisfied:   minWorkSessions(10),
		},
		{
			BadgeType:   Badge100Questions,
			Title:       "100 Questions!",
			Description: "You solved 100 questions. Keep going!",
			Icon:        "📚",
			Satisfied:   minQuestions(100),
		},
		{
			BadgeType:   Badge500Questions,
			Title:       "500 Questions",
			Description: "500 questions solved.",
			Icon:        "🧠",
			Satisfied:   minQuestions(500),
		},
		{
			BadgeType:   Badge1000Questions,
			Title:       "1000 Questions",
			Description: "A thousand questions solved.",
			Icon:        "🏆",
			Satisfied:   minQuestions(1000),
		},
		{
			BadgeType:   BadgeThreeDayStreak,
			Title:       "3 Day Streak",
			Description: "Studied three days in a row.",
			Icon:        "🔥",
			Satisfied:   minStreak(3),
		},
		{
			BadgeType:   BadgeSevenDayStreak,
			Title:       "7 Day Streak",
			Description: "A full week without a break.",
			Icon:        "⭐",
			Satisfied:   minStreak(7),
		},
		{
			BadgeType:   BadgeTwoWeekStreak,
			Title:       "14 Day Streak",
			Description: "Two weeks of daily focus.",
			Icon:        "💪",
			Satisfied:   minStreak(14),
		},
		{
			BadgeType:   BadgeMonthStreak,
			Title:       "30 Day Streak",
			Description: "Thirty consecutive days of study.",
			Icon:        "👑",
			Satisfied:   minStreak(30),
		},
	}
}

func minWorkSessions(n int) func(Aggregates) bool {
	return func(a Aggregates) bool { return a.WorkSessionCount >= n }
}

func minQuestions(n int) func(Aggregates) bool {
	return func(a Aggregates) bool { return a.TotalQuestions >= n }
}

func minStreak(n int) func(Aggregates) bool {
	return func(a Aggregates) bool { return a.CurrentStreak >= n }
}
