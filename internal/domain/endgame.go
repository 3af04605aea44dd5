package domain

// GameOutcome is the end-game evaluation over recorded quest results.
type GameOutcome struct {
	Ended bool
	// GoodWon is meaningful only when Ended is true. Three successes put
	// good ahead but route through assassination before the win is final.
	GoodWon              bool
	RouteToAssassination bool
}

// EvaluateQuests decides whether three quests have settled the game.
// The five-failed-nominations loss is signaled by the vote cycle, not
// here, since it depends on vote history rather than quest history.
func EvaluateQuests(quests []*Quest) GameOutcome {
	succeeded, failed := 0, 0
	for _, q := range quests {
		switch q.Result {
		case QuestSuccess:
			succeeded++
		case QuestFail:
			failed++
		}
	}

	switch {
	case succeeded >= 3:
		return GameOutcome{Ended: true, GoodWon: true, RouteToAssassination: true}
	case failed >= 3:
		return GameOutcome{Ended: true}
	default:
		return GameOutcome{}
	}
}
