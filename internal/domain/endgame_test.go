package domain

import "testing"

func questResults(results ...QuestResult) []*Quest {
	quests := make([]*Quest, QuestCount)
	for i := range quests {
		quests[i] = &Quest{Number: i + 1}
		if i < len(results) {
			quests[i].Result = results[i]
		}
	}
	return quests
}

func TestEvaluateQuests(t *testing.T) {
	tests := []struct {
		name    string
		results []QuestResult
		want    GameOutcome
	}{
		{
			name:    "ThreeSuccessesRouteToAssassination",
			results: []QuestResult{QuestSuccess, QuestFail, QuestSuccess, QuestSuccess},
			want:    GameOutcome{Ended: true, GoodWon: true, RouteToAssassination: true},
		},
		{
			name:    "ThreeFailsEndForEvil",
			results: []QuestResult{QuestFail, QuestSuccess, QuestFail, QuestFail},
			want:    GameOutcome{Ended: true},
		},
		{
			name:    "TwoEachStillRunning",
			results: []QuestResult{QuestSuccess, QuestFail, QuestSuccess, QuestFail},
			want:    GameOutcome{},
		},
		{
			name:    "NothingRecorded",
			results: nil,
			want:    GameOutcome{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateQuests(questResults(tt.results...)); got != tt.want {
				t.Errorf("EvaluateQuests() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
