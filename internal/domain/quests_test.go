package domain

import "testing"

func TestQuestsFor(t *testing.T) {
	tests := []struct {
		playerCount   int
		partySizes    []int
		twoFailsQuest int
	}{
		{playerCount: 5, partySizes: []int{2, 3, 2, 3, 3}},
		{playerCount: 6, partySizes: []int{2, 3, 4, 3, 4}},
		{playerCount: 7, partySizes: []int{2, 3, 3, 4, 4}, twoFailsQuest: 4},
		{playerCount: 8, partySizes: []int{3, 4, 4, 5, 5}, twoFailsQuest: 4},
		{playerCount: 9, partySizes: []int{3, 4, 4, 5, 5}, twoFailsQuest: 4},
		{playerCount: 10, partySizes: []int{3, 4, 4, 5, 5}, twoFailsQuest: 4},
	}

	for _, tt := range tests {
		quests, err := QuestsFor("ROOM", tt.playerCount)
		if err != nil {
			t.Fatalf("QuestsFor(%d) error: %v", tt.playerCount, err)
		}
		if len(quests) != QuestCount {
			t.Fatalf("QuestsFor(%d) returned %d quests", tt.playerCount, len(quests))
		}
		for i, q := range quests {
			if q.Number != i+1 {
				t.Errorf("players=%d quest %d has number %d", tt.playerCount, i+1, q.Number)
			}
			if q.PartySize != tt.partySizes[i] {
				t.Errorf("players=%d quest %d party size = %d, want %d", tt.playerCount, q.Number, q.PartySize, tt.partySizes[i])
			}
			if got, want := q.TwoFailsRequired, q.Number == tt.twoFailsQuest; got != want {
				t.Errorf("players=%d quest %d twoFailsRequired = %v, want %v", tt.playerCount, q.Number, got, want)
			}
			if q.Active != (q.Number == 1) {
				t.Errorf("players=%d quest %d active = %v", tt.playerCount, q.Number, q.Active)
			}
			if q.Result != QuestPending {
				t.Errorf("players=%d quest %d result = %q, want pending", tt.playerCount, q.Number, q.Result)
			}
		}
	}
}

func TestQuestsForInvalidPlayerCount(t *testing.T) {
	for _, count := range []int{0, 1, 4, 11, 20} {
		if _, err := QuestsFor("ROOM", count); err != ErrInvalidPlayerCount {
			t.Errorf("QuestsFor(%d) error = %v, want ErrInvalidPlayerCount", count, err)
		}
		if _, err := EvilCountFor(count); err != ErrInvalidPlayerCount {
			t.Errorf("EvilCountFor(%d) error = %v, want ErrInvalidPlayerCount", count, err)
		}
	}
}
