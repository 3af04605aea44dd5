package domain

import "errors"

// ErrInvalidPlayerCount is returned for setups outside 5..10 seats.
var ErrInvalidPlayerCount = errors.New("player count must be between 5 and 10")

const (
	MinPlayers = 5
	MaxPlayers = 10

	// QuestCount is fixed: every game runs five quests.
	QuestCount = 5
)

// distribution holds the per-player-count setup: five quest party sizes
// and the number of evil seats.
type distribution struct {
	partySizes [QuestCount]int
	evilCount  int
	// twoFailsQuest is the 1-based quest number that requires two "no"
	// ballots to fail, or 0 when the normal majority rule applies throughout.
	twoFailsQuest int
}

var distributions = map[int]distribution{
	5:  {partySizes: [QuestCount]int{2, 3, 2, 3, 3}, evilCount: 2},
	6:  {partySizes: [QuestCount]int{2, 3, 4, 3, 4}, evilCount: 2},
	7:  {partySizes: [QuestCount]int{2, 3, 3, 4, 4}, evilCount: 3, twoFailsQuest: 4},
	8:  {partySizes: [QuestCount]int{3, 4, 4, 5, 5}, evilCount: 3, twoFailsQuest: 4},
	9:  {partySizes: [QuestCount]int{3, 4, 4, 5, 5}, evilCount: 3, twoFailsQuest: 4},
	10: {partySizes: [QuestCount]int{3, 4, 4, 5, 5}, evilCount: 4, twoFailsQuest: 4},
}

// QuestsFor builds the five quests of a fresh game for the given player
// count. Quest 1 starts active.
func QuestsFor(roomCode string, playerCount int) ([]*Quest, error) {
	dist, ok := distributions[playerCount]
	if !ok {
		return nil, ErrInvalidPlayerCount
	}

	quests := make([]*Quest, 0, QuestCount)
	for i, size := range dist.partySizes {
		number := i + 1
		quests = append(quests, &Quest{
			RoomCode:         roomCode,
			Number:           number,
			PartySize:        size,
			TwoFailsRequired: number == dist.twoFailsQuest,
			Active:           number == 1,
		})
	}
	return quests, nil
}

// EvilCountFor returns the number of evil seats for the player count.
func EvilCountFor(playerCount int) (int, error) {
	dist, ok := distributions[playerCount]
	if !ok {
		return 0, ErrInvalidPlayerCount
	}
	return dist.evilCount, nil
}
