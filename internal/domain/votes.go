package domain

// GlobalVoteOutcome is the resolution of a team vote once every player voted.
type GlobalVoteOutcome struct {
	Resolved bool
	Approved bool
}

// ResolveGlobalVote tallies the team vote. It resolves only when every
// seated player has a ballot; approval needs a strict majority, so an
// even split rejects the party.
func ResolveGlobalVote(players []*Player) GlobalVoteOutcome {
	voted, yes := 0, 0
	for _, p := range players {
		if p.GlobalVote == VoteUnset {
			continue
		}
		voted++
		if p.GlobalVote == VoteYes {
			yes++
		}
	}
	if voted != len(players) {
		return GlobalVoteOutcome{}
	}
	return GlobalVoteOutcome{Resolved: true, Approved: yes > voted/2}
}

// QuestVoteOutcome is the resolution of a quest vote once the whole party voted.
type QuestVoteOutcome struct {
	Resolved bool
	Result   QuestResult
}

// ResolveQuestVote tallies the quest vote of the nominated party. It
// resolves when every nominated player has a ballot. The quest normally
// succeeds on a strict majority of "yes"; a two-fails quest instead
// fails only when at least two "no" ballots were cast.
func ResolveQuestVote(players []*Player, twoFailsRequired bool) QuestVoteOutcome {
	nominated, voted, yes, no := 0, 0, 0, 0
	for _, p := range players {
		if !p.Nominated {
			continue
		}
		nominated++
		if p.QuestVote == VoteUnset {
			continue
		}
		voted++
		switch p.QuestVote {
		case VoteYes:
			yes++
		case VoteNo:
			no++
		}
	}
	if nominated == 0 || voted != nominated {
		return QuestVoteOutcome{}
	}

	result := QuestFail
	if twoFailsRequired {
		if no < 2 {
			result = QuestSuccess
		}
	} else if yes > voted/2 {
		result = QuestSuccess
	}
	return QuestVoteOutcome{Resolved: true, Result: result}
}

// NextLeaderOrder rotates leadership one seat forward, cyclically and
// regardless of connection status.
func NextLeaderOrder(currentOrder, playerCount int) int {
	return (currentOrder + 1) % playerCount
}
