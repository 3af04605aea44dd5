package bot

import (
	"math/rand"
	"strings"

	"avalon/internal/domain"
)

// Agent is the decision maker behind one bot seat. It only ever sees
// what a human in that seat would see: its private role briefing plus
// public room state handed in per decision.
type Agent struct {
	sessionID string
	rng       *rand.Rand

	role     domain.RoleKey
	side     domain.Side
	briefing string
}

// NewAgent creates an agent for the given bot session id.
func NewAgent(sessionID string, rng *rand.Rand) *Agent {
	return &Agent{sessionID: sessionID, rng: rng}
}

// SessionID returns the bot's seat session id.
func (a *Agent) SessionID() string { return a.sessionID }

// Learn records the private role briefing dealt to this seat.
func (a *Agent) Learn(role domain.RoleKey, side domain.Side, briefing string) {
	a.role = role
	a.side = side
	a.briefing = briefing
}

// PickParty chooses a quest party: itself plus random co-players.
func (a *Agent) PickParty(candidates []string, partySize int) []string {
	party := make([]string, 0, partySize)
	party = append(party, a.sessionID)

	rest := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id != a.sessionID {
			rest = append(rest, id)
		}
	}
	a.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for _, id := range rest {
		if len(party) == partySize {
			break
		}
		party = append(party, id)
	}
	return party
}

// DecideGlobalVote picks a team-vote ballot. Evil stalls toward the
// fifth rejection when it wins them the game; otherwise both sides
// mostly approve so the table keeps moving.
func (a *Agent) DecideGlobalVote(missedTeamVotes int) domain.Vote {
	if a.side == domain.SideEvil && missedTeamVotes >= 4 {
		return domain.VoteNo
	}
	if a.rng.Intn(5) == 0 {
		return domain.VoteNo
	}
	return domain.VoteYes
}

// DecideQuestVote picks a quest ballot: good always supports the
// quest, evil sabotages it.
func (a *Agent) DecideQuestVote() domain.Vote {
	if a.side == domain.SideEvil {
		return domain.VoteNo
	}
	return domain.VoteYes
}

// PickAssassinationTarget picks a kill target among players not named
// in the briefing as fellow evil, by session id. names maps session ids
// to display names.
func (a *Agent) PickAssassinationTarget(names map[string]string) string {
	var pool []string
	for sid, name := range names {
		if sid == a.sessionID {
			continue
		}
		if name != "" && strings.Contains(a.briefing, name) {
			continue
		}
		pool = append(pool, sid)
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[a.rng.Intn(len(pool))]
}
