package domain

import (
	"fmt"
	"sort"
	"strings"
)

// BriefingFor builds the private information text one player receives at
// game start. It is pure over the final assignment: the whole roster must
// be assigned before any briefing is computed.
//
// Visibility rules:
//   - Servant, Minion, Assassin with no special vision get side-only text.
//   - Merlin sees every evil player except Mordred.
//   - Percival sees Merlin; with Morgana in play he is told the pair
//     without learning which is which.
//   - Oberon learns nothing and appears in no evil roster.
//   - Every other evil role sees the full evil roster minus Oberon.
func BriefingFor(player *Player, players []*Player) string {
	switch player.Role {
	case RoleMerlin:
		visible := namesWhere(players, func(p *Player) bool {
			return p.Side() == SideEvil && p.Role != RoleMordred
		})
		return fmt.Sprintf("The forces of Evil: %s.", joinNames(visible))
	case RolePercival:
		candidates := namesWhere(players, func(p *Player) bool {
			return p.Role == RoleMerlin || p.Role == RoleMorgana
		})
		if len(candidates) > 1 {
			// Morgana is in play and deliberately impersonates Merlin.
			return fmt.Sprintf("Merlin is one of these players: %s.", joinNames(candidates))
		}
		return fmt.Sprintf("Merlin in this game is %s.", joinNames(candidates))
	case RoleOberon:
		return "You do not know the other players on the side of Evil and they do not know you."
	case RoleServant:
		return "You are on the side of Good. Watch the quest results and find who to trust."
	}

	if player.Side() == SideEvil {
		allies := namesWhere(players, func(p *Player) bool {
			return p.Side() == SideEvil && p.Role != RoleOberon && p.SessionID != player.SessionID
		})
		if len(allies) == 0 {
			return "You are the only known player on the side of Evil."
		}
		return fmt.Sprintf("Players on the side of Evil: %s.", joinNames(allies))
	}

	return "You are on the side of Good."
}

func namesWhere(players []*Player, keep func(*Player) bool) []string {
	var names []string
	for _, p := range players {
		if keep(p) {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
