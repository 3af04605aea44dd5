package domain

import "math/rand"

// RoleAssignment is one seat's outcome of the assignment engine.
type RoleAssignment struct {
	Role     Role
	IsLeader bool
	Briefing string
}

// RoleDistribution builds the role pool for a game: Assassin plus enabled
// extra evil roles padded with Minions, then Merlin plus Percival (when
// enabled) padded with Servants. The returned slice has exactly
// playerCount entries, evil roles first.
func RoleDistribution(playerCount int, extraRoles []RoleKey) ([]Role, error) {
	evilCount, err := EvilCountFor(playerCount)
	if err != nil {
		return nil, err
	}

	enabled := func(key RoleKey) bool {
		for _, k := range extraRoles {
			if k == key {
				return true
			}
		}
		return false
	}

	evil := []RoleKey{RoleAssassin}
	for _, key := range []RoleKey{RoleMordred, RoleMorgana, RoleOberon} {
		if len(evil) < evilCount && enabled(key) {
			evil = append(evil, key)
		}
	}
	for len(evil) < evilCount {
		evil = append(evil, RoleMinion)
	}

	good := []RoleKey{RoleMerlin}
	if enabled(RolePercival) {
		good = append(good, RolePercival)
	}
	for len(evil)+len(good) < playerCount {
		good = append(good, RoleServant)
	}

	pool := make([]Role, 0, playerCount)
	for _, key := range append(evil, good...) {
		pool = append(pool, Roles[key])
	}
	return pool, nil
}

// AssignRoles produces one role per seat as a uniformly random permutation
// of the role pool, picks a uniformly random first leader, and computes
// every player's briefing from the completed roster. Players are assigned
// in slice order; the caller persists the result.
func AssignRoles(players []*Player, extraRoles []RoleKey, rng *rand.Rand) ([]RoleAssignment, error) {
	pool, err := RoleDistribution(len(players), extraRoles)
	if err != nil {
		return nil, err
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	leaderSeat := rng.Intn(len(players))

	// Stamp the full assignment before computing any briefing: briefings
	// depend on the whole roster.
	for i, p := range players {
		p.Role = pool[i].Key
		p.IsLeader = i == leaderSeat
		p.Order = i
	}

	assignments := make([]RoleAssignment, len(players))
	for i, p := range players {
		p.SecretInfo = BriefingFor(p, players)
		assignments[i] = RoleAssignment{
			Role:     pool[i],
			IsLeader: i == leaderSeat,
			Briefing: p.SecretInfo,
		}
	}
	return assignments, nil
}
