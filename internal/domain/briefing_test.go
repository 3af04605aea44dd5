package domain

import (
	"strings"
	"testing"
)

// riggedPlayers builds a roster with fixed roles for visibility tests.
func riggedPlayers(roles map[string]RoleKey) []*Player {
	players := make([]*Player, 0, len(roles))
	for _, name := range []string{"alice", "bob", "carol", "dave", "eve", "frank", "grace"} {
		role, ok := roles[name]
		if !ok {
			continue
		}
		players = append(players, &Player{SessionID: name, Name: name, Role: role})
	}
	return players
}

func playerNamed(players []*Player, name string) *Player {
	for _, p := range players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func TestMerlinSeesEvilExceptMordred(t *testing.T) {
	players := riggedPlayers(map[string]RoleKey{
		"alice": RoleMerlin,
		"bob":   RoleAssassin,
		"carol": RoleMordred,
		"dave":  RoleOberon,
		"eve":   RoleServant,
		"frank": RoleServant,
		"grace": RolePercival,
	})

	briefing := BriefingFor(playerNamed(players, "alice"), players)
	if !strings.Contains(briefing, "bob") || !strings.Contains(briefing, "dave") {
		t.Errorf("merlin briefing should list assassin and oberon: %q", briefing)
	}
	if strings.Contains(briefing, "carol") {
		t.Errorf("merlin briefing must not reveal mordred: %q", briefing)
	}
}

func TestPercivalWithMorgana(t *testing.T) {
	players := riggedPlayers(map[string]RoleKey{
		"alice": RolePercival,
		"bob":   RoleMerlin,
		"carol": RoleMorgana,
		"dave":  RoleAssassin,
		"eve":   RoleServant,
	})

	briefing := BriefingFor(playerNamed(players, "alice"), players)
	if !strings.Contains(briefing, "bob") || !strings.Contains(briefing, "carol") {
		t.Errorf("percival briefing should name both candidates: %q", briefing)
	}
	if !strings.Contains(briefing, "one of") {
		t.Errorf("percival must not learn which candidate is Merlin: %q", briefing)
	}
}

func TestPercivalWithoutMorgana(t *testing.T) {
	players := riggedPlayers(map[string]RoleKey{
		"alice": RolePercival,
		"bob":   RoleMerlin,
		"carol": RoleAssassin,
		"dave":  RoleMinion,
		"eve":   RoleServant,
	})

	briefing := BriefingFor(playerNamed(players, "alice"), players)
	if !strings.Contains(briefing, "bob") {
		t.Errorf("percival briefing should name merlin: %q", briefing)
	}
	if strings.Contains(briefing, "one of") {
		t.Errorf("without morgana percival learns merlin outright: %q", briefing)
	}
}

func TestOberonIsolation(t *testing.T) {
	players := riggedPlayers(map[string]RoleKey{
		"alice": RoleOberon,
		"bob":   RoleAssassin,
		"carol": RoleMinion,
		"dave":  RoleMerlin,
		"eve":   RoleServant,
	})

	oberon := BriefingFor(playerNamed(players, "alice"), players)
	for _, name := range []string{"bob", "carol", "dave", "eve"} {
		if strings.Contains(oberon, name) {
			t.Errorf("oberon briefing must name nobody, got %q", oberon)
		}
	}

	// No other evil player's briefing lists Oberon.
	for _, name := range []string{"bob", "carol"} {
		briefing := BriefingFor(playerNamed(players, name), players)
		if strings.Contains(briefing, "alice") {
			t.Errorf("%s briefing must not list oberon: %q", name, briefing)
		}
	}
}

func TestEvilRosterSharedWithoutSelf(t *testing.T) {
	players := riggedPlayers(map[string]RoleKey{
		"alice": RoleAssassin,
		"bob":   RoleMordred,
		"carol": RoleMorgana,
		"dave":  RoleMerlin,
		"eve":   RoleServant,
	})

	briefing := BriefingFor(playerNamed(players, "alice"), players)
	if !strings.Contains(briefing, "bob") || !strings.Contains(briefing, "carol") {
		t.Errorf("assassin should see the full evil roster: %q", briefing)
	}
	if strings.Contains(briefing, "alice") {
		t.Errorf("briefing should not list the player himself: %q", briefing)
	}

	// Mordred hides from Merlin only; other evil players still see him.
	mordred := BriefingFor(playerNamed(players, "bob"), players)
	if !strings.Contains(mordred, "alice") || !strings.Contains(mordred, "carol") {
		t.Errorf("mordred should see his allies: %q", mordred)
	}
}
