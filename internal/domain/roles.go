package domain

// Side is a player's allegiance, always derived from the assigned role.
type Side string

const (
	SideGood Side = "GOOD"
	SideEvil Side = "EVIL"
)

// RoleKey identifies one of the eight fixed roles.
type RoleKey string

const (
	RoleServant  RoleKey = "SERVANT"
	RoleMinion   RoleKey = "MINION"
	RoleMerlin   RoleKey = "MERLIN"
	RoleAssassin RoleKey = "ASSASSIN"
	RolePercival RoleKey = "PERCIVAL"
	RoleMordred  RoleKey = "MORDRED"
	RoleOberon   RoleKey = "OBERON"
	RoleMorgana  RoleKey = "MORGANA"
)

// Role is static catalog metadata for one role.
type Role struct {
	Key     RoleKey
	Name    string
	Side    Side
	Ability string
}

// Roles is the full role catalog. Immutable after load.
var Roles = map[RoleKey]Role{
	RoleServant: {
		Key:     RoleServant,
		Name:    "Loyal Servant of Arthur",
		Side:    SideGood,
		Ability: "No special abilities",
	},
	RoleMinion: {
		Key:     RoleMinion,
		Name:    "Minion of Evil",
		Side:    SideEvil,
		Ability: "No special abilities",
	},
	RoleMerlin: {
		Key:     RoleMerlin,
		Name:    "Merlin",
		Side:    SideGood,
		Ability: "Knows who plays on the side of evil. But be careful - if the forces of Good win but you are killed by an Assassin then the Evil will triumph",
	},
	RoleAssassin: {
		Key:     RoleAssassin,
		Name:    "Assassin",
		Side:    SideEvil,
		Ability: "If the Evil side loses then the Assassin gets to decide who to kill. If Merlin is chosen then Evil wins.",
	},
	RolePercival: {
		Key:     RolePercival,
		Name:    "Percival",
		Side:    SideGood,
		Ability: "Knows Merlin",
	},
	RoleMordred: {
		Key:     RoleMordred,
		Name:    "Mordred",
		Side:    SideEvil,
		Ability: "Does not reveal himself to Merlin",
	},
	RoleOberon: {
		Key:     RoleOberon,
		Name:    "Oberon",
		Side:    SideEvil,
		Ability: "Does not reveal himself to either side",
	},
	RoleMorgana: {
		Key:     RoleMorgana,
		Name:    "Morgana",
		Side:    SideEvil,
		Ability: "Appears as Merlin to Percival",
	},
}

// ExtraRoles are the optional roles a host can toggle on before game start.
var ExtraRoles = []RoleKey{RolePercival, RoleMordred, RoleOberon, RoleMorgana}

// IsExtraRole reports whether the key is one of the host-toggleable roles.
func IsExtraRole(key RoleKey) bool {
	for _, k := range ExtraRoles {
		if k == key {
			return true
		}
	}
	return false
}
