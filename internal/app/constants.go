package app

// Game status messages shown to the whole room. Display-only, never
// authoritative state.
const (
	MsgNominate       = "Leader must nominate players for the quest."
	MsgGlobalVote     = "Everyone should vote for the selected party"
	MsgQuestVote      = "Nominated players should vote for the quest result"
	MsgAssassination  = "Good prevailed on the quests! Now the Assassin must find and kill Merlin"
	MsgMerlinKilled   = "Merlin was killed! Evil are now victorious"
	MsgAssassinMissed = "Assassin has missed! The victory stays on the Good side"
	MsgEvilQuestsWin  = "Three quests have failed! Evil are victorious"
	MsgEvilVotesWin   = "Five team votes have failed! Evil are victorious"
)
