package protocol

// Wire opcodes. Requests and responses come in adjacent pairs: the
// client-to-server code is odd, the matching server-to-client code is
// the next even integer. The session core consumes only the table/game
// subset; login and cheat codes exist so foreign envelopes decode to a
// recognizable unknown instead of a parse error.
const (
	CliCheat int = 1
	SerCheat int = 2

	CliLogin int = 11
	SerLogin int = 12

	CliTableList int = 13
	SerTableList int = 14

	CliCreateTable int = 15
	SerCreateTable int = 16

	CliJoinTable int = 17
	SerJoinTable int = 18

	CliChat int = 21
	SerChat int = 22

	CliDealPoker int = 31
	SerDealPoker int = 32

	CliCallScore int = 33
	SerCallScore int = 34

	CliShotPoker int = 35
	SerShotPoker int = 36

	CliTurnNotify int = 37 // unused request slot, kept for pairing
	SerTurnNotify int = 38

	CliGameOver int = 41 // unused request slot, kept for pairing
	SerGameOver int = 42

	CliRestart int = 43
	SerRestart int = 44
)
