package game

// DefaultPenalties is the pool a random penalty is drawn from when a
// player refuses, gets rejected, or times out.
var DefaultPenalties = []string{
	"Penalty: one minus point on the board",
	"Penalty: send a five-second voice message",
	"Penalty: next round you only get the random pick",
	"Penalty: one of your rerolls is gone",
	"Penalty: an admin may pick your next question",
}
