package types

// Position is a user's stake in a single market. Created implicitly
// on first wager, mutated on wager, switch, and claim; never deleted.
type Position struct {
	YesAmount uint64 `json:"yes_amount"`
	NoAmount  uint64 `json:"no_amount"`
	Claimed   bool   `json:"claimed"`
	Switched  bool   `json:"switched"`
}

// Amount returns the stake on a side.
func (p *Position) Amount(side Side) uint64 {
	if side == SideYes {
		return p.YesAmount
	}
	return p.NoAmount
}
