package domain

// Member represents one connection's participation meta for a meeting group.
// No transport or lifecycle logic here.
type Member struct {
	Identity Identity
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id Identity) *Member {
	return &Member{Identity: id}
}
