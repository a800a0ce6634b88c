package domain

// Side identifies which party of a brand/showroom pair acts or is addressed.
type Side string

const (
	SideBrand    Side = "brand"
	SideShowroom Side = "showroom"
)

func (s Side) Valid() bool {
	return s == SideBrand || s == SideShowroom
}

// Other returns the counterparty side.
func (s Side) Other() Side {
	if s == SideBrand {
		return SideShowroom
	}
	return SideBrand
}
