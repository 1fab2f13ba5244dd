package domain

// DefaultPlaceLabel is the built-in place shown until the first real place is saved.
const DefaultPlaceLabel = "Default Place"

// Place is a user-defined group of practices within one ICB.
type Place struct {
	Label     string   `json:"label"`
	ICB       string   `json:"icb"`
	Practices []string `json:"gps"`
}

func (p Place) Clone() Place {
	res := p
	res.Practices = append([]string(nil), p.Practices...)
	return res
}

// DefaultPlace returns the built-in place every new registry starts with.
func DefaultPlace() Place {
	return Place{
		Label: DefaultPlaceLabel,
		ICB:   "NHS West Yorkshire ICB",
		Practices: []string{
			"B85005",
			"B85022",
			"B85061",
			"B85026",
		},
	}
}
