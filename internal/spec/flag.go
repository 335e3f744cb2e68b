package spec

// Flag is a named boolean context input. A Specification is born with
// exactly one dummy flag so downstream code never has to construct a
// zero-length tristate array over flags; the first real AddFlag call
// removes it.
type Flag struct {
	Name     string
	Index    int
	IsDummy  bool
}

const dummyFlagName = "$dummy"

func newDummyFlag() Flag {
	return Flag{Name: dummyFlagName, Index: 0, IsDummy: true}
}
