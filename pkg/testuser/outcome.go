package testuser

// Status is the result of LowerPrivileges
type Status int

const (
	// NotApplicable: no user was ever created
	NotApplicable Status = iota
	// AlreadyMinimal: the user came from the environment and is left alone
	AlreadyMinimal
	// Lowered: the user is now a subscriber
	Lowered
	// Failed: wp-cli could not change the role
	Failed
)

func (s Status) String() string {
	switch s {
	case NotApplicable:
		return "not applicable"
	case AlreadyMinimal:
		return "already minimal"
	case Lowered:
		return "lowered"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what LowerPrivileges did. Err carries the wp-cli diagnostic
// when Status is Failed.
type Outcome struct {
	Status Status
	Err    error
}

// OK reports whether a user existed and is no longer an administrator
// created by this run
func (o Outcome) OK() bool {
	return o.Status == Lowered || o.Status == AlreadyMinimal
}

func (o Outcome) String() string {
	if o.Err != nil {
		return o.Status.String() + ": " + o.Err.Error()
	}
	return o.Status.String()
}
