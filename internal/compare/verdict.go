package compare

// Verdict is a three-valued check outcome.
type Verdict int8

const (
	NotChecked Verdict = iota
	Pass
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "ok"
	case Fail:
		return "fail"
	default:
		return "not-checked"
	}
}

// Failed reports an explicit failure; NotChecked never fails a case.
func (v Verdict) Failed() bool { return v == Fail }

// MarshalJSON encodes Pass as true, Fail as false and NotChecked as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case Pass:
		return []byte("true"), nil
	case Fail:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

