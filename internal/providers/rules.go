package providers

// Rule is one named candidate in a prioritized lookup.
type Rule[In, Out any] struct {
	Name  string
	Match func(In) (Out, bool)
}

// Rules evaluates its rules in order and the first match wins.
type Rules[In, Out any] []Rule[In, Out]

// Eval returns the first matching result and the name of the rule that
// produced it.
func (rs Rules[In, Out]) Eval(in In) (Out, string, bool) {
	for _, r := range rs {
		if out, ok := r.Match(in); ok {
			return out, r.Name, true
		}
	}
	var zero Out
	return zero, "", false
}
