package enums

// CartState is the lifecycle of the client-side cart view.
type CartState string

const (
	CartStateEmpty   CartState = "empty"
	CartStateLoading CartState = "loading"
	CartStateReady   CartState = "ready"
	CartStateError   CartState = "error"
)

// String implements fmt.Stringer.
func (c CartState) String() string {
	return string(c)
}
