package calculator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Operation is a pending binary operator.
type Operation int

const (
	None Operation = iota
	Add
	Subtract
	Multiply
	Divide
)

var opNames = [...]string{"NONE", "ADD", "SUBTRACT", "MULTIPLY", "DIVIDE"}

func (o Operation) String() string {
	if o < None || o > Divide {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return opNames[o]
}

// Symbol is what the expression trace shows for the operator.
func (o Operation) Symbol() string {
	switch o {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "×"
	case Divide:
		return "÷"
	default:
		return ""
	}
}

func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Operation) UnmarshalText(b []byte) error {
	s := strings.ToUpper(string(b))
	for i, n := range opNames {
		if n == s {
			*o = Operation(i)
			return nil
		}
	}
	return fmt.Errorf("unknown operation %q", string(b))
}

// Error messages surfaced through State.ErrorMessage.
const (
	ErrMsgInvalidNumber = "Invalid number"
	ErrMsgDivideByZero  = "Cannot divide by zero"
	ErrMsgTooLarge      = "Number too large"
	ErrMsgTooSmall      = "Number too small"
	ErrMsgMath          = "Math error"
)

// ErrorDisplay is shown while the engine is in the error state.
const ErrorDisplay = "Error"

// State is a complete snapshot of a calculator session. It is a plain value:
// every Engine operation returns a new State and never touches the old one.
type State struct {
	Display           string          `json:"display"`
	Expression        string          `json:"expression"`
	StoredValue       decimal.Decimal `json:"stored_value"`
	Operation         Operation       `json:"operation"`
	WaitingForOperand bool            `json:"waiting_for_operand"`
	HasError          bool            `json:"has_error"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	JustCalculated    bool            `json:"just_calculated"`
}

// Initial is the state of a freshly opened calculator.
func Initial() State {
	return State{Display: "0", StoredValue: decimal.Zero}
}

// UnmarshalJSON fills missing fields with initial defaults so clients may
// send partial states.
func (s *State) UnmarshalJSON(b []byte) error {
	type plain State
	p := plain(Initial())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Display == "" {
		p.Display = "0"
	}
	*s = State(p)
	return nil
}

// ErrInvalidState marks a State the engine could not have produced.
var ErrInvalidState = errors.New("invalid calculator state")

// Validate checks a State received from outside, such as one round-tripped
// through a client. Displays must be plain numerals and stored values must
// stay within the range and precision the engine works with, so that no
// later transition has to handle exponents or runaway scales.
func (s State) Validate(l Limits) error {
	if s.Operation < None || s.Operation > Divide {
		return fmt.Errorf("%w: operation %d", ErrInvalidState, int(s.Operation))
	}
	if err := l.checkDecimal("stored_value", s.StoredValue); err != nil {
		return err
	}
	if s.HasError {
		if s.Display != ErrorDisplay {
			return fmt.Errorf("%w: error state must display %q", ErrInvalidState, ErrorDisplay)
		}
		return nil
	}
	return l.checkDisplay(s.Display)
}

// maxScale is the widest fraction a result can carry: the product of two
// typed operands, or a quotient.
func (l Limits) maxScale() int {
	return max(2*l.MaxDigits, int(l.DivisionScale))
}

// maxIntDigits is the widest integer part: a typed operand may be longer
// than MaxValue until it is used in arithmetic.
func (l Limits) maxIntDigits() int {
	return max(l.MaxDigits, len(l.MaxValue.Truncate(0).Abs().String()))
}

func (l Limits) checkDisplay(display string) error {
	digits := strings.TrimPrefix(display, "-")
	intPart, fracPart, _ := strings.Cut(digits, ".")
	if intPart == "" || strings.Trim(intPart, "0123456789") != "" || strings.Trim(fracPart, "0123456789") != "" {
		return fmt.Errorf("%w: display %q is not a plain number", ErrInvalidState, display)
	}
	if len(intPart) > l.maxIntDigits() || len(fracPart) > l.maxScale() {
		return fmt.Errorf("%w: display %q has too many digits", ErrInvalidState, display)
	}
	return nil
}

func (l Limits) checkDecimal(field string, d decimal.Decimal) error {
	// Exponent first: comparing a decimal with a huge exponent rescales it.
	exp := int(d.Exponent())
	if exp < -l.maxScale() || exp > l.maxIntDigits() {
		return fmt.Errorf("%w: %s out of range", ErrInvalidState, field)
	}
	// Four bits per decimal digit bounds padded coefficients such as 1000000e-6.
	if d.Coefficient().BitLen() > 4*(l.maxIntDigits()+l.maxScale()) {
		return fmt.Errorf("%w: %s has too many digits", ErrInvalidState, field)
	}
	if d.Abs().GreaterThan(l.MaxValue) {
		return fmt.Errorf("%w: %s out of range", ErrInvalidState, field)
	}
	return nil
}

// Limits bound the numbers the engine accepts and produces.
type Limits struct {
	MaxDigits     int             // significant digits allowed while typing
	DivisionScale int32           // fractional digits kept by division
	MaxValue      decimal.Decimal // results outside [-MaxValue, MaxValue] are errors
}

// DefaultLimits suits amounts typed on a phone keypad.
func DefaultLimits() Limits {
	return Limits{
		MaxDigits:     15,
		DivisionScale: 10,
		MaxValue:      decimal.RequireFromString("999999999999.99"),
	}
}
