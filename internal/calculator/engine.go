// Package calculator implements the keypad calculator used to type expense
// amounts.
//
// The engine is a set of pure transitions over State. Arithmetic is exact
// decimal arithmetic; conversion to float64 happens only in CurrentValue.
// No operation returns an error or panics: failures put the state into a
// sticky error mode that only Clear, AddDigit or AddDecimal leave.
package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Engine applies keypad operations under a fixed set of Limits. The zero
// value is not usable; call New or NewWithLimits.
type Engine struct {
	limits Limits
}

func New() Engine {
	return NewWithLimits(DefaultLimits())
}

// NewWithLimits fills unset limits with the defaults.
func NewWithLimits(l Limits) Engine {
	def := DefaultLimits()
	if l.MaxDigits <= 0 {
		l.MaxDigits = def.MaxDigits
	}
	if l.DivisionScale <= 0 {
		l.DivisionScale = def.DivisionScale
	}
	if !l.MaxValue.IsPositive() {
		l.MaxValue = def.MaxValue
	}
	return Engine{limits: l}
}

func (e Engine) Limits() Limits { return e.limits }

// Clear resets everything.
func (e Engine) Clear(State) State {
	return Initial()
}

// AddDigit appends d, which is a single digit or the "00" token.
func (e Engine) AddDigit(s State, d string) State {
	if !isDigitToken(d) {
		return s
	}
	if s.HasError {
		s = Initial()
	}

	fresh := s.WaitingForOperand || s.JustCalculated || s.Display == "0"
	if d == "00" && fresh {
		d = "0"
	}

	if fresh {
		if s.JustCalculated {
			s.Expression = ""
		}
		s.Display = d
		s.WaitingForOperand = false
		s.JustCalculated = false
		return s
	}

	for _, r := range d {
		if countDigits(s.Display) >= e.limits.MaxDigits {
			break
		}
		s.Display += string(r)
	}
	return s
}

// AddDecimal inserts the decimal point.
func (e Engine) AddDecimal(s State) State {
	if s.HasError {
		s = Initial()
	}
	if s.WaitingForOperand || s.JustCalculated {
		if s.JustCalculated {
			s.Expression = ""
		}
		s.Display = "0."
		s.WaitingForOperand = false
		s.JustCalculated = false
		return s
	}
	if strings.Contains(s.Display, ".") {
		return s
	}
	s.Display += "."
	return s
}

// SetOperation makes op the pending operator. A pending operation with a
// typed right operand is evaluated first, so 3 + 4 × chains to 7 ×.
func (e Engine) SetOperation(s State, op Operation) State {
	if s.HasError {
		return s
	}
	if op < None || op > Divide {
		return s
	}

	typed := s.Display
	value, ok := parseDisplay(typed)
	if !ok {
		return withError(s, ErrMsgInvalidNumber)
	}

	left := value
	if s.Operation != None && !s.WaitingForOperand {
		result, msg := e.compute(s.StoredValue, s.Operation, value)
		if msg != "" {
			return withError(s, msg)
		}
		left = result
		s.Display = format(result)
	}

	switch {
	case s.JustCalculated:
		s.Expression = joinTrace(typed, op.Symbol())
	case s.WaitingForOperand && s.Operation != None:
		s.Expression = replaceTrailingSymbol(s.Expression, op.Symbol())
	default:
		s.Expression = joinTrace(s.Expression, typed, op.Symbol())
	}

	s.StoredValue = left
	s.Operation = op
	s.WaitingForOperand = true
	s.JustCalculated = false
	return s
}

// Calculate evaluates the pending operation. Without a pending operation or
// a typed right operand it only marks the state as just calculated.
func (e Engine) Calculate(s State) State {
	if s.HasError {
		return s
	}
	if s.Operation == None || s.WaitingForOperand {
		s.JustCalculated = true
		return s
	}

	typed := s.Display
	value, ok := parseDisplay(typed)
	if !ok {
		return withError(s, ErrMsgInvalidNumber)
	}
	result, msg := e.compute(s.StoredValue, s.Operation, value)
	if msg != "" {
		return withError(s, msg)
	}

	s.Display = format(result)
	s.Expression = joinTrace(s.Expression, typed)
	s.StoredValue = result
	s.Operation = None
	s.WaitingForOperand = true
	s.JustCalculated = true
	return s
}

// Backspace removes the last typed character. Results and operator-primed
// displays cannot be edited.
func (e Engine) Backspace(s State) State {
	if s.HasError {
		return Initial()
	}
	if s.JustCalculated || s.WaitingForOperand {
		return s
	}
	if len(s.Display) <= 1 || s.Display == "-0" {
		s.Display = "0"
		return s
	}
	s.Display = s.Display[:len(s.Display)-1]
	if s.Display == "" || s.Display == "-" || s.Display == "-0" {
		s.Display = "0"
	}
	return s
}

// ToggleSign flips the sign of the displayed number.
func (e Engine) ToggleSign(s State) State {
	if s.HasError || s.Display == "0" {
		return s
	}
	if strings.HasPrefix(s.Display, "-") {
		s.Display = s.Display[1:]
	} else {
		s.Display = "-" + s.Display
	}
	return s
}

// CurrentValue is the best-effort final amount for the caller. It never
// changes s: a pending operation with a typed operand is evaluated on the
// side, and any failure while doing so (division by zero included) yields 0.
func (e Engine) CurrentValue(s State) float64 {
	if s.HasError {
		return 0
	}
	if s.Operation != None && !s.WaitingForOperand {
		value, ok := parseDisplay(s.Display)
		if !ok {
			return 0
		}
		result, msg := e.compute(s.StoredValue, s.Operation, value)
		if msg != "" {
			return 0
		}
		return result.InexactFloat64()
	}
	// "5 =" marks the state calculated without producing a result; only a
	// real calculation leaves the engine waiting with the result stored.
	if s.JustCalculated && s.WaitingForOperand {
		return s.StoredValue.InexactFloat64()
	}
	value, ok := parseDisplay(s.Display)
	if !ok {
		return 0
	}
	return value.InexactFloat64()
}

// compute returns the result or a non-empty error message.
func (e Engine) compute(a decimal.Decimal, op Operation, b decimal.Decimal) (result decimal.Decimal, msg string) {
	defer func() {
		if r := recover(); r != nil {
			result, msg = decimal.Zero, ErrMsgMath
		}
	}()

	switch op {
	case Add:
		result = a.Add(b)
	case Subtract:
		result = a.Sub(b)
	case Multiply:
		result = a.Mul(b)
	case Divide:
		if b.IsZero() {
			return decimal.Zero, ErrMsgDivideByZero
		}
		result = a.DivRound(b, e.limits.DivisionScale)
	default:
		return b, ""
	}

	if result.GreaterThan(e.limits.MaxValue) {
		return decimal.Zero, ErrMsgTooLarge
	}
	if result.LessThan(e.limits.MaxValue.Neg()) {
		return decimal.Zero, ErrMsgTooSmall
	}
	return result, ""
}

func withError(s State, msg string) State {
	s.HasError = true
	s.ErrorMessage = msg
	s.Display = ErrorDisplay
	return s
}

func parseDisplay(display string) (decimal.Decimal, bool) {
	d := strings.TrimSuffix(display, ".")
	if d == "" || d == "-" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(d)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// format strips trailing fractional zeros; whole numbers have no point.
func format(d decimal.Decimal) string {
	return d.String()
}

func countDigits(display string) int {
	n := 0
	for _, r := range display {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func isDigitToken(d string) bool {
	if d == "00" {
		return true
	}
	return len(d) == 1 && d[0] >= '0' && d[0] <= '9'
}

func joinTrace(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func replaceTrailingSymbol(expr, symbol string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.LastIndex(expr, " "); i >= 0 {
		return joinTrace(expr[:i], symbol)
	}
	return joinTrace(expr, symbol)
}
