package calculator

import (
	"fmt"
	"strings"
)

// KeyKind groups keypad buttons by the transition they trigger.
type KeyKind int

const (
	KeyDigit KeyKind = iota
	KeyDecimal
	KeyOperation
	KeyCalculate
	KeyBackspace
	KeyClear
	KeyToggleSign
)

var keyKindNames = [...]string{"digit", "decimal", "operation", "calculate", "backspace", "clear", "toggle_sign"}

func (k KeyKind) String() string {
	if k < KeyDigit || k > KeyToggleSign {
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
	return keyKindNames[k]
}

// Key is one keypad press. Digit holds "0".."9" or "00" for KeyDigit and Op
// the operator for KeyOperation.
type Key struct {
	Kind  KeyKind
	Digit string
	Op    Operation
}

// ParseKey maps the textual key names used by clients:
// digits, "00", ".", "+", "-", "*" or "×", "/" or "÷", "=", "back", "C", "±".
func ParseKey(s string) (Key, error) {
	if isDigitToken(s) {
		return Key{Kind: KeyDigit, Digit: s}, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ".", ",":
		return Key{Kind: KeyDecimal}, nil
	case "+":
		return Key{Kind: KeyOperation, Op: Add}, nil
	case "-", "−":
		return Key{Kind: KeyOperation, Op: Subtract}, nil
	case "*", "x", "×":
		return Key{Kind: KeyOperation, Op: Multiply}, nil
	case "/", "÷":
		return Key{Kind: KeyOperation, Op: Divide}, nil
	case "=", "enter":
		return Key{Kind: KeyCalculate}, nil
	case "back", "backspace", "⌫":
		return Key{Kind: KeyBackspace}, nil
	case "c", "clear", "ac":
		return Key{Kind: KeyClear}, nil
	case "±", "+/-", "neg":
		return Key{Kind: KeyToggleSign}, nil
	}
	return Key{}, fmt.Errorf("unknown key %q", s)
}

// ParseKeys parses a whole key sequence, failing on the first unknown key.
func ParseKeys(in []string) ([]Key, error) {
	keys := make([]Key, 0, len(in))
	for i, s := range in {
		k, err := ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Apply dispatches a single key press.
func (e Engine) Apply(s State, k Key) State {
	switch k.Kind {
	case KeyDigit:
		return e.AddDigit(s, k.Digit)
	case KeyDecimal:
		return e.AddDecimal(s)
	case KeyOperation:
		return e.SetOperation(s, k.Op)
	case KeyCalculate:
		return e.Calculate(s)
	case KeyBackspace:
		return e.Backspace(s)
	case KeyClear:
		return e.Clear(s)
	case KeyToggleSign:
		return e.ToggleSign(s)
	default:
		return s
	}
}

// Replay folds keys over s.
func (e Engine) Replay(s State, keys ...Key) State {
	for _, k := range keys {
		s = e.Apply(s, k)
	}
	return s
}
