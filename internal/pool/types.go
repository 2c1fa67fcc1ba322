package pool

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSplit is returned when a split identifier has no pools.
	ErrUnknownSplit = errors.New("unknown split")
	// ErrMalformedTemplate is returned when a template's placeholders and labels disagree.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrUnknownLabel is returned when an entity label name is not recognized.
	ErrUnknownLabel = errors.New("unknown entity label")
)

// Split names used by the builtin pools
const (
	SplitTrain = "train"
	SplitDev   = "dev"
)

// Label identifies an entity type. The set is closed: every noising and
// validation rule switches over these values.
type Label uint8

const (
	LabelCreditCard Label = iota + 1
	LabelPhone
	LabelEmail
	LabelPersonName
	LabelDate
	LabelCity
	LabelLocation
)

// Kind groups labels that share a noising strategy
type Kind uint8

const (
	KindNumericID Kind = iota + 1
	KindEmail
	KindPersonName
	KindDate
	KindPlace
)

var labelNames = map[Label]string{
	LabelCreditCard: "CREDIT_CARD",
	LabelPhone:      "PHONE",
	LabelEmail:      "EMAIL",
	LabelPersonName: "PERSON_NAME",
	LabelDate:       "DATE",
	LabelCity:       "CITY",
	LabelLocation:   "LOCATION",
}

// AllLabels returns every label in declaration order.
func AllLabels() []Label {
	return []Label{
		LabelCreditCard,
		LabelPhone,
		LabelEmail,
		LabelPersonName,
		LabelDate,
		LabelCity,
		LabelLocation,
	}
}

// ParseLabel converts an upper-case label name such as "PHONE" to a Label.
func ParseLabel(name string) (Label, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for l, n := range labelNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
}

func (l Label) String() string {
	if n, ok := labelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("Label(%d)", uint8(l))
}

// Valid reports whether l is one of the declared labels.
func (l Label) Valid() bool {
	_, ok := labelNames[l]
	return ok
}

// Kind returns the noising strategy group of the label.
func (l Label) Kind() Kind {
	switch l {
	case LabelCreditCard, LabelPhone:
		return KindNumericID
	case LabelEmail:
		return KindEmail
	case LabelPersonName:
		return KindPersonName
	case LabelDate:
		return KindDate
	case LabelCity, LabelLocation:
		return KindPlace
	default:
		return 0
	}
}

// IsPII reports whether the label is personal data. Places are carried as
// negative examples for the detector.
func (l Label) IsPII() bool {
	return l.Kind() != KindPlace && l.Valid()
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// EntityPool maps each label to its candidate clean values.
type EntityPool map[Label][]string

// Template is a sentence with {LABEL} placeholders and the labels it requires.
type Template struct {
	Text   string  `yaml:"text"`
	Labels []Label `yaml:"labels"`
}

// Provider supplies pools and templates per split.
type Provider interface {
	// Pools returns the entity pool and template set of split.
	Pools(split string) (EntityPool, []Template, error)
	// Splits lists the known split identifiers in a stable order.
	Splits() []string
}
