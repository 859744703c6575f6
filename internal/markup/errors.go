package markup

import (
	"encoding/json"
	"errors"
)

// Field names a user-editable input. Percentage categories use the same
// identifiers as their Category.
type Field string

const (
	FieldTax          Field = "tax"
	FieldCommission   Field = "commission"
	FieldCardFee      Field = "cardFee"
	FieldOtherCost    Field = "otherCost"
	FieldProfitMargin Field = "profitMargin"
	FieldCostBasis    Field = "costBasis"
	// FieldTotal carries errors about the percentages as a whole.
	FieldTotal Field = "total"
)

var (
	ErrRequired            = errors.New("required")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrRange               = errors.New("out of range")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrInvalidCost         = errors.New("invalid cost")
	ErrUnsatisfiableMarkup = errors.New("percentages must sum to less than 100")
)

var messages = map[error]string{
	ErrRequired:            "Este campo é obrigatório",
	ErrInvalidNumber:       "Digite um valor válido",
	ErrRange:               "O valor não pode ser maior que 100%",
	ErrInvalidFormat:       "Formato inválido",
	ErrInvalidCost:         "Informe um custo maior que zero",
	ErrUnsatisfiableMarkup: "A soma dos percentuais deve ser menor que 100%",
}

var codes = map[error]string{
	ErrRequired:            "required",
	ErrInvalidNumber:       "invalid_number",
	ErrRange:               "range",
	ErrInvalidFormat:       "invalid_format",
	ErrInvalidCost:         "invalid_cost",
	ErrUnsatisfiableMarkup: "unsatisfiable_markup",
}

// FieldError ties one of the sentinel errors above to the field that caused it.
type FieldError struct {
	Field   Field
	Err     error
	Message string
}

// NewFieldError builds a FieldError with the default message for err.
func NewFieldError(field Field, err error) *FieldError {
	return &FieldError{Field: field, Err: err, Message: Message(err)}
}

func (e *FieldError) Error() string {
	return string(e.Field) + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for one of the package sentinel errors.
func Message(err error) string {
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Valor inválido"
}

// Code returns the stable identifier of the underlying sentinel error.
func (e *FieldError) Code() string {
	for sentinel, code := range codes {
		if errors.Is(e.Err, sentinel) {
			return code
		}
	}
	return "invalid"
}

type fieldErrorJSON struct {
	Field   Field  `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *FieldError) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldErrorJSON{Field: e.Field, Code: e.Code(), Message: e.Message})
}

func (e *FieldError) UnmarshalJSON(data []byte) error {
	var raw fieldErrorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Field = raw.Field
	e.Message = raw.Message
	e.Err = errors.New(raw.Code)
	for sentinel, code := range codes {
		if code == raw.Code {
			e.Err = sentinel
			break
		}
	}
	return nil
}
