package expenses

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/catalog"
	"github.com/tally-dev/tally/internal/model"
)

// ErrValidation is matched by errors.Is for any ValidationErrors value.
var ErrValidation = errors.New("validation failed")

// ValidationError describes one invalid form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a draft.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	return "validation failed: " + ve.Summary()
}

// Summary joins the field messages, e.g. "amount: is required; date: is required".
func (ve ValidationErrors) Summary() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is lets callers test errors.Is(err, ErrValidation).
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the message for a field, or "" if it is valid.
func (ve ValidationErrors) Field(name string) string {
	for _, e := range ve {
		if e.Field == name {
			return e.Message
		}
	}
	return ""
}

// Form field names used in ValidationError.Field.
const (
	FieldAmount   = "amount"
	FieldCurrency = "currency"
	FieldCategory = "category"
	FieldPayment  = "payment"
	FieldDate     = "date"
)

// ValidateDraft checks a draft against the catalog and returns the expense
// it describes (without an ID). All problems are reported together.
func ValidateDraft(d model.Draft, cat *catalog.Service) (model.Expense, ValidationErrors) {
	var errs ValidationErrors
	var exp model.Expense

	amount := strings.TrimSpace(d.Amount)
	switch {
	case amount == "":
		errs = append(errs, ValidationError{FieldAmount, "is required"})
	default:
		v, err := decimal.NewFromString(amount)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{FieldAmount, fmt.Sprintf("%q is not a number", amount)})
		case !v.IsPositive():
			errs = append(errs, ValidationError{FieldAmount, "must be greater than zero"})
		case !v.Equal(v.Truncate(2)):
			errs = append(errs, ValidationError{FieldAmount, "has more than 2 decimal places"})
		default:
			exp.Amount = v
		}
	}

	currency := cat.NormalizeCurrency(d.Currency)
	switch {
	case currency == "":
		errs = append(errs, ValidationError{FieldCurrency, "is required"})
	case !cat.HasCurrency(currency):
		errs = append(errs, ValidationError{FieldCurrency, fmt.Sprintf("%q is not offered", currency)})
	default:
		exp.Currency = currency
	}

	if strings.TrimSpace(d.Category) == "" {
		errs = append(errs, ValidationError{FieldCategory, "is required"})
	} else if c, ok := cat.Category(d.Category); ok {
		exp.Category = c
	} else {
		errs = append(errs, ValidationError{FieldCategory, fmt.Sprintf("%q is not a known category", strings.TrimSpace(d.Category))})
	}

	if strings.TrimSpace(d.Payment) == "" {
		errs = append(errs, ValidationError{FieldPayment, "is required"})
	} else if p, ok := cat.Payment(d.Payment); ok {
		exp.Payment = p
	} else {
		errs = append(errs, ValidationError{FieldPayment, fmt.Sprintf("%q is not a known payment method", strings.TrimSpace(d.Payment))})
	}

	date := strings.TrimSpace(d.Date)
	switch {
	case date == "" || date == model.DatePlaceholder:
		errs = append(errs, ValidationError{FieldDate, "is required"})
	default:
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			errs = append(errs, ValidationError{FieldDate, fmt.Sprintf("%q is not a %s date", date, model.DatePlaceholder)})
		} else {
			exp.Date = date
		}
	}

	if len(errs) > 0 {
		return model.Expense{}, errs
	}
	return exp, nil
}
