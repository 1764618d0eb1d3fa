package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nightbite/internal/model"
)

const defaultCategory = "Other"

// Amount хранит цену в том виде, в каком её ввёл администратор: строкой или числом JSON.
type Amount string

// UnmarshalJSON принимает как строку, так и число.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(data)
	return nil
}

// ItemDraft описывает черновик позиции меню, заполняемый администратором до сохранения.
type ItemDraft struct {
	Name          string `json:"name" validate:"required"`
	Price         Amount `json:"price" validate:"required,numeric"`
	OriginalPrice Amount `json:"originalPrice" validate:"required,numeric"`
	Category      string `json:"category"`
	Image         string `json:"image"`
	Description   string `json:"description"`
	Tag           string `json:"tag"`
	Time          string `json:"time"`
}

// ValidationError описывает ошибки заполнения черновика.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Item проверяет черновик и приводит цены к числам.
func (d ItemDraft) Item(id int64) (model.MenuItem, error) {
	d.Name = strings.TrimSpace(d.Name)

	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return model.MenuItem{}, &ValidationError{Fields: fields}
		}
		return model.MenuItem{}, fmt.Errorf("validate item: %w", err)
	}

	price, err := toPrice(d.Price)
	if err != nil {
		return model.MenuItem{}, &ValidationError{Fields: []string{"price"}}
	}
	original, err := toPrice(d.OriginalPrice)
	if err != nil {
		return model.MenuItem{}, &ValidationError{Fields: []string{"originalPrice"}}
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = defaultCategory
	}

	return model.MenuItem{
		ID:            id,
		Name:          d.Name,
		Price:         price,
		OriginalPrice: original,
		Category:      category,
		Image:         d.Image,
		Description:   d.Description,
		Tag:           d.Tag,
		Time:          d.Time,
	}, nil
}

func toPrice(a Amount) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, errors.New("negative price")
	}
	return v, nil
}
