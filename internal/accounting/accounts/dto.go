package accounts

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// CreateInput carries a new chart-of-accounts node.
type CreateInput struct {
	Code           string         `json:"code" validate:"required,max=32"`
	Name           string         `json:"name" validate:"required,max=200"`
	LocalizedName  string         `json:"localized_name" validate:"max=200"`
	Type           AccountType    `json:"account_type" validate:"required"`
	Nature         Nature         `json:"account_nature"`
	Classification Classification `json:"classification"`
	ParentID       *int64         `json:"parent_id"`
	IsHeader       bool           `json:"is_header"`
}

// Normalize trims input and fills nature and classification defaults. It returns the
// first validation failure.
func (in *CreateInput) Normalize() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.LocalizedName = strings.TrimSpace(in.LocalizedName)
	in.Type = AccountType(strings.ToUpper(strings.TrimSpace(string(in.Type))))
	in.Nature = Nature(strings.ToUpper(strings.TrimSpace(string(in.Nature))))
	in.Classification = Classification(strings.ToUpper(strings.TrimSpace(string(in.Classification))))

	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: account_type %q", shared.ErrInvalidField, in.Type)
	}
	if in.Nature == "" {
		in.Nature = DefaultNature(in.Type)
	} else if !in.Nature.Valid() {
		return fmt.Errorf("%w: account_nature %q", shared.ErrInvalidField, in.Nature)
	}
	if in.Classification == "" {
		in.Classification = DefaultClassification(in.Code, in.Type)
	} else if !in.Classification.CompatibleWith(in.Type) {
		return fmt.Errorf("%w: classification %q for %s", shared.ErrInvalidField, in.Classification, in.Type)
	}
	if in.ParentID != nil && *in.ParentID <= 0 {
		return fmt.Errorf("%w: parent_id", shared.ErrInvalidField)
	}
	return nil
}
