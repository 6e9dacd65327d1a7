package middleware

import (
	"errors"
	"testing"

	"github.com/erp/marketsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatedItem struct {
	OfferID string          `json:"offer_id" binding:"required"`
	Weight  decimal.Decimal `json:"volume_weight" binding:"gte=0"`
	Share   decimal.Decimal `json:"advertising_percent" binding:"gte=0,lt=100"`
}

type validatedBatch struct {
	Items []validatedItem `json:"items" binding:"required,min=1,dive"`
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	t.Run("decimal fields take numeric tags", func(t *testing.T) {
		ok := validatedBatch{Items: []validatedItem{{OfferID: "a", Weight: decimal.RequireFromString("0.4")}}}
		assert.NoError(t, binding.Validator.ValidateStruct(&ok))

		bad := validatedBatch{Items: []validatedItem{
			{OfferID: "a"},
			{OfferID: "b", Weight: decimal.RequireFromString("-0.1"), Share: decimal.NewFromInt(100)},
		}}
		err := binding.Validator.ValidateStruct(&bad)
		require.Error(t, err)

		resp := FormatValidationErrors(err, "req-1")
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		assert.ElementsMatch(t, []dto.ValidationDetail{
			{Field: "items[1].volume_weight", Message: "Must be greater than or equal to 0"},
			{Field: "items[1].advertising_percent", Message: "Invalid value"},
		}, resp.Error.Details)
	})

	t.Run("required and min", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&validatedBatch{Items: []validatedItem{}})
		require.Error(t, err)

		resp := FormatValidationErrors(err, "")
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "items", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be at least 1", resp.Error.Details[0].Message)
	})
}

func TestFormatValidationErrors_NonValidationError(t *testing.T) {
	resp := FormatValidationErrors(errors.New("unexpected EOF"), "req-2")

	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "body", resp.Error.Details[0].Field)
	assert.Equal(t, "unexpected EOF", resp.Error.Details[0].Message)
}
