// Package ledger implements the bookkeeping rules for savings transfers.
//
// A savings withdrawal ("Traspaso desde X a Y") is materialized as two
// operation rows: a debit on the source account and a credit on the
// destination account. Both legs share date, description and a transfer
// group id; the rules for building and replacing pairs live here, the
// row-level atomicity lives in the storage backends.
package ledger

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hucha/internal/core"
)

// transferPattern extracts the source account from a transfer description.
// The lazy group stops at the first " a ", matching the legacy behavior.
var transferPattern = regexp.MustCompile(`Traspaso desde (.+?) a`)

// ErrBadTransferDescription is returned when a savings withdrawal's
// description does not follow the "Traspaso desde X a Y" form.
var ErrBadTransferDescription = fmt.Errorf("transfer description must match \"Traspaso desde X a Y\"")

// ParseSourceAccount extracts the source account name from a transfer
// description, or ErrBadTransferDescription when it does not match.
func ParseSourceAccount(description string) (string, error) {
	m := transferPattern.FindStringSubmatch(description)
	if m == nil {
		return "", ErrBadTransferDescription
	}
	return m[1], nil
}

// BuildPair turns a requested savings withdrawal into its two legs. The
// request's account name is the destination; the source is parsed from the
// description. The source leg carries the negated amount, the destination
// leg the positive amount; category is always empty on both legs and a fresh
// transfer group id links them.
func BuildPair(req core.Operation) (src, dst core.Operation, err error) {
	sourceAccount, err := ParseSourceAccount(req.Description)
	if err != nil {
		return core.Operation{}, core.Operation{}, err
	}

	amount := req.Amount.Abs()
	group := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	src = core.Operation{
		UserID:          req.UserID,
		AccountName:     sourceAccount,
		Date:            req.Date,
		Type:            core.SavingsWithdrawal,
		Amount:          amount.Neg(),
		Description:     req.Description,
		Category:        "",
		TransferGroupID: group,
	}
	dst = core.Operation{
		UserID:          req.UserID,
		AccountName:     req.AccountName,
		Date:            req.Date,
		Type:            core.SavingsWithdrawal,
		Amount:          amount,
		Description:     req.Description,
		Category:        "",
		TransferGroupID: group,
	}
	return src, dst, nil
}

// ComplementAmount is the amount the other leg of a pair must carry.
func ComplementAmount(a decimal.Decimal) decimal.Decimal {
	return a.Neg()
}

// IsTransfer reports whether the operation is a savings withdrawal leg.
func IsTransfer(op core.Operation) bool {
	return op.Type == core.SavingsWithdrawal
}
