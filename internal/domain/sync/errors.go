package sync

import "errors"

// ErrItemLoginRequired is returned by provider clients when the item's
// credentials are invalid or revoked. Callers flag the item bad and skip
// it until the user relinks; it is never raised past the sync routine.
var ErrItemLoginRequired = errors.New("item login required")

// ErrNoInvestmentAccounts is returned by provider clients when the item
// carries no investment product. It is suppressed entirely, not logged as
// an error and not flagged on the item.
var ErrNoInvestmentAccounts = errors.New("item has no investment accounts")
