package service

import (
	"context"

	"presence/internal/checkin/models"
	ledgermodels "presence/internal/ledger/models"
	id "presence/pkg/domain"
)

// LedgerService is the in-process ledger the server owns.
type LedgerService interface {
	Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error)
	Append(ctx context.Context, req ledgermodels.AppendRequest) (*ledgermodels.Entry, error)
}

// LocalLedger serves the RemoteLedger port from the server's own ledger.
// Every append it sees comes from a coordinator that ran the verifier in this
// process, so the evidence is not checked a second time.
type LocalLedger struct {
	ledger LedgerService
}

func NewLocalLedger(ledger LedgerService) *LocalLedger {
	return &LocalLedger{ledger: ledger}
}

func (l *LocalLedger) Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error) {
	return l.ledger.Head(ctx, userID)
}

func (l *LocalLedger) Append(ctx context.Context, req ledgermodels.AppendRequest, _ models.Evidence) (*ledgermodels.Entry, error) {
	return l.ledger.Append(ctx, req)
}
