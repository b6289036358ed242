package usecase

import (
	"context"
	"fmt"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/repository"
	"billing-service/pkg/client"
	"billing-service/pkg/mailer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferUsecase coordinates peer-to-peer transfers and withdrawal holds.
// Every multi-write path (debit+credit, debit+request-row) commits as one
// database transaction; there is no compensating rollback window.
type TransferUsecase struct {
	walletRepo repository.WalletRepository
	txRepo     repository.TransactionRepository
	wdRepo     repository.WithdrawalRepository
	directory  client.Directory
	mail       mailer.Sender
	cfg        config.WithdrawalConfig
	logger     *zap.Logger
}

func NewTransferUsecase(
	walletRepo repository.WalletRepository,
	txRepo repository.TransactionRepository,
	wdRepo repository.WithdrawalRepository,
	directory client.Directory,
	mail mailer.Sender,
	cfg config.WithdrawalConfig,
	logger *zap.Logger,
) *TransferUsecase {
	return &TransferUsecase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		wdRepo:     wdRepo,
		directory:  directory,
		mail:       mail,
		cfg:        cfg,
		logger:     logger,
	}
}

// RequestWithdrawal holds the funds and records the request atomically: the
// debit, the withdrawal row and the pending ledger entry either all commit or
// none do.
func (uc *TransferUsecase) RequestWithdrawal(ctx context.Context, principal domain.Principal, req *domain.WithdrawalSubmission) (*domain.WithdrawalRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Amount.LessThan(uc.cfg.MinAmount) {
		return nil, domain.NewValidationError("minimum withdrawal amount is %s", uc.cfg.MinAmount.String())
	}

	pending, err := uc.wdRepo.CountPending(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if pending >= uc.cfg.MaxPendingReqs {
		uc.logger.Warn("withdrawal rejected: too many pending requests",
			zap.String("user_id", principal.UserID),
			zap.Int("pending", pending))
		return nil, &domain.RateLimitError{Pending: pending, Limit: uc.cfg.MaxPendingReqs}
	}

	tx, err := uc.walletRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wallet, err := uc.walletRepo.GetForUpdate(ctx, tx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.UserID != principal.UserID {
		return nil, &domain.NotFoundError{Entity: "wallet", Ref: req.WalletID}
	}
	if wallet.Balance.LessThan(req.Amount) {
		return nil, &domain.InsufficientFundsError{Available: wallet.Balance, Requested: req.Amount}
	}

	newBalance := wallet.Balance.Sub(req.Amount)
	if err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return nil, err
	}

	wr := &domain.WithdrawalRequest{
		UserID:        principal.UserID,
		WalletID:      wallet.ID,
		Amount:        req.Amount,
		Currency:      wallet.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		IFSC:          req.IFSC,
		Status:        domain.WithdrawalPending,
	}
	if err := uc.wdRepo.Create(ctx, tx, wr); err != nil {
		return nil, err
	}

	entry := &domain.Transaction{
		UserID:      principal.UserID,
		WalletID:    wallet.ID,
		Type:        domain.TxTypeWithdrawal,
		Amount:      req.Amount.Neg(),
		Currency:    wallet.Currency,
		Status:      domain.TxStatusPending,
		ReferenceID: "wd_" + uuid.NewString(),
		Description: strPtr(fmt.Sprintf("withdrawal to %s", req.BankName)),
	}
	if err := uc.txRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("withdrawal requested",
		zap.String("user_id", principal.UserID),
		zap.String("wallet_id", wallet.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("new_balance", newBalance.String()),
		zap.String("withdrawal_id", wr.ID))

	if principal.Email != "" {
		if err := uc.mail.Send(
			principal.Email,
			"Withdrawal request received",
			fmt.Sprintf("Your withdrawal of %s %s is pending review.", req.Amount.String(), wallet.Currency),
		); err != nil {
			uc.logger.Warn("failed to send withdrawal email",
				zap.String("user_id", principal.UserID),
				zap.Error(err))
		}
	}

	return wr, nil
}

// Transfer moves funds between two users. Wallet rows are locked in a
// deterministic user-id order so two opposing transfers cannot deadlock, and
// the recipient wallet is created lazily in the sender's currency.
func (uc *TransferUsecase) Transfer(ctx context.Context, principal domain.Principal, req *domain.TransferRequest) (*domain.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	recipient, err := uc.directory.LookupByEmail(ctx, req.RecipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient.UserID == principal.UserID {
		return nil, domain.NewValidationError("cannot transfer to your own account")
	}

	tx, err := uc.walletRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock order by user id, not by role, so A->B and B->A serialize.
	first, second := principal.UserID, recipient.UserID
	if second < first {
		first, second = second, first
	}

	wallets := make(map[string]*domain.Wallet, 2)
	for _, userID := range []string{first, second} {
		w, err := uc.walletRepo.EnsureForUpdate(ctx, tx, userID, req.Currency)
		if err != nil {
			return nil, err
		}
		wallets[userID] = w
	}

	sender := wallets[principal.UserID]
	receiver := wallets[recipient.UserID]

	if sender.Balance.LessThan(req.Amount) {
		return nil, &domain.InsufficientFundsError{Available: sender.Balance, Requested: req.Amount}
	}

	senderBalance := sender.Balance.Sub(req.Amount)
	receiverBalance := receiver.Balance.Add(req.Amount)

	if err := uc.walletRepo.UpdateBalance(ctx, tx, sender.ID, senderBalance); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalance(ctx, tx, receiver.ID, receiverBalance); err != nil {
		return nil, err
	}

	reference := "trf_" + uuid.NewString()
	debit := &domain.Transaction{
		UserID:      principal.UserID,
		WalletID:    sender.ID,
		Type:        domain.TxTypeTransferOut,
		Amount:      req.Amount.Neg(),
		Currency:    req.Currency,
		Status:      domain.TxStatusCompleted,
		ReferenceID: reference + "_out",
		Description: strPtr(fmt.Sprintf("transfer to %s", req.RecipientEmail)),
	}
	credit := &domain.Transaction{
		UserID:      recipient.UserID,
		WalletID:    receiver.ID,
		Type:        domain.TxTypeTransferIn,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      domain.TxStatusCompleted,
		ReferenceID: reference + "_in",
		Description: strPtr(fmt.Sprintf("transfer from %s", principal.Email)),
	}
	if err := uc.txRepo.Create(ctx, tx, debit); err != nil {
		return nil, err
	}
	if err := uc.txRepo.Create(ctx, tx, credit); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("transfer completed",
		zap.String("reference", reference),
		zap.String("sender_id", principal.UserID),
		zap.String("recipient_id", recipient.UserID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency))

	return &domain.TransferResult{
		Reference:       reference,
		SenderBalance:   senderBalance,
		RecipientUserID: recipient.UserID,
		Amount:          req.Amount,
		Currency:        req.Currency,
	}, nil
}
