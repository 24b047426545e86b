package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewLotteryOptions,
	NewCalendar,
	NewConfigUseCase,
	NewClaimGate,
	NewBudgetLedger,
	NewPrizeSelector,
	NewCreditGateway,
	NewRecordUseCase,
	NewArchiveUseCase,
	NewAccountLinkUseCase,
	NewSpinUseCase,
)
