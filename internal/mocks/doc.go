package mocks

//go:generate mockgen -destination=ledger_store.go -package=mocks github.com/sheikh-saqib/bank-ledger-service/internal/interfaces LedgerStore
//go:generate mockgen -destination=events_publisher.go -package=mocks github.com/sheikh-saqib/bank-ledger-service/internal/interfaces EventPublisher
//go:generate mockgen -destination=balance_reader.go -package=mocks github.com/sheikh-saqib/bank-ledger-service/internal/interfaces BalanceReader
//go:generate mockgen -destination=token_verifier.go -package=mocks github.com/sheikh-saqib/bank-ledger-service/internal/interfaces TokenVerifier
