package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"registryScope/internal/registry"
)

// RecordView is the JSON shape of a records(address) read.
type RecordView struct {
	Address           string `json:"address"`
	Registered        bool   `json:"registered"`
	RegisteredAddress string `json:"registered_address"`
	Owner             string `json:"owner"`
	Time              string `json:"time"`
	ID                string `json:"id"`
}

// NewRecordView renders rec as read for address. A zero registered address means
// the contract holds no entry.
func NewRecordView(address common.Address, rec registry.RegistryRecord) RecordView {
	return RecordView{
		Address:           address.Hex(),
		Registered:        rec.RegisteredAddress != (common.Address{}),
		RegisteredAddress: rec.RegisteredAddress.Hex(),
		Owner:             rec.Owner.Hex(),
		Time:              bigString(rec.Time),
		ID:                bigString(rec.ID),
	}
}

// WorkView is the JSON shape of a workRegistered(id) read.
type WorkView struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func NewWorkView(id *big.Int, addr common.Address) WorkView {
	return WorkView{ID: bigString(id), Address: addr.Hex()}
}

// StatsView carries the registry counters.
type StatsView struct {
	Contract   string `json:"contract"`
	NumRecords string `json:"num_records"`
	MaxID      string `json:"max_id"`
}

// TxView is printed after a submitted transaction.
type TxView struct {
	Method string `json:"method"`
	From   string `json:"from"`
	Target string `json:"target"`
	TxHash string `json:"tx_hash"`
}
