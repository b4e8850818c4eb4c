package types

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// PeginData is a cross-chain deposit claimed against a staged header.
type PeginData struct {
	// Bitcoin transaction id containing the pegin output.
	TxID []byte
	// Output index of the pegin output in that transaction.
	Vout uint64
	// Value of the pegin output, in satoshis.
	Value uint64
	// Script that must be satisfied to claim the output.
	ScriptPubKey []byte
	// Final destination address of the pegin on the execution layer.
	EthAddress common.Address
}

// PegoutData is a cross-chain withdrawal requested against a staged header.
type PegoutData struct {
	PegoutID     []byte
	ScriptPubKey []byte
	// Amount to be pegged out, in satoshis.
	Amount uint64
	// Height at which the pegout was requested.
	Height uint64
}

// HeaderWithPegs binds the pegins and pegouts to the execution-layer header
// they were staged against.
type HeaderWithPegs struct {
	Pegins  []PeginData
	Pegouts []PegoutData
	Header  *ethtypes.Header
}
