package ledger

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// AddressScript returns the output script locking funds to the given address
// on the given network.
func AddressScript(address string, net *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return nil, fmt.Errorf("invalid address for network %s: %w", net.Name, err)
	}
	if !addr.IsForNet(net) {
		return nil, fmt.Errorf("address is not for network %s", net.Name)
	}
	return txscript.PayToAddrScript(addr)
}

// ScriptHash returns the reversed sha256 of the given script in hex format,
// as expected by the Electrum protocol.
func ScriptHash(script []byte) string {
	hashedBuf := sha256.Sum256(script)
	hash, _ := chainhash.NewHash(hashedBuf[:])
	return hash.String()
}

// Confirmations returns the number of confirmations of an output included in
// the block at the given height, given the current chain tip height.
// Unconfirmed outputs have height 0 and no confirmations.
func Confirmations(height, tipHeight uint64) int64 {
	if height == 0 || tipHeight < height {
		return 0
	}
	return int64(tipHeight - height + 1)
}
