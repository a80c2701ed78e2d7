package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// UtxoKey represents the key of an Utxo, composed by its txid and vout.
// The txid is always in its big-endian (explorer) form.
type UtxoKey struct {
	TxID string
	VOut uint32
}

func (k UtxoKey) Hash() string {
	buf, _ := hex.DecodeString(k.TxID)
	vout := make([]byte, 4)
	binary.LittleEndian.PutUint32(vout, k.VOut)
	buf = append(buf, vout...)
	return hex.EncodeToString(btcutil.Hash160(buf))
}

func (k UtxoKey) String() string {
	return fmt.Sprintf("{%s: %d}", k.TxID, k.VOut)
}

// ParseUtxoKey returns the key identified by the given txid and vout, making
// sure the txid is a valid 32-byte hash in hex format.
func ParseUtxoKey(txid string, vout uint32) (UtxoKey, error) {
	if _, err := chainhash.NewHashFromStr(txid); err != nil {
		return UtxoKey{}, fmt.Errorf("invalid txid %s: %w", txid, err)
	}
	if len(txid) != chainhash.MaxHashStringSize {
		return UtxoKey{}, fmt.Errorf("invalid txid %s: wrong length", txid)
	}
	return UtxoKey{TxID: txid, VOut: vout}, nil
}

// UtxoInfo is the light, serializable view of an Utxo. Its json format
// follows the one of the blockchain.info unspent outputs API.
type UtxoInfo struct {
	TxHashBigEndian string `json:"tx_hash_big_endian"`
	TxHash          string `json:"tx_hash"`
	TxOutputN       uint32 `json:"tx_output_n"`
	Script          string `json:"script"`
	Value           uint64 `json:"value"`
	ValueHex        string `json:"value_hex"`
	Confirmations   int64  `json:"confirmations"`
}

// Key returns the UtxoKey of the utxo described by the current info.
func (i UtxoInfo) Key() UtxoKey {
	return UtxoKey{TxID: i.TxHashBigEndian, VOut: i.TxOutputN}
}

// Utxo is the data structure representing a spendable output of an address,
// as returned by the ledger service.
// Utxos are owned by the ledger, the selection process only references them.
type Utxo struct {
	UtxoKey
	Value         uint64
	Script        []byte
	Confirmations int64
	BlockHeight   uint64
}

// Key returns the UtxoKey of the current utxo.
func (u *Utxo) Key() UtxoKey {
	return u.UtxoKey
}

// IsConfirmed returns whether the utxo has been included in a block.
func (u *Utxo) IsConfirmed() bool {
	return u.Confirmations > 0
}

// Info returns a light view of the current utxo.
func (u *Utxo) Info() UtxoInfo {
	return UtxoInfo{
		TxHashBigEndian: u.TxID,
		TxHash:          littleEndianTxid(u.TxID),
		TxOutputN:       u.VOut,
		Script:          hex.EncodeToString(u.Script),
		Value:           u.Value,
		ValueHex:        valueToHex(u.Value),
		Confirmations:   u.Confirmations,
	}
}

// NewUtxoFromInfo is the inverse of Utxo.Info.
func NewUtxoFromInfo(info UtxoInfo) (*Utxo, error) {
	txid := info.TxHashBigEndian
	if txid == "" && info.TxHash != "" {
		txid = bigEndianTxid(info.TxHash)
	}
	key, err := ParseUtxoKey(txid, info.TxOutputN)
	if err != nil {
		return nil, err
	}
	if info.Value == 0 {
		return nil, fmt.Errorf("utxo %s: value must be positive", key)
	}
	script, err := hex.DecodeString(info.Script)
	if err != nil {
		return nil, fmt.Errorf("utxo %s: invalid script: %w", key, err)
	}
	return &Utxo{
		UtxoKey:       key,
		Value:         info.Value,
		Script:        script,
		Confirmations: info.Confirmations,
	}, nil
}

// littleEndianTxid reverses the byte order of a big-endian txid.
// chainhash stores hashes in internal (little-endian) byte order.
func littleEndianTxid(txid string) string {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(hash[:])
}

func bigEndianTxid(txHash string) string {
	buf, err := hex.DecodeString(txHash)
	if err != nil || len(buf) != chainhash.HashSize {
		return ""
	}
	hash, _ := chainhash.NewHash(buf)
	return hash.String()
}

func valueToHex(value uint64) string {
	str := strconv.FormatUint(value, 16)
	if len(str)%2 != 0 {
		str = "0" + str
	}
	return str
}
