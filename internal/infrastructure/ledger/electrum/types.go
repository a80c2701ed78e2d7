package electrum_ledger

import (
	"encoding/json"
	"fmt"
	"sync"
)

const delim = byte('\n')

type blockInfo struct {
	Header string `json:"hex"`
	Height uint64 `json:"height"`
}

type unspentInfo struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Height int64  `json:"height"`
	Value  uint64 `json:"value"`
}

type request struct {
	Id     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type response struct {
	Id     uint64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

func (r response) error() error {
	if len(r.Error) <= 0 || string(r.Error) == "null" {
		return nil
	}

	var msg string
	if err := json.Unmarshal(r.Error, &msg); err == nil {
		return fmt.Errorf("%s", msg)
	}

	var err responseErr
	if e := json.Unmarshal(r.Error, &err); e != nil {
		return fmt.Errorf("%s", string(r.Error))
	}
	return err.toError()
}

type responseErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e responseErr) toError() error {
	if len(e.Message) <= 0 {
		return nil
	}
	return fmt.Errorf("code: %d, message: %s", e.Code, e.Message)
}

// chHandler routes the responses read from the socket to the goroutines
// waiting for them, by request id.
type chHandler struct {
	lock             *sync.RWMutex
	chReportsByReqId map[uint64]chan response
}

func newChHandler() *chHandler {
	return &chHandler{
		lock:             &sync.RWMutex{},
		chReportsByReqId: make(map[uint64]chan response),
	}
}

func (h *chHandler) addRequest(req request) chan response {
	h.lock.Lock()
	defer h.lock.Unlock()

	ch := make(chan response, 1)
	h.chReportsByReqId[req.Id] = ch
	return ch
}

// dispatch delivers the response to the pending request with the same id, if
// any. Returns false if nobody is waiting for it.
func (h *chHandler) dispatch(resp response) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()

	ch, ok := h.chReportsByReqId[resp.Id]
	if !ok {
		return false
	}
	select {
	case ch <- resp:
		return true
	default:
		return false
	}
}

func (h *chHandler) clearRequest(id uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.chReportsByReqId, id)
}

func (h *chHandler) clear() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for id, ch := range h.chReportsByReqId {
		close(ch)
		delete(h.chReportsByReqId, id)
	}
}
