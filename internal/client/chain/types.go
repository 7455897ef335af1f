package chain

import "strconv"

const (
	TypeNonFungible  = "NonFungibleESDT"
	TypeSemiFungible = "SemiFungibleESDT"
)

// AccountNFT is one token held by an account, as returned by accounts/{addr}/nfts.
type AccountNFT struct {
	Identifier string `json:"identifier"`
	Collection string `json:"collection"`
	Nonce      int64  `json:"nonce"`
	Type       string `json:"type"`
	Balance    string `json:"balance,omitempty"`
}

// BalanceOrOne returns the held amount; non-fungible tokens count as one.
func (n AccountNFT) BalanceOrOne() int64 {
	if n.Type != TypeSemiFungible {
		return 1
	}
	v, err := strconv.ParseInt(n.Balance, 10, 64)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

type Transaction struct {
	TxHash   string `json:"txHash"`
	Function string `json:"function"`
	// Data is the base64 payload of the call.
	Data   string `json:"data"`
	Status string `json:"status"`
}

type QueryRequest struct {
	ScAddress string   `json:"scAddress"`
	FuncName  string   `json:"funcName"`
	Args      []string `json:"args"`
}

type QueryResponse struct {
	ReturnData []string `json:"returnData"`
	ReturnCode string   `json:"returnCode"`
}
